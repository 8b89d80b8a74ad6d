package repositories

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/cypher"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// materializeRow turns one FindQuery record into the normalized row the
// aggregate factories consume. A row whose root is missing or carries a
// different label means the node changed under us.
func materializeRow(d syntax.Descriptor, rec *neo4j.Record) (syntax.AggregateInput, error) {
	in := syntax.AggregateInput{Type: d.Type}

	rootVal, _ := rec.Get(cypher.VarRoot)
	root, ok := rootVal.(neo4j.Node)
	if !ok || !hasLabel(root.Labels, d.RootLabel) {
		return in, errors.VersioningConflict("Resource doesn't exist - it was likely deleted in a concurrent transaction.")
	}
	in.Root = syntax.Root{
		ElementID:             root.ElementId,
		UID:                   propString(root.Props, "uid"),
		SequenceID:            propString(root.Props, "sequence_id"),
		IsConfirmatoryTesting: propBoolPtr(root.Props, "is_confirmatory_testing"),
		Labels:                append([]string{}, root.Labels...),
	}

	if v, _ := rec.Get(cypher.VarLibrary); v != nil {
		lib, ok := v.(neo4j.Node)
		if !ok {
			return in, columnTypeError(cypher.VarLibrary, v)
		}
		in.Library = syntax.Library{
			Name:       propString(lib.Props, "name"),
			IsEditable: propBool(lib.Props, "is_editable"),
		}
	}

	if v, _ := rec.Get(cypher.VarVersionRel); v != nil {
		rel, ok := v.(neo4j.Relationship)
		if !ok {
			return in, columnTypeError(cypher.VarVersionRel, v)
		}
		in.Version = syntax.VersionInfo{
			Status:            syntax.Status(propString(rel.Props, "status")),
			Version:           propString(rel.Props, "version"),
			AuthorID:          propString(rel.Props, "author_id"),
			ChangeDescription: propString(rel.Props, "change_description"),
		}
		if t, ok := propTime(rel.Props, "start_date"); ok {
			in.Version.StartDate = t
		}
		if t, ok := propTime(rel.Props, "end_date"); ok {
			in.Version.EndDate = &t
		}
	}

	if v, _ := rec.Get(cypher.VarValue); v != nil {
		val, ok := v.(neo4j.Node)
		if !ok {
			return in, columnTypeError(cypher.VarValue, v)
		}
		in.Value = syntax.Value{
			ElementID:    val.ElementId,
			Name:         propString(val.Props, "name"),
			NamePlain:    propString(val.Props, "name_plain"),
			GuidanceText: propString(val.Props, "guidance_text"),
		}
	}

	if v, _ := rec.Get(cypher.VarStudyCount); v != nil {
		n, ok := asInt(v)
		if !ok {
			return in, columnTypeError(cypher.VarStudyCount, v)
		}
		in.StudyCount = n
	}

	in.Indications = termRefs(listColumn(rec, cypher.ColIndications))
	in.Categories = ctTermRefs(listColumn(rec, cypher.ColCategories))
	in.Subcategories = ctTermRefs(listColumn(rec, cypher.ColSubcategories))
	in.Activities = activityRefs(listColumn(rec, cypher.ColActivities))
	in.ActivityGroups = activityRefs(listColumn(rec, cypher.ColActivityGroups))
	in.ActivitySubgroups = activityRefs(listColumn(rec, cypher.ColActivitySubgroups))

	if m := mapColumn(rec, cypher.ColTemplateType); m != nil {
		in.TemplateType = ctTermRef(m)
	}
	if m := mapColumn(rec, cypher.ColInstanceTemplate); m != nil {
		in.Template = templateRef(m)
	}
	return in, nil
}

func columnTypeError(col string, v any) error {
	return errors.Newf(errors.ErrCodeDatabaseError, "unexpected type %T in column %s", v, col)
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func listColumn(rec *neo4j.Record, col string) []map[string]any {
	v, _ := rec.Get(col)
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func mapColumn(rec *neo4j.Record, col string) map[string]any {
	v, _ := rec.Get(col)
	m, _ := v.(map[string]any)
	return m
}

func termRefs(items []map[string]any) []syntax.TermRef {
	out := make([]syntax.TermRef, 0, len(items))
	for _, m := range items {
		uid := propString(m, "term_uid")
		if uid == "" {
			continue
		}
		out = append(out, syntax.TermRef{TermUID: uid, Name: propString(m, "name")})
	}
	return out
}

func ctTermRef(m map[string]any) *syntax.CTTermRef {
	uid := propString(m, "term_uid")
	if uid == "" {
		return nil
	}
	return &syntax.CTTermRef{
		TermUID:             uid,
		Name:                propString(m, "name"),
		NameSentenceCase:    propString(m, "name_sentence_case"),
		CodeSubmissionValue: propString(m, "code_submission_value"),
		PreferredTerm:       propString(m, "preferred_term"),
	}
}

func ctTermRefs(items []map[string]any) []syntax.CTTermRef {
	out := make([]syntax.CTTermRef, 0, len(items))
	for _, m := range items {
		if t := ctTermRef(m); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

func activityRefs(items []map[string]any) []syntax.ActivityRef {
	out := make([]syntax.ActivityRef, 0, len(items))
	for _, m := range items {
		uid := propString(m, "uid")
		if uid == "" {
			continue
		}
		out = append(out, syntax.ActivityRef{
			UID:              uid,
			Name:             propString(m, "name"),
			NameSentenceCase: propString(m, "name_sentence_case"),
		})
	}
	return out
}

func templateRef(m map[string]any) *syntax.TemplateRef {
	uid := propString(m, "uid")
	if uid == "" {
		return nil
	}
	ref := &syntax.TemplateRef{
		UID:          uid,
		SequenceID:   propString(m, "sequence_id"),
		Name:         propString(m, "name"),
		GuidanceText: propString(m, "guidance_text"),
		LibraryName:  propString(m, "library_name"),
	}
	if t, ok := m["type"].(map[string]any); ok {
		ref.Type = ctTermRef(t)
	}
	return ref
}

// Property helpers. Missing or null properties yield the zero value.

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func propBool(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

func propBoolPtr(props map[string]any, key string) *bool {
	b, ok := props[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asIntPtr(v any) *int {
	n, ok := asInt(v)
	if !ok {
		return nil
	}
	return &n
}

func propTime(props map[string]any, key string) (time.Time, bool) {
	switch v := props[key].(type) {
	case time.Time:
		return v, true
	case neo4j.LocalDateTime:
		return v.Time(), true
	case neo4j.Date:
		return v.Time(), true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func stringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
