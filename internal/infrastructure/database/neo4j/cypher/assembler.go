package cypher

import (
	"fmt"
	"strings"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Selection picks which version relationships of which roots a query reads.
type Selection struct {
	UID     string
	Status  syntax.Status
	Version string
	// AuditTrail returns every matching version instead of one per root.
	AuditTrail bool
}

func (s Selection) latest() bool {
	return s.Status == "" && s.Version == "" && !s.AuditTrail
}

// FindOptions parameterizes FindQuery and CountQuery.
type FindOptions struct {
	Selection
	ReturnStudyCount bool
	FilterBy         syntax.FilterBy
	FilterOperator   syntax.FilterOperator
	SortBy           []syntax.SortField
	Skip             int
	// Limit 0 returns every row.
	Limit int
}

// HeaderQueryOptions parameterizes HeadersQuery.
type HeaderQueryOptions struct {
	Selection
	FieldName      string
	SearchString   string
	FilterBy       syntax.FilterBy
	FilterOperator syntax.FilterOperator
	Limit          int
}

const studyVersionRels = "HAS_VERSION|LATEST_DRAFT|LATEST_FINAL|LATEST_RETIRED"

// ReturnColumns is the row shape of FindQuery.
var ReturnColumns = append([]string{VarLibrary, VarRoot, VarVersionRel, VarValue, VarStudyCount}, Columns...)

// HeaderColumn is the single column returned by HeadersQuery.
const HeaderColumn = "header"

// CountColumn is the single column returned by CountQuery.
const CountColumn = "total"

// selectVersions adds the clauses binding library, root, ver_rel and value.
func selectVersions(b *Builder, d syntax.Descriptor, sel Selection) {
	if sel.UID != "" {
		b.Param("uid", sel.UID)
	}
	if sel.Status != "" {
		b.Param("status", string(sel.Status))
	}
	if sel.Version != "" {
		b.Param("version", sel.Version)
	}
	libraryMatch := fmt.Sprintf("MATCH (library:%s)-[:%s]->(root)", syntax.LibraryLabel, d.LibraryRel)

	switch {
	case sel.AuditTrail:
		text := fmt.Sprintf("MATCH (root:%s)-[ver_rel:%s]->(value:%s)", d.RootLabel, syntax.RelHasVersion, d.ValueLabel)
		var conds []string
		if sel.UID != "" {
			conds = append(conds, "root.uid = $uid")
		}
		if sel.Status != "" {
			conds = append(conds, "ver_rel.status = $status")
		}
		if sel.Version != "" {
			conds = append(conds, "ver_rel.version = $version")
		}
		if len(conds) > 0 {
			text += "\nWHERE " + strings.Join(conds, " AND ")
		}
		b.Match(text, []string{VarRoot, VarVersionRel, VarValue})
		b.Match(libraryMatch, []string{VarLibrary}, VarRoot)

	case sel.latest():
		text := fmt.Sprintf("MATCH (root:%s)-[:%s]->(value:%s)", d.RootLabel, syntax.RelLatest, d.ValueLabel)
		if sel.UID != "" {
			text += "\nWHERE root.uid = $uid"
		}
		b.Match(text, []string{VarRoot, VarValue})
		b.Match(libraryMatch, []string{VarLibrary}, VarRoot)
		b.Add(Clause{
			Role: RoleCall,
			Text: fmt.Sprintf(`CALL {
    WITH root, value
    MATCH (root)-[hv:%s]->(value)
    RETURN hv AS ver_rel
    ORDER BY hv.start_date DESC
    LIMIT 1
}`, syntax.RelHasVersion),
			Binds:    []string{VarVersionRel},
			Requires: []string{VarRoot, VarValue},
		})

	default:
		text := fmt.Sprintf("MATCH (root:%s)", d.RootLabel)
		if sel.UID != "" {
			text += "\nWHERE root.uid = $uid"
		}
		b.Match(text, []string{VarRoot})
		b.Match(libraryMatch, []string{VarLibrary}, VarRoot)

		var sub strings.Builder
		sub.WriteString("CALL {\n    WITH root\n")
		if sel.Status == syntax.StatusFinal {
			fmt.Fprintf(&sub, `    MATCH (root)-[latest_rel:%s]->()
    WITH root, latest_rel
    ORDER BY latest_rel.start_date DESC
    LIMIT 1
    WHERE latest_rel.status <> "%s"
`, syntax.RelHasVersion, syntax.StatusRetired)
		}
		fmt.Fprintf(&sub, "    MATCH (root)-[hv:%s]->(v:%s)\n", syntax.RelHasVersion, d.ValueLabel)
		var conds []string
		if sel.Status != "" {
			conds = append(conds, "hv.status = $status")
		}
		if sel.Version != "" {
			conds = append(conds, "hv.version = $version")
		}
		fmt.Fprintf(&sub, "    WHERE %s\n", strings.Join(conds, " AND "))
		sub.WriteString("    RETURN hv AS ver_rel, v AS value\n    ORDER BY hv.start_date DESC\n    LIMIT 1\n}")
		b.Add(Clause{
			Role:     RoleCall,
			Text:     sub.String(),
			Binds:    []string{VarVersionRel, VarValue},
			Requires: []string{VarRoot},
		})
	}
}

// studyStatement is the chain from a study selection up to any version of
// the owning study.
func studyStatement(d syntax.Descriptor, studyVar string) string {
	return fmt.Sprintf("<-[:%s]-(:StudySelection)<--(:StudyValue)<-[:%s]-(%s:StudyRoot)",
		d.StudySelectionRel, studyVersionRels, studyVar)
}

// restrictToSelected keeps only instances selected in at least one study.
func restrictToSelected(b *Builder, d syntax.Descriptor) {
	b.Match(fmt.Sprintf("MATCH (root)-->(:%s)%s", d.BaseValueLabel, studyStatement(d, "")), nil, VarRoot)
	b.Add(Clause{
		Role:     RoleWith,
		Text:     "WITH DISTINCT library, root, ver_rel, value",
		Binds:    []string{VarLibrary, VarRoot, VarVersionRel, VarValue},
		Requires: []string{VarLibrary, VarRoot, VarVersionRel, VarValue},
		Projects: true,
	})
}

// countStudies binds study_count, zero unless requested.
func countStudies(b *Builder, d syntax.Descriptor, requested bool) {
	base := []string{VarLibrary, VarRoot, VarVersionRel, VarValue}
	if requested && syntax.CapabilitiesOf(d).Has(syntax.CapStudyCount) {
		if d.Type.IsTemplate() {
			inst := syntax.MustLookup(syntax.EntityType{Kind: d.Type.Kind, Variant: syntax.VariantInstance})
			b.Match(fmt.Sprintf("OPTIONAL MATCH (root)-[:%s]->(:%s)-->(:%s)%s",
				d.TemplateRel, inst.BaseRootLabel, inst.BaseValueLabel, studyStatement(inst, "study_root")),
				[]string{"study_root"}, VarRoot)
		} else {
			b.Match("OPTIONAL MATCH (value)"+studyStatement(d, "study_root"), []string{"study_root"}, VarValue)
		}
		b.Add(Clause{
			Role:     RoleWith,
			Text:     "WITH library, root, ver_rel, value, count(DISTINCT study_root) AS study_count",
			Binds:    append(base, VarStudyCount),
			Requires: append(base, "study_root"),
			Projects: true,
		})
		return
	}
	b.Add(Clause{
		Role:     RoleWith,
		Text:     "WITH library, root, ver_rel, value, 0 AS study_count",
		Binds:    append(base, VarStudyCount),
		Requires: base,
		Projects: true,
	})
}

// prefix renders everything up to and including the filter.
func prefix(b *Builder, d syntax.Descriptor, sel Selection, studyCount bool, cond Condition) {
	selectVersions(b, d, sel)
	if d.Type.IsInstance() && sel.UID == "" {
		restrictToSelected(b, d)
	}
	countStudies(b, d, studyCount)
	for _, f := range Fragments(d) {
		if !f.Active() {
			continue
		}
		role := RoleMatch
		if strings.HasPrefix(f.Match, "CALL") {
			role = RoleCall
		}
		b.Add(Clause{Role: role, Text: f.Match, Binds: f.Binds, Requires: f.Requires})
	}
	if !cond.Empty() {
		b.Add(Clause{Role: RoleWith, Text: "WITH *\nWHERE " + cond.Expr, Requires: cond.Reads})
		b.Params(cond.Params)
	}
}

// FindQuery renders the row query for fetch and list calls.
func FindQuery(d syntax.Descriptor, opts FindOptions) (Query, error) {
	fm := BuildFieldMap(d, false)
	cond, err := CompileWhere(opts.FilterBy, opts.FilterOperator, fm)
	if err != nil {
		return Query{}, err
	}
	order, err := CompileSort(opts.SortBy, fm)
	if err != nil {
		return Query{}, err
	}
	if opts.AuditTrail {
		if len(opts.SortBy) == 0 {
			order = "ver_rel.start_date DESC, root.uid DESC"
		} else {
			order = "ver_rel.start_date DESC, " + order
		}
	}

	b := NewBuilder()
	prefix(b, d, opts.Selection, opts.ReturnStudyCount, cond)

	returns := append([]string{VarLibrary, VarRoot, VarVersionRel, VarValue, VarStudyCount},
		returnColumns(Fragments(d))...)
	b.Add(Clause{
		Role:     RoleReturn,
		Text:     "RETURN DISTINCT\n    " + strings.Join(returns, ",\n    "),
		Binds:    ReturnColumns,
		Requires: []string{VarLibrary, VarRoot, VarVersionRel, VarValue, VarStudyCount},
		Projects: true,
	})
	b.Add(Clause{Role: RoleOrder, Text: "ORDER BY " + order})
	if opts.Limit > 0 || opts.Skip > 0 {
		page := ""
		if opts.Skip > 0 {
			page = "SKIP $skip"
			b.Param("skip", opts.Skip)
		}
		if opts.Limit > 0 {
			page = strings.TrimSpace(page + " LIMIT $page_size")
			b.Param("page_size", opts.Limit)
		}
		b.Add(Clause{Role: RolePage, Text: page})
	}
	return b.Render()
}

// CountQuery counts the distinct version relationships FindQuery would return
// with the same selection and filter, ignoring paging.
func CountQuery(d syntax.Descriptor, opts FindOptions) (Query, error) {
	fm := BuildFieldMap(d, false)
	cond, err := CompileWhere(opts.FilterBy, opts.FilterOperator, fm)
	if err != nil {
		return Query{}, err
	}
	b := NewBuilder()
	prefix(b, d, opts.Selection, opts.ReturnStudyCount, cond)
	b.Add(Clause{
		Role:     RoleReturn,
		Text:     "RETURN count(DISTINCT ver_rel) AS " + CountColumn,
		Binds:    []string{CountColumn},
		Requires: []string{VarVersionRel},
		Projects: true,
	})
	return b.Render()
}

// HeadersQuery renders the distinct values of one field. SearchString is
// applied as a contains filter on the field itself and overrides a caller
// filter on the same field.
func HeadersQuery(d syntax.Descriptor, opts HeaderQueryOptions) (Query, error) {
	fm := BuildFieldMap(d, true)
	spec, ok := fm.Lookup(opts.FieldName)
	if !ok {
		return Query{}, errors.Validation(fmt.Sprintf("Unsupported field name: %s. Supported field names are: [%s]",
			opts.FieldName, strings.Join(fm.Names(), ", ")))
	}

	filter := make(syntax.FilterBy, len(opts.FilterBy)+1)
	for k, v := range opts.FilterBy {
		filter[k] = v
	}
	if opts.SearchString != "" {
		filter[opts.FieldName] = syntax.FilterElement{Values: []any{opts.SearchString}, Op: syntax.OpContains}
	}
	cond, err := CompileWhere(filter, opts.FilterOperator, fm)
	if err != nil {
		return Query{}, err
	}

	b := NewBuilder()
	prefix(b, d, opts.Selection, false, cond)
	b.Add(Clause{
		Role:     RoleWith,
		Text:     fmt.Sprintf("WITH DISTINCT %s AS %s\nWHERE %s IS NOT NULL", spec.Variable, HeaderColumn, HeaderColumn),
		Binds:    []string{HeaderColumn},
		Requires: []string{spec.Base()},
		Projects: true,
	})
	b.Add(Clause{Role: RoleReturn, Text: "RETURN " + HeaderColumn, Binds: []string{HeaderColumn}, Requires: []string{HeaderColumn}})
	b.Add(Clause{Role: RoleOrder, Text: "ORDER BY " + HeaderColumn})
	b.Add(Clause{Role: RolePage, Text: "LIMIT $result_count"})
	b.Param("result_count", opts.Limit)
	return b.Render()
}
