package cypher

import (
	"fmt"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
)

// Result columns produced by fragments, in RETURN order.
const (
	ColIndications       = "indications"
	ColCategories        = "categories"
	ColSubcategories     = "subcategories"
	ColActivities        = "activities"
	ColActivityGroups    = "activity_groups"
	ColActivitySubgroups = "activity_subgroups"
	ColTemplateType      = "template_type"
	ColInstanceTemplate  = "instance_template"
)

// Columns lists every fragment column in RETURN order.
var Columns = []string{
	ColIndications, ColCategories, ColSubcategories,
	ColActivities, ColActivityGroups, ColActivitySubgroups,
	ColTemplateType, ColInstanceTemplate,
}

// Fragment is the optional match and return column of one relationship.
// A Fragment without Match is a placeholder that only keeps the column.
type Fragment struct {
	Column   string
	Match    string
	Return   string
	Binds    []string
	Requires []string
}

// Active reports whether f contributes a match clause.
func (f Fragment) Active() bool { return f.Match != "" }

func listPlaceholder(col string) Fragment {
	return Fragment{Column: col, Return: "[] AS " + col}
}

func nullPlaceholder(col string) Fragment {
	return Fragment{Column: col, Return: "null AS " + col}
}

// IndicationFragment matches dictionary terms linked by HAS_INDICATION.
func IndicationFragment(d syntax.Descriptor) Fragment {
	if !syntax.CapabilitiesOf(d).Has(syntax.CapIndication) {
		return listPlaceholder(ColIndications)
	}
	return Fragment{
		Column: ColIndications,
		Match: "OPTIONAL MATCH (root)-[:HAS_INDICATION]->(indication_root:DictionaryTermRoot)" +
			"-[:LATEST]->(indication_value:DictionaryTermValue)",
		Return: `collect(DISTINCT CASE WHEN indication_root IS NULL THEN NULL ELSE {
        term_uid: indication_root.uid,
        name: indication_value.name
    } END) AS indications`,
		Binds:    []string{"indication_root", "indication_value"},
		Requires: []string{VarRoot},
	}
}

// ctTermMatch renders the name and attribute matches of a CT term bound to
// <prefix>_root.
func ctTermMatch(from, rel, prefix string) string {
	return fmt.Sprintf(
		"OPTIONAL MATCH (%[1]s)-[:%[2]s]->(%[3]s_root:CTTermRoot)-[:HAS_NAME_ROOT]->(:CTTermNameRoot)"+
			"-[:LATEST]->(%[3]s_ct_term_name_value:CTTermNameValue)\n"+
			"OPTIONAL MATCH (%[3]s_root)-[:HAS_ATTRIBUTES_ROOT]->(:CTTermAttributesRoot)"+
			"-[:LATEST]->(%[3]s_ct_term_attributes_value:CTTermAttributesValue)",
		from, rel, prefix)
}

func ctTermMap(prefix string) string {
	return fmt.Sprintf(`{
        term_uid: %[1]s_root.uid,
        name: %[1]s_ct_term_name_value.name,
        name_sentence_case: %[1]s_ct_term_name_value.name_sentence_case,
        code_submission_value: %[1]s_ct_term_attributes_value.code_submission_value,
        preferred_term: %[1]s_ct_term_attributes_value.preferred_term
    }`, prefix)
}

func ctTermBinds(prefix string) []string {
	return []string{prefix + "_root", prefix + "_ct_term_name_value", prefix + "_ct_term_attributes_value"}
}

func ctTermListFragment(d syntax.Descriptor, c syntax.Capability, rel, prefix, col string) Fragment {
	if !syntax.CapabilitiesOf(d).Has(c) {
		return listPlaceholder(col)
	}
	return Fragment{
		Column: col,
		Match:  ctTermMatch(VarRoot, rel, prefix),
		Return: fmt.Sprintf("collect(DISTINCT CASE WHEN %s_root IS NULL THEN NULL ELSE %s END) AS %s",
			prefix, ctTermMap(prefix), col),
		Binds:    ctTermBinds(prefix),
		Requires: []string{VarRoot},
	}
}

// CategoryFragment matches CT terms linked by HAS_CATEGORY.
func CategoryFragment(d syntax.Descriptor) Fragment {
	return ctTermListFragment(d, syntax.CapCategory, syntax.RelHasCategory, "category", ColCategories)
}

// SubcategoryFragment matches CT terms linked by HAS_SUBCATEGORY.
func SubcategoryFragment(d syntax.Descriptor) Fragment {
	return ctTermListFragment(d, syntax.CapSubcategory, syntax.RelHasSubcategory, "subcategory", ColSubcategories)
}

func activityListFragment(d syntax.Descriptor, c syntax.Capability, col, prefix string) Fragment {
	if !syntax.CapabilitiesOf(d).Has(c) {
		return listPlaceholder(col)
	}
	target, _ := syntax.TargetFor(c)
	valueLabel := target.TargetLabel[:len(target.TargetLabel)-len("Root")] + "Value"
	return Fragment{
		Column: col,
		Match: fmt.Sprintf("OPTIONAL MATCH (root)-[:%s]->(%s_root:%s)-[:LATEST]->(%s_value:%s)",
			target.Rel, prefix, target.TargetLabel, prefix, valueLabel),
		Return: fmt.Sprintf(`collect(DISTINCT CASE WHEN %[1]s_root IS NULL THEN NULL ELSE {
        uid: %[1]s_root.uid,
        name: %[1]s_value.name,
        name_sentence_case: %[1]s_value.name_sentence_case
    } END) AS %[2]s`, prefix, col),
		Binds:    []string{prefix + "_root", prefix + "_value"},
		Requires: []string{VarRoot},
	}
}

// ActivityFragment matches activities linked by HAS_ACTIVITY.
func ActivityFragment(d syntax.Descriptor) Fragment {
	return activityListFragment(d, syntax.CapActivity, ColActivities, "activity")
}

// ActivityGroupFragment matches activity groups linked by HAS_ACTIVITY_GROUP.
func ActivityGroupFragment(d syntax.Descriptor) Fragment {
	return activityListFragment(d, syntax.CapActivityGroup, ColActivityGroups, "activity_group")
}

// ActivitySubgroupFragment matches activity subgroups linked by HAS_ACTIVITY_SUBGROUP.
func ActivitySubgroupFragment(d syntax.Descriptor) Fragment {
	return activityListFragment(d, syntax.CapActivitySubgroup, ColActivitySubgroups, "activity_subgroup")
}

// TypeFragment matches the type term. Templates that declare a type carry
// HAS_TYPE themselves; pre-instances and instances reach it through the
// template they were generated from.
func TypeFragment(d syntax.Descriptor) Fragment {
	if !syntax.CapabilitiesOf(d).Has(syntax.CapType) {
		return nullPlaceholder(ColTemplateType)
	}
	f := Fragment{
		Column:   ColTemplateType,
		Return:   fmt.Sprintf("CASE WHEN type_root IS NULL THEN NULL ELSE %s END AS %s", ctTermMap("type"), ColTemplateType),
		Binds:    ctTermBinds("type"),
		Requires: []string{VarRoot},
	}
	if d.HasDirectType() {
		f.Match = ctTermMatch(VarRoot, syntax.RelHasType, "type")
		return f
	}
	tmpl := syntax.MustLookup(d.Type.Template())
	f.Match = fmt.Sprintf(
		"OPTIONAL MATCH (root)%s(type_template_root:%s)-[:HAS_TYPE]->(type_root:CTTermRoot)"+
			"-[:HAS_NAME_ROOT]->(:CTTermNameRoot)-[:LATEST]->(type_ct_term_name_value:CTTermNameValue)\n"+
			"OPTIONAL MATCH (type_root)-[:HAS_ATTRIBUTES_ROOT]->(:CTTermAttributesRoot)"+
			"-[:LATEST]->(type_ct_term_attributes_value:CTTermAttributesValue)",
		d.LineageRel(), tmpl.RootLabel)
	f.Binds = append(f.Binds, "type_template_root")
	return f
}

// LineageFragment resolves the template a pre-instance or instance was
// generated from, as of the latest Final template version that started no
// later than the row's own version.
func LineageFragment(d syntax.Descriptor) Fragment {
	if !syntax.CapabilitiesOf(d).Has(syntax.CapTemplateLineage) {
		return nullPlaceholder(ColInstanceTemplate)
	}
	tmpl := syntax.MustLookup(d.Type.Template())
	match := fmt.Sprintf(`CALL {
    WITH root, ver_rel
    OPTIONAL MATCH (root)%s(template_root:%s)-[template_rel:HAS_VERSION]->(template_value)
    WHERE template_rel.status = "Final" AND datetime(template_rel.start_date) <= datetime(ver_rel.start_date)
    OPTIONAL MATCH (template_root)<-[:%s]-(template_library:Library)
    RETURN template_root, template_value, template_library
    ORDER BY template_rel.start_date DESC
    LIMIT 1
}`, d.LineageRel(), tmpl.RootLabel, tmpl.LibraryRel)

	typeMap := "null"
	binds := []string{"template_root", "template_value", "template_library"}
	if tmpl.Declared.Has(syntax.CapType) {
		match += "\n" + ctTermMatch("template_root", syntax.RelHasType, "template_type")
		typeMap = fmt.Sprintf("CASE WHEN template_type_root IS NULL THEN NULL ELSE %s END", ctTermMap("template_type"))
		binds = append(binds, ctTermBinds("template_type")...)
	}
	return Fragment{
		Column: ColInstanceTemplate,
		Match:  match,
		Return: fmt.Sprintf(`CASE WHEN template_root IS NULL THEN NULL ELSE {
        uid: template_root.uid,
        sequence_id: template_root.sequence_id,
        name: template_value.name,
        guidance_text: template_value.guidance_text,
        library_name: template_library.name,
        type: %s
    } END AS %s`, typeMap, ColInstanceTemplate),
		Binds:    binds,
		Requires: []string{VarRoot, VarVersionRel},
	}
}

// Fragments returns every fragment of d in match order. Placeholders are
// included so callers can project a constant row shape.
func Fragments(d syntax.Descriptor) []Fragment {
	return []Fragment{
		LineageFragment(d),
		IndicationFragment(d),
		TypeFragment(d),
		CategoryFragment(d),
		SubcategoryFragment(d),
		ActivityFragment(d),
		ActivityGroupFragment(d),
		ActivitySubgroupFragment(d),
	}
}

// returnColumns orders the fragment return expressions as Columns.
func returnColumns(frags []Fragment) []string {
	byCol := make(map[string]string, len(frags))
	for _, f := range frags {
		byCol[f.Column] = f.Return
	}
	out := make([]string, 0, len(Columns))
	for _, c := range Columns {
		out = append(out, byCol[c])
	}
	return out
}
