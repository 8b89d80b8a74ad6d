// Package cypher compiles syntax entity queries: the relationship fragment
// library, the public field registry, the filter and sort compiler and the
// clause builder that renders them into parameterized Cypher.
package cypher

import (
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
)

// Query variables bound by the match prefix. Every row carries them.
const (
	VarLibrary    = "library"
	VarRoot       = "root"
	VarVersionRel = "ver_rel"
	VarValue      = "value"
	VarStudyCount = "study_count"
)

// FieldSpec maps one public field name onto a query expression.
type FieldSpec struct {
	Name     string
	Variable string
	// Requires lists the capabilities the entity type must have.
	Requires syntax.CapabilitySet
	// Date marks version dates that accept date equality and "bw".
	Date bool
	// listOnly fields are dropped from header-only maps.
	listOnly bool
}

// Base returns the variable the expression is rooted at, e.g. "root" for
// "root.uid".
func (f FieldSpec) Base() string {
	for i := 0; i < len(f.Variable); i++ {
		if f.Variable[i] == '.' {
			return f.Variable[:i]
		}
	}
	return f.Variable
}

func field(name, variable string, caps ...syntax.Capability) FieldSpec {
	return FieldSpec{Name: name, Variable: variable, Requires: syntax.NewCapabilitySet(caps...)}
}

// ctTermFields expands the five public names of a CT term relationship.
func ctTermFields(prefix, varPrefix string, caps ...syntax.Capability) []FieldSpec {
	return []FieldSpec{
		field(prefix+".term_uid", varPrefix+"_root.uid", caps...),
		field(prefix+".name.sponsor_preferred_name", varPrefix+"_ct_term_name_value.name", caps...),
		field(prefix+".name.sponsor_preferred_name_sentence_case", varPrefix+"_ct_term_name_value.name_sentence_case", caps...),
		field(prefix+".attributes.code_submission_value", varPrefix+"_ct_term_attributes_value.code_submission_value", caps...),
		field(prefix+".attributes.preferred_term", varPrefix+"_ct_term_attributes_value.preferred_term", caps...),
	}
}

// activityFields expands the plural names and their singular aliases.
func activityFields(plural, singular, varPrefix string, c syntax.Capability) []FieldSpec {
	var out []FieldSpec
	for _, p := range []string{plural, singular} {
		out = append(out,
			field(p+".uid", varPrefix+"_root.uid", c),
			field(p, varPrefix+"_value.name", c),
			field(p+".name", varPrefix+"_value.name", c),
			field(p+".name_sentence_case", varPrefix+"_value.name_sentence_case", c),
		)
	}
	return out
}

// fieldRegistry is every public field in its canonical order.
var fieldRegistry = buildFieldRegistry()

func buildFieldRegistry() []FieldSpec {
	reg := []FieldSpec{
		field("library.name", "library.name"),
		field("uid", "root.uid"),
		field("sequence_id", "root.sequence_id"),
		field("name", "value.name"),
		field("name_plain", "value.name_plain"),
		field("status", "ver_rel.status"),
		field("author_id", "ver_rel.author_id"),
		field("version", "ver_rel.version"),
		{Name: "start_date", Variable: "ver_rel.start_date", Date: true},
		{Name: "end_date", Variable: "ver_rel.end_date", Date: true},
		{Name: "study_count", Variable: VarStudyCount, Requires: syntax.NewCapabilitySet(syntax.CapStudyCount), listOnly: true},
		field("is_confirmatory_testing", "root.is_confirmatory_testing", syntax.CapConfirmatoryTesting),
		field("template.name", "template_value.name", syntax.CapTemplateLineage),
		field("template.uid", "template_root.uid", syntax.CapTemplateLineage),
		field("template.sequence_id", "template_root.sequence_id", syntax.CapTemplateLineage),
		field("template.library.name", "template_library.name", syntax.CapTemplateLineage),
		field("template_uid", "template_root.uid", syntax.CapTemplateLineage, syntax.CapType),
		field("template_name", "template_value.name", syntax.CapTemplateLineage, syntax.CapType),
		field("template.type.term_uid", "type_root.uid", syntax.CapTemplateLineage, syntax.CapType),
		field("guidance_text", "value.guidance_text", syntax.CapGuidanceText),
		field("indications.term_uid", "indication_root.uid", syntax.CapIndication),
		field("indications.name", "indication_value.name", syntax.CapIndication),
		field("template_type_uid", "type_root.uid", syntax.CapType),
		field("type.term_uid", "type_root.uid", syntax.CapType),
		field("type.name.sponsor_preferred_name", "type_ct_term_name_value.name", syntax.CapType),
		field("type.name.sponsor_preferred_name_sentence_case", "type_ct_term_name_value.name_sentence_case", syntax.CapType),
		field("type.attributes.code_submission_value", "type_ct_term_attributes_value.code_submission_value", syntax.CapType),
		field("type.attributes.preferred_term", "type_ct_term_attributes_value.preferred_term", syntax.CapType),
	}
	reg = append(reg, ctTermFields("categories", "category", syntax.CapCategory)...)
	reg = append(reg, ctTermFields("sub_categories", "subcategory", syntax.CapSubcategory)...)
	reg = append(reg, ctTermFields("subCategories", "subcategory", syntax.CapSubcategory)...)
	reg = append(reg, activityFields("activities", "activity", "activity", syntax.CapActivity)...)
	reg = append(reg, activityFields("activity_groups", "activity.activity_group", "activity_group", syntax.CapActivityGroup)...)
	reg = append(reg, activityFields("activity_subgroups", "activity.activity_subgroup", "activity_subgroup", syntax.CapActivitySubgroup)...)
	return reg
}

// FieldMap is the set of public fields available for one entity type.
type FieldMap struct {
	specs []FieldSpec
	index map[string]int
}

// BuildFieldMap filters the registry by the effective capabilities of d.
// Header-only maps leave out fields computed per row (study_count).
func BuildFieldMap(d syntax.Descriptor, headerOnly bool) FieldMap {
	caps := syntax.CapabilitiesOf(d)
	fm := FieldMap{index: make(map[string]int, len(fieldRegistry))}
	for _, f := range fieldRegistry {
		if caps&f.Requires != f.Requires {
			continue
		}
		if headerOnly && f.listOnly {
			continue
		}
		fm.index[f.Name] = len(fm.specs)
		fm.specs = append(fm.specs, f)
	}
	return fm
}

// Lookup returns the spec registered under name.
func (m FieldMap) Lookup(name string) (FieldSpec, bool) {
	i, ok := m.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return m.specs[i], true
}

// Names lists the supported public names in registry order.
func (m FieldMap) Names() []string {
	out := make([]string, len(m.specs))
	for i, f := range m.specs {
		out[i] = f.Name
	}
	return out
}

// Specs returns a copy of the field specs in registry order.
func (m FieldMap) Specs() []FieldSpec {
	return append([]FieldSpec(nil), m.specs...)
}

// Len is the number of supported fields.
func (m FieldMap) Len() int { return len(m.specs) }
