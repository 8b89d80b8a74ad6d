package syntax

import (
	"fmt"
	"sort"
)

// Relationship labels shared by all syntax entities.
const (
	LibraryLabel = "Library"

	RelHasVersion    = "HAS_VERSION"
	RelLatest        = "LATEST"
	RelLatestDraft   = "LATEST_DRAFT"
	RelLatestFinal   = "LATEST_FINAL"
	RelLatestRetired = "LATEST_RETIRED"
	RelCreatedFrom   = "CREATED_FROM"

	RelHasIndication       = "HAS_INDICATION"
	RelHasCategory         = "HAS_CATEGORY"
	RelHasSubcategory      = "HAS_SUBCATEGORY"
	RelHasActivity         = "HAS_ACTIVITY"
	RelHasActivityGroup    = "HAS_ACTIVITY_GROUP"
	RelHasActivitySubgroup = "HAS_ACTIVITY_SUBGROUP"
	RelHasType             = "HAS_TYPE"

	libRelTemplate    = "CONTAINS_SYNTAX_TEMPLATE"
	libRelPreInstance = "CONTAINS_SYNTAX_PRE_INSTANCE"
	libRelInstance    = "CONTAINS_SYNTAX_INSTANCE"
)

// Descriptor is the static description of one EntityType. Descriptors are
// built once by the package and never mutated.
type Descriptor struct {
	Type EntityType

	RootLabel  string
	ValueLabel string
	// BaseRootLabel is the label every root of the variant carries
	// (SyntaxTemplateRoot, SyntaxPreInstanceRoot, SyntaxInstanceRoot).
	BaseRootLabel  string
	BaseValueLabel string

	// LibraryRel links the owning Library to the root.
	LibraryRel string
	// TemplateRel links a template root to the instance roots generated from it.
	TemplateRel string
	// StudySelectionRel links a study selection to an instance value.
	StudySelectionRel string

	// Declared holds the capabilities the root carries itself.
	Declared CapabilitySet
}

// LineageRel returns the path fragment from a pre-instance or instance root
// to its generating template root, e.g. "-[:CREATED_FROM]->".
func (d Descriptor) LineageRel() string {
	switch d.Type.Variant {
	case VariantPreInstance:
		return "-[:" + RelCreatedFrom + "]->"
	case VariantInstance:
		return "<-[:" + d.TemplateRel + "]-"
	}
	return ""
}

// ParameterRel is the relationship from a value to its parameter terms:
// default values for templates, chosen values otherwise.
func (d Descriptor) ParameterRel() string {
	if d.Type.IsTemplate() {
		return "USES_DEFAULT_VALUE"
	}
	return "USES_VALUE"
}

type kindLabels struct {
	prefix            string
	templateRel       string
	studySelectionRel string
	template          CapabilitySet
	preInstance       CapabilitySet
}

var kindTable = map[Kind]kindLabels{
	KindObjective: {
		prefix:            "Objective",
		templateRel:       "HAS_OBJECTIVE",
		studySelectionRel: "HAS_SELECTED_OBJECTIVE",
		template:          NewCapabilitySet(CapIndication, CapCategory, CapSubcategory, CapConfirmatoryTesting),
		preInstance:       NewCapabilitySet(CapIndication, CapCategory, CapConfirmatoryTesting),
	},
	KindEndpoint: {
		prefix:            "Endpoint",
		templateRel:       "HAS_ENDPOINT",
		studySelectionRel: "HAS_SELECTED_ENDPOINT",
		template:          NewCapabilitySet(CapIndication, CapCategory, CapSubcategory),
		preInstance:       NewCapabilitySet(CapIndication, CapCategory, CapSubcategory),
	},
	KindCriteria: {
		prefix:            "Criteria",
		templateRel:       "HAS_CRITERIA",
		studySelectionRel: "HAS_SELECTED_CRITERIA",
		template:          NewCapabilitySet(CapIndication, CapCategory, CapSubcategory, CapType),
		preInstance:       NewCapabilitySet(CapIndication, CapCategory, CapSubcategory),
	},
	KindFootnote: {
		prefix:            "Footnote",
		templateRel:       "HAS_FOOTNOTE",
		studySelectionRel: "HAS_SELECTED_FOOTNOTE",
		template:          NewCapabilitySet(CapIndication, CapType, CapActivity, CapActivityGroup, CapActivitySubgroup),
		preInstance:       NewCapabilitySet(CapIndication, CapActivity, CapActivityGroup, CapActivitySubgroup),
	},
	KindActivityInstruction: {
		prefix:            "ActivityInstruction",
		templateRel:       "HAS_ACTIVITY_INSTRUCTION",
		studySelectionRel: "HAS_SELECTED_ACTIVITY_INSTRUCTION",
		template:          NewCapabilitySet(CapIndication, CapActivity, CapActivityGroup, CapActivitySubgroup),
		preInstance:       NewCapabilitySet(CapIndication, CapActivity, CapActivityGroup, CapActivitySubgroup),
	},
}

var registry = buildRegistry()

func buildRegistry() map[EntityType]Descriptor {
	out := make(map[EntityType]Descriptor, len(Kinds)*len(Variants))
	for _, k := range Kinds {
		kl := kindTable[k]
		out[EntityType{k, VariantTemplate}] = Descriptor{
			Type:           EntityType{k, VariantTemplate},
			RootLabel:      kl.prefix + "TemplateRoot",
			ValueLabel:     kl.prefix + "TemplateValue",
			BaseRootLabel:  "SyntaxTemplateRoot",
			BaseValueLabel: "SyntaxTemplateValue",
			LibraryRel:     libRelTemplate,
			TemplateRel:    kl.templateRel,
			Declared:       kl.template,
		}
		out[EntityType{k, VariantPreInstance}] = Descriptor{
			Type:           EntityType{k, VariantPreInstance},
			RootLabel:      kl.prefix + "PreInstanceRoot",
			ValueLabel:     kl.prefix + "PreInstanceValue",
			BaseRootLabel:  "SyntaxPreInstanceRoot",
			BaseValueLabel: "SyntaxPreInstanceValue",
			LibraryRel:     libRelPreInstance,
			TemplateRel:    kl.templateRel,
			Declared:       kl.preInstance,
		}
		out[EntityType{k, VariantInstance}] = Descriptor{
			Type:              EntityType{k, VariantInstance},
			RootLabel:         kl.prefix + "Root",
			ValueLabel:        kl.prefix + "Value",
			BaseRootLabel:     "SyntaxInstanceRoot",
			BaseValueLabel:    "SyntaxInstanceValue",
			LibraryRel:        libRelInstance,
			TemplateRel:       kl.templateRel,
			StudySelectionRel: kl.studySelectionRel,
		}
	}
	return out
}

// Lookup returns the descriptor registered for t.
func Lookup(t EntityType) (Descriptor, bool) {
	d, ok := registry[t]
	return d, ok
}

// MustLookup is Lookup that panics on an unknown type.
func MustLookup(t EntityType) Descriptor {
	d, ok := registry[t]
	if !ok {
		panic(fmt.Sprintf("syntax: no descriptor for %s", t))
	}
	return d
}

// Descriptors returns every registered descriptor ordered by type name.
func Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.String() < out[j].Type.String() })
	return out
}

// CapabilitiesOf returns the effective capabilities of d: what the root
// declares, the type reachable through the generating template, study counts
// for templates and instances, guidance text for templates and pre-instances,
// and template lineage for generated variants.
func CapabilitiesOf(d Descriptor) CapabilitySet {
	caps := d.Declared
	switch d.Type.Variant {
	case VariantTemplate:
		caps = caps.With(CapStudyCount, CapGuidanceText)
	case VariantPreInstance:
		caps = caps.With(CapGuidanceText, CapTemplateLineage)
	case VariantInstance:
		caps = caps.With(CapStudyCount, CapTemplateLineage)
	}
	if !d.Type.IsTemplate() {
		if tmpl, ok := registry[d.Type.Template()]; ok && tmpl.Declared.Has(CapType) {
			caps = caps.With(CapType)
		}
	}
	return caps
}

// HasDirectType reports whether the type relationship hangs off the root
// itself rather than off the generating template.
func (d Descriptor) HasDirectType() bool {
	return d.Declared.Has(CapType)
}

// RelationshipTarget describes a patchable relationship set.
type RelationshipTarget struct {
	Capability Capability
	Rel        string
	// TargetLabel is the label a uid must resolve under.
	TargetLabel string
}

var relationshipTargets = []RelationshipTarget{
	{CapIndication, RelHasIndication, "DictionaryTermRoot"},
	{CapCategory, RelHasCategory, "CTTermRoot"},
	{CapSubcategory, RelHasSubcategory, "CTTermRoot"},
	{CapActivity, RelHasActivity, "ActivityRoot"},
	{CapActivityGroup, RelHasActivityGroup, "ActivityGroupRoot"},
	{CapActivitySubgroup, RelHasActivitySubgroup, "ActivitySubGroupRoot"},
	{CapType, RelHasType, "CTTermRoot"},
}

// TargetFor returns the patch target for capability c.
func TargetFor(c Capability) (RelationshipTarget, bool) {
	for _, t := range relationshipTargets {
		if t.Capability == c {
			return t, true
		}
	}
	return RelationshipTarget{}, false
}
