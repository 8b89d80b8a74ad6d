package syntax

import "strings"

// Capability is a single optional feature of an entity type.
type Capability uint16

const (
	CapIndication Capability = 1 << iota
	CapCategory
	CapSubcategory
	CapActivity
	CapActivityGroup
	CapActivitySubgroup
	CapType
	CapConfirmatoryTesting
	CapStudyCount
	CapGuidanceText
	// CapTemplateLineage marks variants generated from a template.
	CapTemplateLineage
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapIndication, "indication"},
	{CapCategory, "category"},
	{CapSubcategory, "subcategory"},
	{CapActivity, "activity"},
	{CapActivityGroup, "activity_group"},
	{CapActivitySubgroup, "activity_subgroup"},
	{CapType, "type"},
	{CapConfirmatoryTesting, "confirmatory_testing"},
	{CapStudyCount, "study_count"},
	{CapGuidanceText, "guidance_text"},
	{CapTemplateLineage, "template_lineage"},
}

func (c Capability) String() string {
	for _, cn := range capabilityNames {
		if cn.cap == c {
			return cn.name
		}
	}
	return "unknown"
}

// CapabilitySet is a bitset of capabilities.
type CapabilitySet uint16

// NewCapabilitySet builds a set from caps.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether c is in s. The zero Capability is never contained.
func (s CapabilitySet) Has(c Capability) bool {
	return c != 0 && s&CapabilitySet(c) == CapabilitySet(c)
}

// With returns s plus caps.
func (s CapabilitySet) With(caps ...Capability) CapabilitySet {
	return s | NewCapabilitySet(caps...)
}

// List returns the capabilities in declaration order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(capabilityNames))
	for _, cn := range capabilityNames {
		if s.Has(cn.cap) {
			out = append(out, cn.cap)
		}
	}
	return out
}

func (s CapabilitySet) String() string {
	caps := s.List()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}
