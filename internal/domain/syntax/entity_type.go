// Package syntax models the versioned syntax entities (objectives, endpoints,
// criteria, footnotes and activity instructions) in their template,
// pre-instance and instance variants, together with the capability flags that
// decide which optional relationships each variant carries.
package syntax

import (
	"fmt"
	"strings"
)

// Kind is the family a syntax entity belongs to.
type Kind string

const (
	KindObjective           Kind = "objective"
	KindEndpoint            Kind = "endpoint"
	KindCriteria            Kind = "criteria"
	KindFootnote            Kind = "footnote"
	KindActivityInstruction Kind = "activity_instruction"
)

// Kinds lists every Kind in a stable order.
var Kinds = []Kind{KindObjective, KindEndpoint, KindCriteria, KindFootnote, KindActivityInstruction}

// Variant distinguishes a template from what is generated out of it.
type Variant string

const (
	VariantTemplate    Variant = "template"
	VariantPreInstance Variant = "pre_instance"
	VariantInstance    Variant = "instance"
)

// Variants lists every Variant in a stable order.
var Variants = []Variant{VariantTemplate, VariantPreInstance, VariantInstance}

// EntityType is the tag the repository dispatches on.
type EntityType struct {
	Kind    Kind
	Variant Variant
}

// String renders e.g. "objective_template" or "footnote_instance".
func (t EntityType) String() string {
	return string(t.Kind) + "_" + string(t.Variant)
}

// ParseEntityType is the inverse of EntityType.String.
func ParseEntityType(s string) (EntityType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range Variants {
		suffix := "_" + string(v)
		if !strings.HasSuffix(s, suffix) {
			continue
		}
		k := Kind(strings.TrimSuffix(s, suffix))
		for _, known := range Kinds {
			if k == known {
				return EntityType{Kind: k, Variant: v}, nil
			}
		}
	}
	return EntityType{}, fmt.Errorf("unknown entity type %q", s)
}

// IsTemplate reports whether t is a template variant.
func (t EntityType) IsTemplate() bool { return t.Variant == VariantTemplate }

// IsPreInstance reports whether t is a pre-instance variant.
func (t EntityType) IsPreInstance() bool { return t.Variant == VariantPreInstance }

// IsInstance reports whether t is an instance variant.
func (t EntityType) IsInstance() bool { return t.Variant == VariantInstance }

// Template returns the template type t was generated from (t itself for templates).
func (t EntityType) Template() EntityType {
	return EntityType{Kind: t.Kind, Variant: VariantTemplate}
}

// Status is the lifecycle status carried by a version relationship.
type Status string

const (
	StatusDraft   Status = "Draft"
	StatusFinal   Status = "Final"
	StatusRetired Status = "Retired"
)

// ParseStatus accepts the status names case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draft":
		return StatusDraft, nil
	case "final":
		return StatusFinal, nil
	case "retired":
		return StatusRetired, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}
