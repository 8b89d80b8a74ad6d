package syntax

import "time"

// Library owns syntax roots.
type Library struct {
	Name       string `json:"name" yaml:"name"`
	IsEditable bool   `json:"is_editable" yaml:"is_editable"`
}

// Root is the identity-bearing node of a versioned entity.
type Root struct {
	ElementID             string   `json:"-" yaml:"-"`
	UID                   string   `json:"uid" yaml:"uid"`
	SequenceID            string   `json:"sequence_id,omitempty" yaml:"sequence_id,omitempty"`
	IsConfirmatoryTesting *bool    `json:"is_confirmatory_testing,omitempty" yaml:"is_confirmatory_testing,omitempty"`
	Labels                []string `json:"-" yaml:"-"`
}

// Value is one content snapshot of a root.
type Value struct {
	ElementID    string `json:"-" yaml:"-"`
	Name         string `json:"name" yaml:"name"`
	NamePlain    string `json:"name_plain" yaml:"name_plain"`
	GuidanceText string `json:"guidance_text,omitempty" yaml:"guidance_text,omitempty"`
}

// VersionInfo is the data carried by a HAS_VERSION relationship.
type VersionInfo struct {
	Status            Status     `json:"status" yaml:"status"`
	Version           string     `json:"version" yaml:"version"`
	StartDate         time.Time  `json:"start_date" yaml:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	AuthorID          string     `json:"author_id,omitempty" yaml:"author_id,omitempty"`
	ChangeDescription string     `json:"change_description,omitempty" yaml:"change_description,omitempty"`
}

// TermRef references a dictionary term (indications).
type TermRef struct {
	TermUID string `json:"term_uid" yaml:"term_uid"`
	Name    string `json:"name" yaml:"name"`
}

// CTTermRef references a controlled terminology term with its name and
// attribute values.
type CTTermRef struct {
	TermUID             string `json:"term_uid" yaml:"term_uid"`
	Name                string `json:"name" yaml:"name"`
	NameSentenceCase    string `json:"name_sentence_case" yaml:"name_sentence_case"`
	CodeSubmissionValue string `json:"code_submission_value,omitempty" yaml:"code_submission_value,omitempty"`
	PreferredTerm       string `json:"preferred_term,omitempty" yaml:"preferred_term,omitempty"`
}

// ActivityRef references a node of the activity hierarchy.
type ActivityRef struct {
	UID              string `json:"uid" yaml:"uid"`
	Name             string `json:"name" yaml:"name"`
	NameSentenceCase string `json:"name_sentence_case" yaml:"name_sentence_case"`
}

// TemplateRef describes the template version a pre-instance or instance
// was generated from.
type TemplateRef struct {
	UID          string     `json:"uid" yaml:"uid"`
	SequenceID   string     `json:"sequence_id,omitempty" yaml:"sequence_id,omitempty"`
	Name         string     `json:"name" yaml:"name"`
	GuidanceText string     `json:"guidance_text,omitempty" yaml:"guidance_text,omitempty"`
	LibraryName  string     `json:"library_name,omitempty" yaml:"library_name,omitempty"`
	Type         *CTTermRef `json:"type,omitempty" yaml:"type,omitempty"`
}

// AggregateInput is one normalized result row: every optional relationship
// is an empty slice or a nil pointer, never absent.
type AggregateInput struct {
	Type              EntityType
	Library           Library
	Root              Root
	Value             Value
	Version           VersionInfo
	StudyCount        int
	Indications       []TermRef
	Categories        []CTTermRef
	Subcategories     []CTTermRef
	Activities        []ActivityRef
	ActivityGroups    []ActivityRef
	ActivitySubgroups []ActivityRef
	TemplateType      *CTTermRef
	Template          *TemplateRef
}

// Clone returns a deep copy of in.
func (in AggregateInput) Clone() AggregateInput {
	out := in
	out.Root.Labels = append([]string{}, in.Root.Labels...)
	if in.Root.IsConfirmatoryTesting != nil {
		v := *in.Root.IsConfirmatoryTesting
		out.Root.IsConfirmatoryTesting = &v
	}
	if in.Version.EndDate != nil {
		v := *in.Version.EndDate
		out.Version.EndDate = &v
	}
	out.Indications = append([]TermRef{}, in.Indications...)
	out.Categories = append([]CTTermRef{}, in.Categories...)
	out.Subcategories = append([]CTTermRef{}, in.Subcategories...)
	out.Activities = append([]ActivityRef{}, in.Activities...)
	out.ActivityGroups = append([]ActivityRef{}, in.ActivityGroups...)
	out.ActivitySubgroups = append([]ActivityRef{}, in.ActivitySubgroups...)
	if in.TemplateType != nil {
		v := *in.TemplateType
		out.TemplateType = &v
	}
	if in.Template != nil {
		v := *in.Template
		if in.Template.Type != nil {
			t := *in.Template.Type
			v.Type = &t
		}
		out.Template = &v
	}
	return out
}

// Factory builds the aggregate of one entity kind from a normalized row.
type Factory[T any] interface {
	Build(in AggregateInput) (T, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc[T any] func(in AggregateInput) (T, error)

// Build calls f.
func (f FactoryFunc[T]) Build(in AggregateInput) (T, error) { return f(in) }

// Item is the general-purpose aggregate for every syntax entity type.
type Item struct {
	Type                  EntityType    `json:"-" yaml:"-"`
	UID                   string        `json:"uid" yaml:"uid"`
	SequenceID            string        `json:"sequence_id,omitempty" yaml:"sequence_id,omitempty"`
	Name                  string        `json:"name" yaml:"name"`
	NamePlain             string        `json:"name_plain" yaml:"name_plain"`
	GuidanceText          string        `json:"guidance_text,omitempty" yaml:"guidance_text,omitempty"`
	IsConfirmatoryTesting *bool         `json:"is_confirmatory_testing,omitempty" yaml:"is_confirmatory_testing,omitempty"`
	Library               Library       `json:"library" yaml:"library"`
	Version               VersionInfo   `json:"version" yaml:"version"`
	StudyCount            int           `json:"study_count" yaml:"study_count"`
	Indications           []TermRef     `json:"indications" yaml:"indications"`
	Categories            []CTTermRef   `json:"categories" yaml:"categories"`
	Subcategories         []CTTermRef   `json:"sub_categories" yaml:"sub_categories"`
	Activities            []ActivityRef `json:"activities" yaml:"activities"`
	ActivityGroups        []ActivityRef `json:"activity_groups" yaml:"activity_groups"`
	ActivitySubgroups     []ActivityRef `json:"activity_subgroups" yaml:"activity_subgroups"`
	TemplateType          *CTTermRef    `json:"type,omitempty" yaml:"type,omitempty"`
	Template              *TemplateRef  `json:"template,omitempty" yaml:"template,omitempty"`
}

// ItemFactory builds *Item aggregates. Fields the entity type has no
// capability for are left at their empty defaults.
type ItemFactory struct{}

// Build implements Factory.
func (ItemFactory) Build(in AggregateInput) (*Item, error) {
	d, ok := Lookup(in.Type)
	if !ok {
		return nil, errUnknownType(in.Type)
	}
	caps := CapabilitiesOf(d)
	item := &Item{
		Type:              in.Type,
		UID:               in.Root.UID,
		SequenceID:        in.Root.SequenceID,
		Name:              in.Value.Name,
		NamePlain:         in.Value.NamePlain,
		Library:           in.Library,
		Version:           in.Version,
		Indications:       in.Indications,
		Categories:        in.Categories,
		Subcategories:     in.Subcategories,
		Activities:        in.Activities,
		ActivityGroups:    in.ActivityGroups,
		ActivitySubgroups: in.ActivitySubgroups,
		TemplateType:      in.TemplateType,
		Template:          in.Template,
	}
	if caps.Has(CapGuidanceText) {
		item.GuidanceText = in.Value.GuidanceText
	}
	if caps.Has(CapConfirmatoryTesting) {
		item.IsConfirmatoryTesting = in.Root.IsConfirmatoryTesting
	}
	if caps.Has(CapStudyCount) {
		item.StudyCount = in.StudyCount
	}
	return item, nil
}
