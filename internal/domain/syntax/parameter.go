package syntax

// ParameterTerm is one value inside a complex parameter term: either a
// SimpleParameterTerm or a NumericParameterTerm.
type ParameterTerm interface {
	TermUID() string
	isParameterTerm()
}

// SimpleParameterTerm references a single terminology or value node.
type SimpleParameterTerm struct {
	UID    string   `json:"uid" yaml:"uid"`
	Value  string   `json:"name" yaml:"name"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func (t SimpleParameterTerm) TermUID() string { return t.UID }
func (SimpleParameterTerm) isParameterTerm()  {}

// NumericParameterTerm is a bare numeric value.
type NumericParameterTerm struct {
	UID   string  `json:"uid" yaml:"uid"`
	Value float64 `json:"value" yaml:"value"`
}

func (t NumericParameterTerm) TermUID() string { return t.UID }
func (NumericParameterTerm) isParameterTerm()  {}

// PositionEntry is what one template position holds inside a value set:
// a ParameterTermEntry or a ComplexParameterTerm.
type PositionEntry interface {
	isPositionEntry()
}

// ParameterTermEntry groups the simple terms chosen for one position, joined
// by Conjunction when there are several. Labels are those of the last term
// read for the position.
type ParameterTermEntry struct {
	ParameterName string                `json:"parameter_name" yaml:"parameter_name"`
	Conjunction   string                `json:"conjunction" yaml:"conjunction"`
	Labels        []string              `json:"labels,omitempty" yaml:"labels,omitempty"`
	Terms         []SimpleParameterTerm `json:"terms" yaml:"terms"`
}

func (ParameterTermEntry) isPositionEntry() {}

// ComplexParameterTerm is a reusable composite value built from an ordered
// list of simple and numeric terms.
type ComplexParameterTerm struct {
	UID               string          `json:"uid" yaml:"uid"`
	ParameterTemplate string          `json:"parameter_template" yaml:"parameter_template"`
	Parameters        []ParameterTerm `json:"parameters" yaml:"parameters"`
}

func (ComplexParameterTerm) isPositionEntry() {}

// ParameterTermsBySet maps a value set number to the entries of its
// positions, ordered by position.
type ParameterTermsBySet map[int][]PositionEntry
