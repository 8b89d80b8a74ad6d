package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Condition is a compiled boolean expression and the parameters it uses.
// An empty Expr means no filtering.
type Condition struct {
	Expr   string
	Params map[string]any
	// Reads are the query variables the expression depends on.
	Reads []string
}

// Empty reports whether c filters nothing.
func (c Condition) Empty() bool { return c.Expr == "" }

// reads lists the base variables referenced by the filtered fields. The
// wildcard reads every mapped field.
func reads(filter syntax.FilterBy, fm FieldMap) []string {
	seen := map[string]bool{}
	var out []string
	add := func(f FieldSpec) {
		if b := f.Base(); !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	if el, ok := filter[syntax.WildcardField]; ok && len(el.Values) > 0 {
		for _, f := range fm.specs {
			add(f)
		}
	}
	for _, name := range sortedFilterNames(filter) {
		if f, ok := fm.Lookup(name); ok {
			add(f)
		}
	}
	return out
}

func unsupportedField(kind, name string, fm FieldMap) *errors.AppError {
	return errors.BusinessLogic(fmt.Sprintf("Unsupported %s parameter: %s. Supported parameters are: [%s]",
		kind, name, strings.Join(fm.Names(), ", ")))
}

func sortedFilterNames(filter syntax.FilterBy) []string {
	names := make([]string, 0, len(filter))
	for name := range filter {
		if name != syntax.WildcardField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func allStrings(values []any) bool {
	for _, v := range values {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

func paramName(variable, suffix string, idx int) string {
	return fmt.Sprintf("%s_%s_%d", strings.ReplaceAll(variable, ".", "_"), suffix, idx)
}

// comparison renders one field term. String values are compared case
// insensitively on the string form of the property; anything else is an
// exact match.
func comparison(variable, op, param string, value any) string {
	if _, ok := value.(string); ok {
		return fmt.Sprintf("toLower(toString(%s)) %s toLower($%s)", variable, op, param)
	}
	return fmt.Sprintf("%s = $%s", variable, param)
}

type whereCompiler struct {
	params map[string]any
}

// bind stores value under name, disambiguating aliases that map to the
// same variable.
func (w *whereCompiler) bind(name string, value any) string {
	candidate := name
	for n := 1; ; n++ {
		if _, taken := w.params[candidate]; !taken {
			w.params[candidate] = value
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
}

// CompileWhere turns filter into a boolean expression over the variables of
// fm. The wildcard key searches every mapped field and its terms are always
// OR'd, whatever op says; named fields are joined by op.
func CompileWhere(filter syntax.FilterBy, op syntax.FilterOperator, fm FieldMap) (Condition, error) {
	if len(filter) == 0 {
		return Condition{}, nil
	}
	if op == "" {
		op = syntax.FilterAnd
	}
	if op != syntax.FilterAnd && op != syntax.FilterOr {
		return Condition{}, errors.BusinessLogic(fmt.Sprintf("Unsupported filter operator: %s", op))
	}

	w := &whereCompiler{params: map[string]any{}}

	var wildcard []string
	if el, ok := filter[syntax.WildcardField]; ok && len(el.Values) > 0 {
		operator := "CONTAINS"
		if el.Op == syntax.OpEquals || !allStrings(el.Values) {
			operator = "="
		}
		seen := map[string]bool{}
		for _, f := range fm.specs {
			if seen[f.Variable] {
				continue
			}
			seen[f.Variable] = true
			for i, v := range el.Values {
				p := w.bind(paramName(f.Variable, "generic", i), v)
				wildcard = append(wildcard, comparison(f.Variable, operator, p, v))
			}
		}
	}

	var named []string
	for _, name := range sortedFilterNames(filter) {
		spec, ok := fm.Lookup(name)
		if !ok {
			return Condition{}, unsupportedField("filtering", name, fm)
		}
		terms, err := w.namedTerms(spec, filter[name])
		if err != nil {
			return Condition{}, err
		}
		named = append(named, terms...)
	}

	var expr string
	joiner := " " + string(op) + " "
	switch {
	case len(wildcard) > 0 && len(named) > 0:
		expr = "(" + strings.Join(wildcard, " OR ") + ")" + joiner + "(" + strings.Join(named, joiner) + ")"
	case len(wildcard) > 0:
		expr = "(" + strings.Join(wildcard, " OR ") + ")"
	case len(named) > 0:
		expr = strings.Join(named, joiner)
	}
	if expr == "" {
		return Condition{}, nil
	}
	return Condition{Expr: expr, Params: w.params, Reads: reads(filter, fm)}, nil
}

func (w *whereCompiler) namedTerms(spec FieldSpec, el syntax.FilterElement) ([]string, error) {
	if len(el.Values) == 0 {
		return nil, nil
	}
	if spec.Date {
		switch el.Op {
		case "", syntax.OpEquals:
			terms := make([]string, 0, len(el.Values))
			for i, v := range el.Values {
				p := w.bind(fmt.Sprintf("%s_eq_%d", spec.Name, i), v)
				terms = append(terms, fmt.Sprintf("date(%s) = date($%s)", spec.Variable, p))
			}
			return terms, nil
		case syntax.OpBetween:
			if len(el.Values) != 2 {
				return nil, errors.BusinessLogic(fmt.Sprintf(
					"Filter %s with operator bw needs exactly two values, got %d", spec.Name, len(el.Values)))
			}
			from := w.bind(spec.Name+"_bw_1", el.Values[0])
			to := w.bind(spec.Name+"_bw_2", el.Values[1])
			return []string{fmt.Sprintf("date(%[1]s) >= date($%[2]s) AND date(%[1]s) <= date($%[3]s)",
				spec.Variable, from, to)}, nil
		}
	}

	operator := "CONTAINS"
	switch el.Op {
	case syntax.OpEquals:
		operator = "="
	case syntax.OpIn:
		operator = "IN"
	}
	if !allStrings(el.Values) {
		operator = "="
	}

	if operator == "IN" {
		p := w.bind(strings.ReplaceAll(spec.Variable, ".", "_")+"_non_generic", el.Values)
		return []string{fmt.Sprintf("%s IN $%s", spec.Variable, p)}, nil
	}

	terms := make([]string, 0, len(el.Values))
	for i, v := range el.Values {
		p := w.bind(paramName(spec.Variable, "non_generic", i), v)
		terms = append(terms, comparison(spec.Variable, operator, p, v))
	}
	return terms, nil
}

// CompileSort renders the ORDER BY expression list. An empty sort orders by
// uid descending. Sorting is limited to fields projected by the RETURN
// clause, and a uid tie-break keeps paging stable.
func CompileSort(sortBy []syntax.SortField, fm FieldMap) (string, error) {
	if len(sortBy) == 0 {
		return "root.uid DESC", nil
	}
	keys := make([]string, 0, len(sortBy)+1)
	hasUID := false
	for _, s := range sortBy {
		spec, ok := fm.Lookup(s.Field)
		if !ok || !projected[spec.Base()] {
			return "", errors.BusinessLogic(fmt.Sprintf("Unsupported sorting parameter: %s. Supported parameters are: [%s]",
				s.Field, strings.Join(sortableNames(fm), ", ")))
		}
		dir := "DESC"
		if s.Ascending {
			dir = "ASC"
		}
		if spec.Variable == "root.uid" {
			hasUID = true
		}
		keys = append(keys, spec.Variable+" "+dir)
	}
	if !hasUID {
		keys = append(keys, "root.uid DESC")
	}
	return strings.Join(keys, ", "), nil
}

// sortableNames lists the mapped fields CompileSort accepts, in map order.
func sortableNames(fm FieldMap) []string {
	var names []string
	for _, spec := range fm.Specs() {
		if projected[spec.Base()] {
			names = append(names, spec.Name)
		}
	}
	return names
}

// projected are the variables kept by RETURN DISTINCT and thus usable in ORDER BY.
var projected = map[string]bool{
	VarLibrary: true, VarRoot: true, VarVersionRel: true, VarValue: true, VarStudyCount: true,
}
