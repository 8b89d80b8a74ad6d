package cypher

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Role is the position a clause occupies in a query.
type Role int

const (
	RoleMatch Role = iota
	RoleCall
	RoleWith
	RoleWhere
	RoleReturn
	RoleOrder
	RolePage
)

var roleNames = map[Role]string{
	RoleMatch:  "MATCH",
	RoleCall:   "CALL",
	RoleWith:   "WITH",
	RoleWhere:  "WHERE",
	RoleReturn: "RETURN",
	RoleOrder:  "ORDER BY",
	RolePage:   "SKIP/LIMIT",
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Clause is one piece of query text together with the variables it
// introduces and the ones it needs in scope.
type Clause struct {
	Role     Role
	Text     string
	Binds    []string
	Requires []string
	// Projects marks a WITH or RETURN that replaces the scope with Binds.
	Projects bool
}

// Query is rendered Cypher ready to run.
type Query struct {
	Text   string
	Params map[string]any
}

// Builder assembles clauses and checks that every variable a clause uses is
// bound by an earlier one.
type Builder struct {
	clauses []Clause
	params  map[string]any
	err     error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{params: map[string]any{}}
}

// Add appends c.
func (b *Builder) Add(c Clause) *Builder {
	b.clauses = append(b.clauses, c)
	return b
}

// Match appends a MATCH or OPTIONAL MATCH clause.
func (b *Builder) Match(text string, binds []string, requires ...string) *Builder {
	return b.Add(Clause{Role: RoleMatch, Text: text, Binds: binds, Requires: requires})
}

// Param binds a query parameter. Binding the same name to a different value
// is an error reported by Render.
func (b *Builder) Param(name string, value any) *Builder {
	if prev, ok := b.params[name]; ok && !reflect.DeepEqual(prev, value) {
		if b.err == nil {
			b.err = errors.Internal(fmt.Sprintf("query parameter %q bound twice with different values", name))
		}
		return b
	}
	b.params[name] = value
	return b
}

// Params binds every entry of m.
func (b *Builder) Params(m map[string]any) *Builder {
	for k, v := range m {
		b.Param(k, v)
	}
	return b
}

// Render validates clause order and variable scope and joins the text.
func (b *Builder) Render() (Query, error) {
	if b.err != nil {
		return Query{}, b.err
	}
	scope := map[string]bool{}
	var prev Role = -1
	returned := false
	parts := make([]string, 0, len(b.clauses))

	for i, c := range b.clauses {
		if err := checkOrder(prev, c.Role, returned); err != nil {
			return Query{}, errors.Internal(fmt.Sprintf("clause %d: %s", i, err))
		}
		for _, r := range c.Requires {
			if !scope[r] {
				return Query{}, errors.Internal(fmt.Sprintf("clause %d (%s) uses %q which is not in scope", i, c.Role, r))
			}
		}
		if c.Projects {
			scope = map[string]bool{}
		}
		for _, v := range c.Binds {
			scope[v] = true
		}
		if c.Role == RoleReturn {
			returned = true
		}
		prev = c.Role
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	if !returned {
		return Query{}, errors.Internal("query has no RETURN clause")
	}

	params := make(map[string]any, len(b.params))
	for k, v := range b.params {
		params[k] = v
	}
	return Query{Text: strings.Join(parts, "\n"), Params: params}, nil
}

func checkOrder(prev, cur Role, returned bool) error {
	if returned {
		switch {
		case cur == RoleOrder && prev == RoleReturn:
			return nil
		case cur == RolePage && (prev == RoleReturn || prev == RoleOrder):
			return nil
		}
		return fmt.Errorf("%s cannot follow %s", cur, prev)
	}
	switch cur {
	case RoleWhere:
		if prev != RoleMatch && prev != RoleWith {
			return fmt.Errorf("WHERE must follow MATCH or WITH, not %s", prev)
		}
	case RoleOrder, RolePage:
		return fmt.Errorf("%s before RETURN", cur)
	}
	return nil
}
