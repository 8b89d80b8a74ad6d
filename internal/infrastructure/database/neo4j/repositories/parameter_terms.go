package repositories

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// ParameterRow is one template position as read from the graph, with the
// terms chosen for it across every value set.
type ParameterRow struct {
	Position      int
	ParameterName string
	Terms         []ParameterTermRow
	Conjunction   string
}

// ParameterTermRow is one term assigned to a position. Definition and
// Template are set only when the term is a complex parameter value.
type ParameterTermRow struct {
	SetNumber     *int
	Position      int
	Index         *int
	ParameterName string
	ParameterTerm string
	ParameterUID  string
	Definition    string
	Template      string
	Labels        []string
}

func (t ParameterTermRow) set() int {
	if t.SetNumber == nil {
		return 0
	}
	return *t.SetNumber
}

func (t ParameterTermRow) index() int {
	if t.Index == nil {
		return 0
	}
	return *t.Index
}

// ComplexResolver expands a complex parameter value into the uid of its
// parameter template and its ordered sub-terms.
type ComplexResolver interface {
	ResolveComplex(ctx context.Context, complexRootUID string) (definitionUID string, params []syntax.ParameterTerm, err error)
}

type positionGroup struct {
	parameterName string
	definition    string
	template      string
	conjunction   string
	labels        []string
	terms         []ParameterTermRow
}

// GroupParameterTerms rebuilds value set → position → terms from the flat
// per-position rows. Positions without terms still produce an empty entry
// in set 0.
func GroupParameterTerms(ctx context.Context, rows []ParameterRow, resolver ComplexResolver) (syntax.ParameterTermsBySet, error) {
	var flat []ParameterTermRow
	for _, row := range rows {
		if len(row.Terms) == 0 {
			flat = append(flat, ParameterTermRow{Position: row.Position, ParameterName: row.ParameterName})
		}
		flat = append(flat, row.Terms...)
	}

	groups := make(map[int]map[int]*positionGroup)
	for _, t := range flat {
		set := t.set()
		if groups[set] == nil {
			groups[set] = make(map[int]*positionGroup)
		}
		g, ok := groups[set][t.Position]
		if !ok {
			g = &positionGroup{}
			groups[set][t.Position] = g
		}
		g.parameterName = t.ParameterName
		g.definition = t.Definition
		g.template = t.Template
		g.labels = t.Labels
		g.conjunction = conjunctionFor(rows, t.Position, set)
		g.terms = append(g.terms, t)
	}

	out := make(syntax.ParameterTermsBySet, len(groups))
	for set, byPosition := range groups {
		positions := make([]int, 0, len(byPosition))
		for p := range byPosition {
			positions = append(positions, p)
		}
		sort.Ints(positions)

		entries := make([]syntax.PositionEntry, 0, len(positions))
		for _, p := range positions {
			g := byPosition[p]
			if g.definition != "" {
				entry, err := resolveComplex(ctx, resolver, g)
				if err != nil {
					return nil, err
				}
				entries = append(entries, entry)
				continue
			}
			entries = append(entries, simpleEntry(g))
		}
		out[set] = entries
	}
	return out, nil
}

// conjunctionFor returns the conjunction of the first row at position that
// has no terms or whose first term belongs to set.
func conjunctionFor(rows []ParameterRow, position, set int) string {
	for _, r := range rows {
		if r.Position != position {
			continue
		}
		if len(r.Terms) == 0 || r.Terms[0].set() == set {
			return r.Conjunction
		}
	}
	return ""
}

func simpleEntry(g *positionGroup) syntax.ParameterTermEntry {
	sorted := append([]ParameterTermRow{}, g.terms...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].index() < sorted[j].index() })

	terms := make([]syntax.SimpleParameterTerm, 0, len(sorted))
	for _, t := range sorted {
		if t.ParameterUID == "" {
			continue
		}
		terms = append(terms, syntax.SimpleParameterTerm{UID: t.ParameterUID, Value: t.ParameterTerm, Labels: t.Labels})
	}
	return syntax.ParameterTermEntry{
		ParameterName: g.parameterName,
		Conjunction:   g.conjunction,
		Labels:        g.labels,
		Terms:         terms,
	}
}

func resolveComplex(ctx context.Context, resolver ComplexResolver, g *positionGroup) (syntax.ComplexParameterTerm, error) {
	if resolver == nil {
		return syntax.ComplexParameterTerm{}, errors.Internal("complex parameter term found but no resolver configured")
	}
	defUID, params, err := resolver.ResolveComplex(ctx, g.terms[0].ParameterUID)
	if err != nil {
		return syntax.ComplexParameterTerm{}, err
	}
	if params == nil {
		params = []syntax.ParameterTerm{}
	}
	return syntax.ComplexParameterTerm{UID: defUID, ParameterTemplate: g.template, Parameters: params}, nil
}

// txComplexResolver resolves complex values inside an open transaction.
type txComplexResolver struct {
	tx driver.Transaction
}

const complexValueQuery = `
MATCH (complex_root:TemplateParameterComplexRoot {uid: $uid})<-[:HAS_COMPLEX_VALUE]-(definition:ParameterTemplateRoot)
MATCH (complex_root)-[:LATEST_FINAL]->(complex_value:TemplateParameterComplexValue)
OPTIONAL MATCH (complex_value)-[u:USES_PARAMETER]->(item:TemplateParameterTermRoot)-[:LATEST_FINAL]->(item_value)
RETURN definition.uid AS definition_uid,
    u.position AS position,
    item.uid AS item_uid,
    CASE WHEN item_value:NumericValue THEN item_value.value ELSE null END AS numeric_value,
    coalesce(item_value.name_sentence_case, item_value.name) AS item_name
ORDER BY position`

type complexItem struct {
	definitionUID string
	uid           string
	numeric       *float64
	name          string
}

func (r txComplexResolver) ResolveComplex(ctx context.Context, uid string) (string, []syntax.ParameterTerm, error) {
	res, err := r.tx.Run(ctx, complexValueQuery, map[string]any{"uid": uid})
	if err != nil {
		return "", nil, err
	}
	items, err := driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (complexItem, error) {
		def, _ := rec.Get("definition_uid")
		itemUID, _ := rec.Get("item_uid")
		name, _ := rec.Get("item_name")
		num, _ := rec.Get("numeric_value")
		it := complexItem{
			definitionUID: stringOf(def),
			uid:           stringOf(itemUID),
			name:          stringOf(name),
		}
		switch n := num.(type) {
		case float64:
			it.numeric = &n
		case int64:
			f := float64(n)
			it.numeric = &f
		}
		return it, nil
	})
	if err != nil {
		return "", nil, err
	}
	if len(items) == 0 {
		return "", nil, errors.NotFound(fmt.Sprintf("Complex parameter value with UID '%s' doesn't exist.", uid))
	}

	params := make([]syntax.ParameterTerm, 0, len(items))
	for _, it := range items {
		if it.uid == "" {
			continue
		}
		if it.numeric != nil {
			params = append(params, syntax.NumericParameterTerm{UID: it.uid, Value: *it.numeric})
			continue
		}
		params = append(params, syntax.SimpleParameterTerm{UID: it.uid, Value: it.name})
	}
	return items[0].definitionUID, params, nil
}

// parameterTermsQuery reads the terms assigned to each position of the
// template behind d's root. Templates read their default values.
func parameterTermsQuery(d syntax.Descriptor) string {
	templateMatch := "WITH root AS template_root, value"
	if !d.Type.IsTemplate() {
		tmpl := syntax.MustLookup(d.Type.Template())
		templateMatch = fmt.Sprintf("MATCH (root)%s(template_root:%s)", d.LineageRel(), tmpl.RootLabel)
	}
	return fmt.Sprintf(`MATCH (root:%[1]s {uid: $uid})-[:LATEST]->(value)
%[2]s
MATCH (template_root)-[u:USES_PARAMETER]->(param:TemplateParameter)
WITH value, param.name AS parameter, u.position AS position
OPTIONAL MATCH (value)-[rel:%[3]s]->(term_root:TemplateParameterTermRoot)
WHERE rel.position = position
WITH value, parameter, position, rel, term_root,
    head([(term_root)-[:LATEST_FINAL]->(term_value) | coalesce(term_value.name_sentence_case, term_value.name)]) AS term_name,
    head([(term_root)<-[:HAS_PARAMETER_TERM]-(term_parameter) | term_parameter.name]) AS term_parameter
OPTIONAL MATCH (definition_value:ParameterTemplateValue)<-[:LATEST_FINAL]-(definition:ParameterTemplateRoot)-[:HAS_COMPLEX_VALUE]->(term_root)
WITH value, parameter, position, coalesce(rel.set_number, 0) AS set_number,
    collect(DISTINCT CASE WHEN term_root IS NULL THEN NULL ELSE {
        set_number: coalesce(rel.set_number, 0),
        position: rel.position,
        index: rel.index,
        parameter_name: term_parameter,
        parameter_term: term_name,
        parameter_uid: term_root.uid,
        definition: definition.uid,
        template: definition_value.template_string,
        labels: labels(term_root)
    } END) AS terms
OPTIONAL MATCH (value)-[con_rel:HAS_CONJUNCTION]->(con:Conjunction)
WHERE con_rel.position = position AND coalesce(con_rel.set_number, 0) = set_number
RETURN DISTINCT position, parameter, terms, coalesce(con.string, "") AS conjunction, set_number
ORDER BY position, set_number`, d.RootLabel, templateMatch, d.ParameterRel())
}

func parameterRow(rec *neo4j.Record) (ParameterRow, error) {
	pos, _ := rec.Get("position")
	name, _ := rec.Get("parameter")
	terms, _ := rec.Get("terms")
	con, _ := rec.Get("conjunction")

	p, _ := asInt(pos)
	row := ParameterRow{Position: p, ParameterName: stringOf(name), Conjunction: stringOf(con)}
	items, _ := terms.([]any)
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		t := ParameterTermRow{
			SetNumber:     asIntPtr(m["set_number"]),
			Index:         asIntPtr(m["index"]),
			ParameterName: propString(m, "parameter_name"),
			ParameterTerm: propString(m, "parameter_term"),
			ParameterUID:  propString(m, "parameter_uid"),
			Definition:    propString(m, "definition"),
			Template:      propString(m, "template"),
			Labels:        stringSlice(m["labels"]),
		}
		t.Position, _ = asInt(m["position"])
		row.Terms = append(row.Terms, t)
	}
	return row, nil
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
