package repositories

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/cypher"
)

var (
	objectiveTemplate = syntax.EntityType{Kind: syntax.KindObjective, Variant: syntax.VariantTemplate}
	criteriaTemplate  = syntax.EntityType{Kind: syntax.KindCriteria, Variant: syntax.VariantTemplate}
	criteriaInstance  = syntax.EntityType{Kind: syntax.KindCriteria, Variant: syntax.VariantInstance}
	footnotePre       = syntax.EntityType{Kind: syntax.KindFootnote, Variant: syntax.VariantPreInstance}
	endpointInstance  = syntax.EntityType{Kind: syntax.KindEndpoint, Variant: syntax.VariantInstance}
)

var fixtureStart = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// rowColumns are the values of one FindQuery record keyed by column.
type rowColumns map[string]any

func findRow(d syntax.Descriptor, uid, library, version string) rowColumns {
	cols := rowColumns{
		cypher.VarLibrary: neo4j.Node{
			ElementId: "lib:" + library,
			Labels:    []string{syntax.LibraryLabel},
			Props:     map[string]any{"name": library, "is_editable": true},
		},
		cypher.VarRoot: neo4j.Node{
			ElementId: "root:" + uid,
			Labels:    []string{d.RootLabel, d.BaseRootLabel},
			Props:     map[string]any{"uid": uid},
		},
		cypher.VarVersionRel: neo4j.Relationship{
			Props: map[string]any{
				"status":             "Final",
				"version":            version,
				"author_id":          "unknown-user",
				"change_description": "Approved",
				"start_date":         neo4j.LocalDateTime(fixtureStart),
			},
		},
		cypher.VarValue: neo4j.Node{
			ElementId: "value:" + uid + ":" + version,
			Labels:    []string{d.ValueLabel, d.BaseValueLabel},
			Props: map[string]any{
				"name":       "<p>Name of " + uid + "</p>",
				"name_plain": "Name of " + uid,
			},
		},
		cypher.VarStudyCount: int64(0),
	}
	for _, col := range cypher.Columns {
		cols[col] = nil
	}
	return cols
}

func (c rowColumns) with(col string, v any) rowColumns {
	c[col] = v
	return c
}

func (c rowColumns) record() *neo4j.Record {
	values := make([]any, len(cypher.ReturnColumns))
	for i, col := range cypher.ReturnColumns {
		values[i] = c[col]
	}
	return NewRecord(cypher.ReturnColumns, values)
}

func intp(n int) *int { return &n }
