//go:build integration

// Integration tests against a real Neo4j server. They require Docker and are
// gated behind the "integration" build tag.
package repositories_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/config"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/repositories"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

const neo4jPassword = "integration-secret"

// startNeo4j launches a Neo4j 5 container and returns a connected driver.
func startNeo4j(t *testing.T) *driver.Driver {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5-community",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + neo4jPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Started."),
			wait.ForListeningPort("7687/tcp"),
		).WithDeadline(120 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	d, err := driver.NewDriver(config.Neo4jConfig{
		URI:                   fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Username:              "neo4j",
		Password:              neo4jPassword,
		Database:              "neo4j",
		MaxConnectionPoolSize: 5,
		ConnectTimeout:        30 * time.Second,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	seed(t, d)
	return d
}

// seed creates one objective template with a draft and a final version and
// one dictionary term to patch in.
func seed(t *testing.T, d *driver.Driver) {
	t.Helper()
	ctx := context.Background()
	_, err := d.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx, `
CREATE (lib:Library {name: "Sponsor", is_editable: true})
CREATE (root:ObjectiveTemplateRoot:SyntaxTemplateRoot {uid: "ObjectiveTemplate_000001", sequence_id: "O1"})
CREATE (draft:ObjectiveTemplateValue:SyntaxTemplateValue {name: "<p>Objective [Intervention]</p>", name_plain: "Objective [Intervention]"})
CREATE (final:ObjectiveTemplateValue:SyntaxTemplateValue {name: "<p>Primary objective [Intervention]</p>", name_plain: "Primary objective [Intervention]"})
CREATE (lib)-[:CONTAINS_SYNTAX_TEMPLATE]->(root)
CREATE (root)-[:HAS_VERSION {status: "Draft", version: "0.1", start_date: datetime("2024-01-01T10:00:00Z"), end_date: datetime("2024-02-01T10:00:00Z"), author_id: "author-1"}]->(draft)
CREATE (root)-[:HAS_VERSION {status: "Final", version: "1.0", start_date: datetime("2024-02-01T10:00:00Z"), author_id: "author-1"}]->(final)
CREATE (root)-[:LATEST_DRAFT]->(draft)
CREATE (root)-[:LATEST_FINAL]->(final)
CREATE (root)-[:LATEST]->(final)
CREATE (term:DictionaryTermRoot {uid: "DictionaryTerm_000001"})-[:LATEST]->(:DictionaryTermValue {name: "Migraine"})`, nil)
		return nil, err
	})
	require.NoError(t, err)
}

func objectiveTemplates(t *testing.T, d *driver.Driver) *repositories.SyntaxRepository[*syntax.Item] {
	t.Helper()
	r, err := repositories.NewSyntaxRepository[*syntax.Item](d,
		syntax.EntityType{Kind: syntax.KindObjective, Variant: syntax.VariantTemplate},
		syntax.ItemFactory{}, logging.NewNopLogger())
	require.NoError(t, err)
	return r
}

func TestSyntaxRepository_Neo4j(t *testing.T) {
	d := startNeo4j(t)
	repo := objectiveTemplates(t, d)
	ctx := context.Background()
	const uid = "ObjectiveTemplate_000001"

	t.Run("fetch latest", func(t *testing.T) {
		got, err := repo.FetchByUID(ctx, uid, syntax.FetchOptions{})
		require.NoError(t, err)
		assert.True(t, got.IsReadOnly())
		assert.Equal(t, "1.0", got.Aggregate.Version.Version)
		assert.Equal(t, syntax.StatusFinal, got.Aggregate.Version.Status)
		assert.Equal(t, "Sponsor", got.Aggregate.Library.Name)
		assert.Equal(t, "O1", got.Aggregate.SequenceID)
	})

	t.Run("fetch by status", func(t *testing.T) {
		got, err := repo.FetchByUID(ctx, uid, syntax.FetchOptions{Status: syntax.StatusDraft})
		require.NoError(t, err)
		assert.Equal(t, "0.1", got.Aggregate.Version.Version)
		require.NotNil(t, got.Aggregate.Version.EndDate)
	})

	t.Run("fetch wrong library", func(t *testing.T) {
		_, err := repo.FetchByUID(ctx, uid, syntax.FetchOptions{LibraryName: "Other"})
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("history newest first", func(t *testing.T) {
		versions, err := repo.FetchHistory(ctx, uid, syntax.FetchOptions{})
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, "1.0", versions[0].Aggregate.Version.Version)
		assert.Equal(t, "0.1", versions[1].Aggregate.Version.Version)
	})

	t.Run("list with total", func(t *testing.T) {
		page, err := repo.List(ctx, syntax.ListOptions{PageNumber: 1, PageSize: 10, TotalCount: true})
		require.NoError(t, err)
		assert.Equal(t, 1, page.TotalCount)
		require.Len(t, page.Items, 1)
		assert.Equal(t, uid, page.Items[0].Aggregate.UID)
		assert.True(t, page.Items[0].IsReadOnly())
	})

	t.Run("headers", func(t *testing.T) {
		values, err := repo.ListDistinctHeaderValues(ctx, syntax.HeaderOptions{FieldName: "name", ResultCount: 10})
		require.NoError(t, err)
		assert.Equal(t, []any{"<p>Primary objective [Intervention]</p>"}, values)
	})

	t.Run("patch indications", func(t *testing.T) {
		require.NoError(t, repo.PatchIndications(ctx, uid, []string{"DictionaryTerm_000001"}))
		got, err := repo.FetchByUID(ctx, uid, syntax.FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, []syntax.TermRef{{TermUID: "DictionaryTerm_000001", Name: "Migraine"}}, got.Aggregate.Indications)

		err = repo.PatchIndications(ctx, uid, []string{"DictionaryTerm_404"})
		assert.True(t, errors.IsCode(err, errors.ErrCodeRelatedNotFound))

		require.NoError(t, repo.PatchIndications(ctx, uid, nil))
		got, err = repo.FetchByUID(ctx, uid, syntax.FetchOptions{})
		require.NoError(t, err)
		assert.Empty(t, got.Aggregate.Indications)
	})

	t.Run("fetch for update", func(t *testing.T) {
		got, err := repo.FetchByUID(ctx, uid, syntax.FetchOptions{ForUpdate: true})
		require.NoError(t, err)
		assert.False(t, got.IsReadOnly())
		_, ok := got.Baseline()
		assert.True(t, ok)
		assert.NoError(t, got.Release(ctx))
	})
}
