package repositories

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/config"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

const (
	findMarker  = "RETURN DISTINCT"
	countMarker = "RETURN count(DISTINCT ver_rel) AS total"
	lockMarker  = "SET root.__WRITE_LOCK__ = null"
)

type observed struct {
	entityType string
	operation  string
	rows       int
	err        error
}

type recordingObserver struct {
	queries []observed
	locks   []error
}

func (o *recordingObserver) ObserveQuery(entityType, operation string, _ time.Duration, rows int, err error) {
	o.queries = append(o.queries, observed{entityType, operation, rows, err})
}

func (o *recordingObserver) ObserveLock(_ string, _ time.Duration, err error) {
	o.locks = append(o.locks, err)
}

type releasingLocker struct {
	acquired int
	released int
}

func (l *releasingLocker) Acquire(context.Context, syntax.Descriptor, string) (ReleaseFunc, error) {
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

func (l *releasingLocker) LockInTx(context.Context, driver.Transaction, syntax.Descriptor, string) error {
	return nil
}

type SyntaxRepoTestSuite struct {
	suite.Suite
	mockDriver *MockInfraDriver
	mockTx     *MockInfraTransaction
	observer   *recordingObserver
	log        logging.Logger
}

func (s *SyntaxRepoTestSuite) SetupTest() {
	s.mockDriver, s.mockTx = SetupMockDriver(s.T())
	s.observer = &recordingObserver{}
	s.log = logging.NewNopLogger()
}

func (s *SyntaxRepoTestSuite) newRepo(t syntax.EntityType, opts ...Option) *SyntaxRepository[*syntax.Item] {
	opts = append([]Option{WithObserver(s.observer)}, opts...)
	repo, err := NewSyntaxRepository[*syntax.Item](s.mockDriver, t, syntax.ItemFactory{}, s.log, opts...)
	s.Require().NoError(err)
	return repo
}

func (s *SyntaxRepoTestSuite) TestNewSyntaxRepository_UnknownType() {
	_, err := NewSyntaxRepository[*syntax.Item](s.mockDriver, syntax.EntityType{Kind: "protocol", Variant: syntax.VariantTemplate}, syntax.ItemFactory{}, s.log)
	s.Require().Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeUnknownKind))
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_LatestIsReadOnly() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)

	repo := s.newRepo(objectiveTemplate)
	got, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{})
	s.Require().NoError(err)

	s.Equal("ObjectiveTemplate_000001", got.Aggregate.UID)
	s.Equal("Sponsor", got.Aggregate.Library.Name)
	s.True(got.IsReadOnly())
	s.Equal("Sponsor", got.Closure.LibraryName)
	_, hasBaseline := got.Baseline()
	s.False(hasBaseline)
	s.True(errors.IsCode(got.RequireWritable(), errors.ErrCodeBusinessLogic))

	s.mockDriver.AssertNotCalled(s.T(), "ExecuteWrite", mock.Anything, mock.Anything)
	s.Require().Len(s.observer.queries, 1)
	s.Equal(observed{"objective_template", OpFetch, 1, nil}, s.observer.queries[0])
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_PassesSelection() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.MatchedBy(func(p map[string]any) bool {
		return p["uid"] == "ObjectiveTemplate_000001" && p["version"] == "1.0"
	})).Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)

	repo := s.newRepo(objectiveTemplate)
	got, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{Status: syntax.StatusFinal, Version: "1.0"})
	s.Require().NoError(err)
	s.Equal("1.0", got.Aggregate.Version.Version)
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_NotFound() {
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).Return(Results(), nil)

	repo := s.newRepo(objectiveTemplate)
	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_404", syntax.FetchOptions{})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
	s.Contains(err.Error(), "No objective template with UID 'ObjectiveTemplate_404' found")
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_OtherLibraryIsNotFound() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)

	repo := s.newRepo(objectiveTemplate)
	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{LibraryName: "User Defined"})
	s.True(errors.IsNotFound(err))
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ConcurrentDeleteIsVersioningConflict() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").with("root", nil).record()), nil)

	repo := s.newRepo(objectiveTemplate)
	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{})
	s.True(errors.IsVersioningConflict(err))
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateLocksFirst() {
	d := syntax.MustLookup(objectiveTemplate)
	var order []string
	s.mockTx.On("Run", mock.Anything, QueryContaining(lockMarker), mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "lock") }).
		Return(Results(), nil)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "find") }).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)

	repo := s.newRepo(objectiveTemplate)
	got, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true})
	s.Require().NoError(err)

	s.Equal([]string{"lock", "find"}, order)
	s.False(got.IsReadOnly())
	s.NoError(got.RequireWritable())
	baseline, ok := got.Baseline()
	s.Require().True(ok)
	s.Equal("ObjectiveTemplate_000001", baseline.UID())
	s.Equal("root:ObjectiveTemplate_000001", got.Closure.RootElementID)
	s.Nil(got.Closure.Release)
	s.Equal([]error{nil}, s.observer.locks)
	s.mockDriver.AssertNotCalled(s.T(), "ExecuteRead", mock.Anything, mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateWithVersionNotImplemented() {
	repo := s.newRepo(objectiveTemplate)

	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true, Version: "1.0"})
	s.True(errors.IsCode(err, errors.ErrCodeNotImplemented))
	_, err = repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true, Status: syntax.StatusDraft})
	s.True(errors.IsCode(err, errors.ErrCodeNotImplemented))

	s.mockDriver.AssertNotCalled(s.T(), "ExecuteWrite", mock.Anything, mock.Anything)
	s.mockTx.AssertNotCalled(s.T(), "Run", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateReleasesOnFailure() {
	locker := &releasingLocker{}
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(nil, stderrors.New("connection reset"))

	repo := s.newRepo(objectiveTemplate, WithLocker(locker))
	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true})
	s.Require().Error(err)
	s.Equal(1, locker.released)
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateKeepsRelease() {
	d := syntax.MustLookup(objectiveTemplate)
	locker := &releasingLocker{}
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)

	repo := s.newRepo(objectiveTemplate, WithLocker(locker))
	got, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true})
	s.Require().NoError(err)
	s.Equal(0, locker.released)

	s.NoError(got.Release(context.Background()))
	s.NoError(got.Release(context.Background()))
	s.Equal(1, locker.released)
}

// retryingDriver runs every write transaction twice, as the driver does
// after a transient commit failure.
func (s *SyntaxRepoTestSuite) retryingDriver(commitErr error) *MockInfraDriver {
	d := new(MockInfraDriver)
	d.On("ExecuteWrite", mock.Anything, mock.Anything).Return(func(_ context.Context, work driver.TransactionWork) (interface{}, error) {
		if _, err := work(s.mockTx); err != nil {
			return nil, err
		}
		out, err := work(s.mockTx)
		if commitErr != nil {
			return nil, commitErr
		}
		return out, err
	})
	return d
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateSurvivesTransactionRetry() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)
	mr, locker := newAdvisoryLocker(s.T())
	const key = "mdr:test:ObjectiveTemplateRoot:ObjectiveTemplate_000001"

	repo, err := NewSyntaxRepository[*syntax.Item](s.retryingDriver(nil), objectiveTemplate, syntax.ItemFactory{}, s.log,
		WithLocker(locker), WithObserver(s.observer))
	s.Require().NoError(err)

	got, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true})
	s.Require().NoError(err)
	s.False(got.IsReadOnly())
	s.True(mr.Exists(key))
	s.Equal([]error{nil}, s.observer.locks)

	s.Require().NoError(got.Release(context.Background()))
	s.False(mr.Exists(key))
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateReleasesWhenCommitFails() {
	d := syntax.MustLookup(objectiveTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).
		Return(Results(findRow(d, "ObjectiveTemplate_000001", "Sponsor", "1.0").record()), nil)
	locker := &releasingLocker{}

	repo, err := NewSyntaxRepository[*syntax.Item](s.retryingDriver(stderrors.New("commit failed")), objectiveTemplate,
		syntax.ItemFactory{}, s.log, WithLocker(locker))
	s.Require().NoError(err)

	_, err = repo.FetchByUID(context.Background(), "ObjectiveTemplate_000001", syntax.FetchOptions{ForUpdate: true})
	s.Require().Error(err)
	s.Equal(1, locker.acquired)
	s.Equal(1, locker.released)
}

func (s *SyntaxRepoTestSuite) TestFetchByUID_ForUpdateNotFoundReleases() {
	locker := &releasingLocker{}
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).Return(Results(), nil)

	repo := s.newRepo(objectiveTemplate, WithLocker(locker))
	_, err := repo.FetchByUID(context.Background(), "ObjectiveTemplate_404", syntax.FetchOptions{ForUpdate: true})
	s.True(errors.IsNotFound(err))
	s.Equal(1, locker.released)
}

func (s *SyntaxRepoTestSuite) TestFetchHistory() {
	d := syntax.MustLookup(endpointInstance)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker, "ver_rel.start_date DESC"), mock.Anything).
		Return(Results(
			findRow(d, "Endpoint_000001", "User Defined", "2.0").record(),
			findRow(d, "Endpoint_000001", "User Defined", "1.0").record(),
		), nil)

	repo := s.newRepo(endpointInstance)
	items, err := repo.FetchHistory(context.Background(), "Endpoint_000001", syntax.FetchOptions{})
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("2.0", items[0].Aggregate.Version.Version)
	s.Equal("1.0", items[1].Aggregate.Version.Version)
	for _, it := range items {
		s.True(it.IsReadOnly())
	}
}

func (s *SyntaxRepoTestSuite) TestFetchHistory_ForUpdateNotImplemented() {
	repo := s.newRepo(endpointInstance)
	_, err := repo.FetchHistory(context.Background(), "Endpoint_000001", syntax.FetchOptions{ForUpdate: true})
	s.True(errors.IsCode(err, errors.ErrCodeNotImplemented))
}

func (s *SyntaxRepoTestSuite) TestList_PageAndTotal() {
	d := syntax.MustLookup(criteriaTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker, "SKIP $skip LIMIT $page_size"), mock.MatchedBy(func(p map[string]any) bool {
		return p["skip"] == 2 && p["page_size"] == 2
	})).Return(Results(
		findRow(d, "CriteriaTemplate_000003", "Sponsor", "1.0").record(),
		findRow(d, "CriteriaTemplate_000004", "Sponsor", "1.0").record(),
	), nil)
	s.mockTx.On("Run", mock.Anything, QueryContaining(countMarker), mock.Anything).
		Return(Results(NewRecord([]string{"total"}, []any{int64(7)})), nil)

	repo := s.newRepo(criteriaTemplate)
	page, err := repo.List(context.Background(), syntax.ListOptions{PageNumber: 2, PageSize: 2, TotalCount: true})
	s.Require().NoError(err)
	s.Equal(7, page.TotalCount)
	s.Require().Len(page.Items, 2)
	s.Equal("CriteriaTemplate_000003", page.Items[0].Aggregate.UID)
	for _, it := range page.Items {
		s.True(it.IsReadOnly())
		s.Nil(it.Closure.Baseline)
	}
}

func (s *SyntaxRepoTestSuite) TestList_EmptyWithoutCount() {
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).Return(Results(), nil)

	repo := s.newRepo(criteriaTemplate)
	page, err := repo.List(context.Background(), syntax.ListOptions{PageNumber: 1, PageSize: 10})
	s.Require().NoError(err)
	s.NotNil(page.Items)
	s.Empty(page.Items)
	s.Zero(page.TotalCount)
	s.mockTx.AssertNotCalled(s.T(), "Run", mock.Anything, QueryContaining(countMarker), mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestList_LibraryPostFilter() {
	d := syntax.MustLookup(criteriaTemplate)
	s.mockTx.On("Run", mock.Anything, QueryContaining(findMarker), mock.Anything).Return(Results(
		findRow(d, "CriteriaTemplate_000001", "Sponsor", "1.0").record(),
		findRow(d, "CriteriaTemplate_000002", "User Defined", "1.0").record(),
	), nil)

	repo := s.newRepo(criteriaTemplate)
	page, err := repo.List(context.Background(), syntax.ListOptions{PageNumber: 1, LibraryName: "User Defined"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("CriteriaTemplate_000002", page.Items[0].Aggregate.UID)
	s.Equal("User Defined", page.Items[0].Closure.LibraryName)
}

func (s *SyntaxRepoTestSuite) TestList_InvalidPaging() {
	repo := s.newRepo(criteriaTemplate, WithLimits(config.RepositoryConfig{MaxPageSize: 50, MaxSkip: 100}))

	cases := []syntax.ListOptions{
		{PageNumber: 0, PageSize: 10},
		{PageNumber: 1, PageSize: -1},
		{PageNumber: 1, PageSize: 51},
		{PageNumber: 4, PageSize: 50},
	}
	for _, opts := range cases {
		_, err := repo.List(context.Background(), opts)
		s.True(errors.IsCode(err, errors.ErrCodeBadRequest), "%+v", opts)
	}
	s.mockDriver.AssertNotCalled(s.T(), "ExecuteRead", mock.Anything, mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestList_UnsupportedFilterField() {
	repo := s.newRepo(objectiveTemplate)
	_, err := repo.List(context.Background(), syntax.ListOptions{
		PageNumber: 1,
		FilterBy:   syntax.FilterBy{"activities.name": {Values: []any{"x"}}},
	})
	s.Require().Error(err)
	s.mockDriver.AssertNotCalled(s.T(), "ExecuteRead", mock.Anything, mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestListDistinctHeaderValues() {
	s.mockTx.On("Run", mock.Anything, QueryContaining("RETURN header", "LIMIT $result_count"), mock.MatchedBy(func(p map[string]any) bool {
		return p["result_count"] == 3
	})).Return(Results(
		NewRecord([]string{"header"}, []any{"Sponsor"}),
		NewRecord([]string{"header"}, []any{nil}),
		NewRecord([]string{"header"}, []any{"User Defined"}),
	), nil)

	repo := s.newRepo(objectiveTemplate)
	values, err := repo.ListDistinctHeaderValues(context.Background(), syntax.HeaderOptions{FieldName: "library.name", ResultCount: 3})
	s.Require().NoError(err)
	s.Equal([]any{"Sponsor", "User Defined"}, values)
}

func (s *SyntaxRepoTestSuite) TestListDistinctHeaderValues_ZeroCount() {
	repo := s.newRepo(objectiveTemplate)
	values, err := repo.ListDistinctHeaderValues(context.Background(), syntax.HeaderOptions{FieldName: "name", ResultCount: 0})
	s.Require().NoError(err)
	s.NotNil(values)
	s.Empty(values)
	s.mockDriver.AssertNotCalled(s.T(), "ExecuteRead", mock.Anything, mock.Anything)
}

func (s *SyntaxRepoTestSuite) TestListDistinctHeaderValues_UnknownField() {
	repo := s.newRepo(objectiveTemplate)
	_, err := repo.ListDistinctHeaderValues(context.Background(), syntax.HeaderOptions{FieldName: "study_count", ResultCount: 5})
	s.True(errors.IsCode(err, errors.ErrCodeValidation))
}

func (s *SyntaxRepoTestSuite) TestGetParameterTermsByPosition() {
	keys := []string{"position", "parameter", "terms", "conjunction", "set_number"}
	s.mockTx.On("Run", mock.Anything, QueryContaining("USES_PARAMETER", "USES_VALUE"), mock.Anything).Return(Results(
		NewRecord(keys, []any{int64(1), "Intervention", []any{
			map[string]any{"set_number": int64(0), "position": int64(1), "index": int64(2), "parameter_name": "Intervention", "parameter_term": "placebo", "parameter_uid": "B"},
			map[string]any{"set_number": int64(0), "position": int64(1), "index": int64(1), "parameter_name": "Intervention", "parameter_term": "aspirin", "parameter_uid": "A"},
		}, "or", int64(0)}),
		NewRecord(keys, []any{int64(2), "Timeframe", []any{}, "", int64(0)}),
	), nil)

	repo := s.newRepo(endpointInstance)
	got, err := repo.GetParameterTermsByPosition(context.Background(), "Endpoint_000001")
	s.Require().NoError(err)
	s.Require().Len(got[0], 2)

	first := got[0][0].(syntax.ParameterTermEntry)
	s.Equal("or", first.Conjunction)
	s.Require().Len(first.Terms, 2)
	s.Equal("A", first.Terms[0].UID)
	s.Equal("aspirin", first.Terms[0].Value)
	s.Empty(got[0][1].(syntax.ParameterTermEntry).Terms)
}

func (s *SyntaxRepoTestSuite) TestGetParameterTermsByPosition_ResolvesComplexInTransaction() {
	keys := []string{"position", "parameter", "terms", "conjunction", "set_number"}
	s.mockTx.On("Run", mock.Anything, QueryContaining("USES_PARAMETER", "USES_DEFAULT_VALUE"), mock.Anything).Return(Results(
		NewRecord(keys, []any{int64(1), "Dose", []any{
			map[string]any{"set_number": int64(0), "position": int64(1), "parameter_uid": "Complex_1", "definition": "ParameterTemplate_1", "template": "[NumericValue] [Unit]"},
		}, "", int64(0)}),
	), nil)
	complexKeys := []string{"definition_uid", "position", "item_uid", "numeric_value", "item_name"}
	s.mockTx.On("Run", mock.Anything, QueryContaining("TemplateParameterComplexRoot"), mock.MatchedBy(func(p map[string]any) bool {
		return p["uid"] == "Complex_1"
	})).Return(Results(
		NewRecord(complexKeys, []any{"ParameterTemplate_1", int64(1), "Num_10", float64(10), "10"}),
		NewRecord(complexKeys, []any{"ParameterTemplate_1", int64(2), "Unit_mg", nil, "mg"}),
	), nil)

	repo := s.newRepo(objectiveTemplate)
	got, err := repo.GetParameterTermsByPosition(context.Background(), "ObjectiveTemplate_000001")
	s.Require().NoError(err)

	cx := got[0][0].(syntax.ComplexParameterTerm)
	s.Equal("ParameterTemplate_1", cx.UID)
	s.Equal("[NumericValue] [Unit]", cx.ParameterTemplate)
	s.Equal([]syntax.ParameterTerm{
		syntax.NumericParameterTerm{UID: "Num_10", Value: 10},
		syntax.SimpleParameterTerm{UID: "Unit_mg", Value: "mg"},
	}, cx.Parameters)
}

func (s *SyntaxRepoTestSuite) TestGetTemplateTypeUID_ThroughTemplate() {
	s.mockTx.On("Run", mock.Anything, QueryContaining("(root)<-[:HAS_CRITERIA]-(:CriteriaTemplateRoot)-[:HAS_TYPE]->"), mock.Anything).
		Return(Results(NewRecord([]string{"type_uid"}, []any{"C25532"})), nil)

	repo := s.newRepo(criteriaInstance)
	uid, err := repo.GetTemplateTypeUID(context.Background(), "Criteria_000001")
	s.Require().NoError(err)
	s.Equal("C25532", uid)
}

func (s *SyntaxRepoTestSuite) TestGetTemplateTypeUID_Direct() {
	s.mockTx.On("Run", mock.Anything, QueryContaining("OPTIONAL MATCH (root)-[:HAS_TYPE]->(type_root:CTTermRoot)"), mock.Anything).
		Return(Results(NewRecord([]string{"type_uid"}, []any{nil})), nil)

	repo := s.newRepo(criteriaTemplate)
	uid, err := repo.GetTemplateTypeUID(context.Background(), "CriteriaTemplate_000001")
	s.Require().NoError(err)
	s.Empty(uid)
}

func (s *SyntaxRepoTestSuite) TestGetTemplateTypeUID_MissingRoot() {
	s.mockTx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(Results(), nil)

	repo := s.newRepo(criteriaTemplate)
	_, err := repo.GetTemplateTypeUID(context.Background(), "CriteriaTemplate_404")
	s.True(errors.IsNotFound(err))
}

func (s *SyntaxRepoTestSuite) TestGetTemplateTypeUID_KindWithoutType() {
	repo := s.newRepo(objectiveTemplate)
	_, err := repo.GetTemplateTypeUID(context.Background(), "ObjectiveTemplate_000001")
	s.True(errors.IsCode(err, errors.ErrCodeBusinessLogic))
}

func TestSyntaxRepo(t *testing.T) {
	suite.Run(t, new(SyntaxRepoTestSuite))
}

func TestKeepLibrary(t *testing.T) {
	rows := []syntax.AggregateInput{
		{Library: syntax.Library{Name: "Sponsor"}},
		{Library: syntax.Library{Name: "User Defined"}},
	}
	assert.Len(t, keepLibrary(rows, ""), 2)
	kept := keepLibrary(rows, "Sponsor")
	require.Len(t, kept, 1)
	assert.Equal(t, "Sponsor", kept[0].Library.Name)
	assert.Len(t, rows, 2)
}
