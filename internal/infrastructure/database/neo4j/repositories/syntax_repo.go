package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/config"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/cypher"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Observer receives one call per repository operation.
type Observer interface {
	ObserveQuery(entityType, operation string, elapsed time.Duration, rows int, err error)
	ObserveLock(entityType string, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveQuery(string, string, time.Duration, int, error) {}
func (nopObserver) ObserveLock(string, time.Duration, error)               {}

// Operation names reported to the Observer.
const (
	OpFetch          = "fetch"
	OpHistory        = "history"
	OpList           = "list"
	OpHeaders        = "headers"
	OpParameterTerms = "parameter_terms"
	OpTemplateType   = "template_type"
	OpPatch          = "patch"
)

// SyntaxRepository reads the syntax entities of one EntityType and builds
// aggregates of type T from them.
type SyntaxRepository[T any] struct {
	driver   driver.DriverInterface
	desc     syntax.Descriptor
	factory  syntax.Factory[T]
	locker   RootLocker
	limits   config.RepositoryConfig
	observer Observer
	log      logging.Logger
}

// Option configures a SyntaxRepository.
type Option func(*options)

type options struct {
	locker   RootLocker
	limits   config.RepositoryConfig
	observer Observer
}

// WithLocker replaces the default graph locker.
func WithLocker(l RootLocker) Option {
	return func(o *options) { o.locker = l }
}

// WithLimits bounds page size, skip and header counts.
func WithLimits(c config.RepositoryConfig) Option {
	return func(o *options) { o.limits = c }
}

// WithObserver reports query timings, e.g. to Prometheus.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// NewSyntaxRepository returns the repository for entity type t.
func NewSyntaxRepository[T any](d driver.DriverInterface, t syntax.EntityType, factory syntax.Factory[T], log logging.Logger, opts ...Option) (*SyntaxRepository[T], error) {
	desc, ok := syntax.Lookup(t)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownKind, "no descriptor registered for %s", t)
	}
	o := options{
		locker:   NewGraphLocker(),
		observer: nopObserver{},
		limits: config.RepositoryConfig{
			MaxPageSize:       config.DefaultMaxPageSize,
			MaxSkip:           config.DefaultMaxSkip,
			HeaderResultCount: config.DefaultHeaderResultCount,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &SyntaxRepository[T]{
		driver:   d,
		desc:     desc,
		factory:  factory,
		locker:   o.locker,
		limits:   o.limits,
		observer: o.observer,
		log:      log.Named("syntax_repo").With(logging.String("entity_type", t.String())),
	}, nil
}

// Descriptor returns the descriptor the repository dispatches on.
func (r *SyntaxRepository[T]) Descriptor() syntax.Descriptor { return r.desc }

// Fields lists the public field names accepted by filters and sorts.
func (r *SyntaxRepository[T]) Fields() []string {
	return cypher.BuildFieldMap(r.desc, false).Names()
}

type fetched struct {
	inputs []syntax.AggregateInput
}

func (r *SyntaxRepository[T]) observe(op string, start time.Time, rows int, err error) {
	r.observer.ObserveQuery(r.desc.Type.String(), op, time.Since(start), rows, err)
	logging.LogOperationDuration(r.log, op, start, logging.Int("rows", rows))
	if err != nil && !errors.IsNotFound(err) {
		r.log.Error("query failed", logging.String("operation", op), logging.Err(err))
	}
}

func (r *SyntaxRepository[T]) readRows(ctx context.Context, tx driver.Transaction, q cypher.Query) ([]syntax.AggregateInput, error) {
	res, err := tx.Run(ctx, q.Text, q.Params)
	if err != nil {
		return nil, err
	}
	return driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (syntax.AggregateInput, error) {
		return materializeRow(r.desc, rec)
	})
}

// keepLibrary drops rows owned by another library. An empty name keeps all.
func keepLibrary(rows []syntax.AggregateInput, library string) []syntax.AggregateInput {
	if library == "" {
		return rows
	}
	kept := rows[:0:0]
	for _, in := range rows {
		if in.Library.Name == library {
			kept = append(kept, in)
		}
	}
	return kept
}

func (r *SyntaxRepository[T]) build(in syntax.AggregateInput, closure syntax.Closure) (*syntax.Retrieved[T], error) {
	agg, err := r.factory.Build(in)
	if err != nil {
		return nil, err
	}
	return &syntax.Retrieved[T]{Aggregate: agg, Closure: closure}, nil
}

func readOnlyClosure(in syntax.AggregateInput) syntax.Closure {
	return syntax.Closure{
		Mode:           syntax.ReadOnly,
		RootElementID:  in.Root.ElementID,
		ValueElementID: in.Value.ElementID,
		LibraryName:    in.Library.Name,
	}
}

func notFoundMessage(d syntax.Descriptor, uid string) string {
	return fmt.Sprintf("No %s with UID '%s' found in given status, date and version.",
		strings.ReplaceAll(d.Type.String(), "_", " "), uid)
}

// FetchByUID returns one version of the root with uid: the latest by
// default, or the latest with the requested status and version. With
// ForUpdate the root is locked before it is read and the result carries a
// baseline snapshot.
func (r *SyntaxRepository[T]) FetchByUID(ctx context.Context, uid string, opts syntax.FetchOptions) (_ *syntax.Retrieved[T], err error) {
	if opts.ForUpdate && (opts.Status != "" || opts.Version != "") {
		return nil, errors.NotImplemented("Retrieving a specific status or version for update is not supported.")
	}
	start := time.Now()
	rows := 0
	defer func() { r.observe(OpFetch, start, rows, err) }()

	q, err := cypher.FindQuery(r.desc, cypher.FindOptions{
		Selection:        cypher.Selection{UID: uid, Status: opts.Status, Version: opts.Version},
		ReturnStudyCount: opts.ReturnStudyCount,
	})
	if err != nil {
		return nil, err
	}

	var (
		out     any
		release ReleaseFunc
		keep    bool
	)
	defer func() {
		if release != nil && !keep {
			_ = release(ctx)
		}
	}()

	if opts.ForUpdate {
		lockStart := time.Now()
		release, err = r.locker.Acquire(ctx, r.desc, uid)
		if err != nil {
			r.observer.ObserveLock(r.desc.Type.String(), time.Since(lockStart), err)
			return nil, err
		}
		locked := false
		out, err = r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
			if err := r.locker.LockInTx(ctx, tx, r.desc, uid); err != nil {
				r.observer.ObserveLock(r.desc.Type.String(), time.Since(lockStart), err)
				return nil, err
			}
			if !locked {
				locked = true
				r.observer.ObserveLock(r.desc.Type.String(), time.Since(lockStart), nil)
			}
			inputs, err := r.readRows(ctx, tx, q)
			return fetched{inputs: inputs}, err
		})
	} else {
		out, err = r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
			inputs, err := r.readRows(ctx, tx, q)
			return fetched{inputs: inputs}, err
		})
	}
	if err != nil {
		return nil, err
	}
	f := out.(fetched)

	inputs := keepLibrary(f.inputs, opts.LibraryName)
	rows = len(inputs)
	if len(inputs) == 0 {
		return nil, errors.NotFound(notFoundMessage(r.desc, uid))
	}
	in := inputs[0]

	closure := readOnlyClosure(in)
	if opts.ForUpdate {
		snap := syntax.NewSnapshot(in)
		closure.Mode = syntax.ForUpdate
		closure.Baseline = &snap
		if release != nil {
			closure.Release = release
		}
	}
	res, err := r.build(in, closure)
	if err != nil {
		return nil, err
	}
	keep = true
	return res, nil
}

// FetchHistory returns every version of the root with uid, newest first,
// optionally restricted to one status or version. History is read-only.
func (r *SyntaxRepository[T]) FetchHistory(ctx context.Context, uid string, opts syntax.FetchOptions) (_ []*syntax.Retrieved[T], err error) {
	if opts.ForUpdate {
		return nil, errors.NotImplemented("Version history cannot be retrieved for update.")
	}
	start := time.Now()
	rows := 0
	defer func() { r.observe(OpHistory, start, rows, err) }()

	q, err := cypher.FindQuery(r.desc, cypher.FindOptions{
		Selection:        cypher.Selection{UID: uid, Status: opts.Status, Version: opts.Version, AuditTrail: true},
		ReturnStudyCount: opts.ReturnStudyCount,
	})
	if err != nil {
		return nil, err
	}
	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		return r.readRows(ctx, tx, q)
	})
	if err != nil {
		return nil, err
	}
	inputs := keepLibrary(out.([]syntax.AggregateInput), opts.LibraryName)
	rows = len(inputs)
	if len(inputs) == 0 {
		return nil, errors.NotFound(notFoundMessage(r.desc, uid))
	}

	items := make([]*syntax.Retrieved[T], 0, len(inputs))
	for _, in := range inputs {
		it, err := r.build(in, readOnlyClosure(in))
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (r *SyntaxRepository[T]) validatePaging(pageNumber, pageSize int) (int, error) {
	if pageNumber < 1 {
		return 0, errors.InvalidParam(fmt.Sprintf("Page number must be greater than or equal to 1, got %d.", pageNumber))
	}
	if pageSize < 0 {
		return 0, errors.InvalidParam(fmt.Sprintf("Page size must be greater than or equal to 0, got %d.", pageSize))
	}
	if r.limits.MaxPageSize > 0 && pageSize > r.limits.MaxPageSize {
		return 0, errors.InvalidParam(fmt.Sprintf("Page size must be less than or equal to %d, got %d.", r.limits.MaxPageSize, pageSize))
	}
	skip := (pageNumber - 1) * pageSize
	if r.limits.MaxSkip > 0 && skip > r.limits.MaxSkip {
		return 0, errors.InvalidParam(fmt.Sprintf("(page_number - 1) * page_size must be less than or equal to %d, got %d.", r.limits.MaxSkip, skip))
	}
	return skip, nil
}

type listed struct {
	inputs []syntax.AggregateInput
	total  int
}

// List returns one page of read-only results. A page size of 0 returns every
// match. The total is counted only when opts.TotalCount is set.
func (r *SyntaxRepository[T]) List(ctx context.Context, opts syntax.ListOptions) (_ *syntax.Page[T], err error) {
	skip, err := r.validatePaging(opts.PageNumber, opts.PageSize)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows := 0
	defer func() { r.observe(OpList, start, rows, err) }()

	fo := cypher.FindOptions{
		Selection:        cypher.Selection{Status: opts.Status, AuditTrail: opts.ForAuditTrail},
		ReturnStudyCount: opts.ReturnStudyCount,
		FilterBy:         opts.FilterBy,
		FilterOperator:   opts.FilterOperator,
		SortBy:           opts.SortBy,
		Skip:             skip,
		Limit:            opts.PageSize,
	}
	find, err := cypher.FindQuery(r.desc, fo)
	if err != nil {
		return nil, err
	}
	var count cypher.Query
	if opts.TotalCount {
		if count, err = cypher.CountQuery(r.desc, fo); err != nil {
			return nil, err
		}
	}

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		inputs, err := r.readRows(ctx, tx, find)
		if err != nil {
			return nil, err
		}
		l := listed{inputs: inputs}
		if opts.TotalCount {
			res, err := tx.Run(ctx, count.Text, count.Params)
			if err != nil {
				return nil, err
			}
			l.total, err = driver.ExtractSingleRecord(ctx, res, func(rec *neo4j.Record) (int, error) {
				v, _ := rec.Get(cypher.CountColumn)
				n, _ := asInt(v)
				return n, nil
			})
			if err != nil && !errors.IsNotFound(err) {
				return nil, err
			}
		}
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	l := out.(listed)

	inputs := keepLibrary(l.inputs, opts.LibraryName)
	rows = len(inputs)
	page := &syntax.Page[T]{Items: make([]*syntax.Retrieved[T], 0, len(inputs)), TotalCount: l.total}
	for _, in := range inputs {
		item, err := r.build(in, readOnlyClosure(in))
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// ListDistinctHeaderValues returns up to opts.ResultCount distinct non-null
// values of one field, ordered ascending.
func (r *SyntaxRepository[T]) ListDistinctHeaderValues(ctx context.Context, opts syntax.HeaderOptions) (_ []any, err error) {
	if opts.ResultCount <= 0 {
		return []any{}, nil
	}
	start := time.Now()
	rows := 0
	defer func() { r.observe(OpHeaders, start, rows, err) }()

	q, err := cypher.HeadersQuery(r.desc, cypher.HeaderQueryOptions{
		Selection:      cypher.Selection{Status: opts.Status},
		FieldName:      opts.FieldName,
		SearchString:   opts.SearchString,
		FilterBy:       opts.FilterBy,
		FilterOperator: opts.FilterOperator,
		Limit:          opts.ResultCount,
	})
	if err != nil {
		return nil, err
	}
	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, q.Text, q.Params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, res, func(rec *neo4j.Record) (any, error) {
			v, _ := rec.Get(cypher.HeaderColumn)
			return v, nil
		})
	})
	if err != nil {
		return nil, err
	}
	values := make([]any, 0)
	for _, v := range out.([]any) {
		if v != nil {
			values = append(values, v)
		}
	}
	rows = len(values)
	return values, nil
}

// GetParameterTermsByPosition returns the parameter terms assigned to the
// root with uid, grouped by value set. Templates report their default values.
func (r *SyntaxRepository[T]) GetParameterTermsByPosition(ctx context.Context, uid string) (_ syntax.ParameterTermsBySet, err error) {
	start := time.Now()
	rows := 0
	defer func() { r.observe(OpParameterTerms, start, rows, err) }()

	query := parameterTermsQuery(r.desc)
	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"uid": uid})
		if err != nil {
			return nil, err
		}
		paramRows, err := driver.CollectRecords(ctx, res, parameterRow)
		if err != nil {
			return nil, err
		}
		return GroupParameterTerms(ctx, paramRows, txComplexResolver{tx: tx})
	})
	if err != nil {
		return nil, err
	}
	terms := out.(syntax.ParameterTermsBySet)
	rows = len(terms)
	return terms, nil
}

// GetTemplateTypeUID returns the uid of the type term of the root with uid,
// read from the generating template for pre-instances and instances. An
// empty string means the root has no type.
func (r *SyntaxRepository[T]) GetTemplateTypeUID(ctx context.Context, uid string) (_ string, err error) {
	if !syntax.CapabilitiesOf(r.desc).Has(syntax.CapType) {
		return "", errors.BusinessLogic(fmt.Sprintf("%s has no type.", r.desc.Type))
	}
	start := time.Now()
	defer func() { r.observe(OpTemplateType, start, 1, err) }()

	path := "(root)-[:HAS_TYPE]->(type_root:CTTermRoot)"
	if !r.desc.HasDirectType() {
		tmpl := syntax.MustLookup(r.desc.Type.Template())
		path = fmt.Sprintf("(root)%s(:%s)-[:HAS_TYPE]->(type_root:CTTermRoot)", r.desc.LineageRel(), tmpl.RootLabel)
	}
	query := fmt.Sprintf("MATCH (root:%s {uid: $uid})\nOPTIONAL MATCH %s\nRETURN type_root.uid AS type_uid LIMIT 1",
		r.desc.RootLabel, path)

	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"uid": uid})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, res, func(rec *neo4j.Record) (string, error) {
			v, _ := rec.Get("type_uid")
			return stringOf(v), nil
		})
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", errors.NotFound(fmt.Sprintf("%s with UID '%s' doesn't exist.", r.desc.Type, uid))
		}
		return "", err
	}
	return out.(string), nil
}
