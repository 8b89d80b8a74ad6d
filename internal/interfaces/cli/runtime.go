package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/config"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j/repositories"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/redis"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// Runtime is the connected state commands run against.
type Runtime struct {
	Driver   driver.DriverInterface
	Locker   repositories.RootLocker
	Observer repositories.Observer
	Limits   config.RepositoryConfig

	closers []func() error
}

// Close releases everything Connect opened, newest first.
func (r *Runtime) Close(log logging.Logger) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Warn("shutdown step failed", logging.Err(err))
		}
	}
	r.closers = nil
}

// Connector opens a Runtime for cfg.
type Connector func(ctx context.Context, cfg *config.Config, log logging.Logger) (*Runtime, error)

// Connect opens the Neo4j driver, the configured lock backend and, when
// enabled, the metrics endpoint.
func Connect(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Limits: cfg.Repository}
	defer func() {
		if err != nil {
			rt.Close(log)
		}
	}()

	d, err := driver.NewDriver(cfg.Neo4j, log)
	if err != nil {
		return nil, err
	}
	rt.Driver = d
	rt.closers = append(rt.closers, d.Close)

	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		client, err := redis.NewClient(cfg.Redis, log.Named("redis"))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Locker = repositories.NewAdvisoryLocker(redis.NewLockFactory(client, cfg.Lock, log), log.Named("lock"))
	default:
		rt.Locker = repositories.NewGraphLocker()
	}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:       cfg.Metrics.Namespace,
			Subsystem:       "repository",
			EnableGoMetrics: true,
		}, log.Named("metrics"))
		if err != nil {
			return nil, err
		}
		rt.Observer = prometheus.NewRepositoryMetrics(collector)
		if cfg.Metrics.Addr != "" {
			rt.closers = append(rt.closers, serveMetrics(cfg.Metrics.Addr, collector.Handler(), log))
		}
	}
	return rt, nil
}

func serveMetrics(addr string, h http.Handler, log logging.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", logging.Err(err))
		}
	}()
	log.Info("serving metrics", logging.String("addr", addr))
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// itemRepository opens the *syntax.Item repository for the entity type name.
func itemRepository(ctx context.Context, cc *CLIContext, typeName string) (*repositories.SyntaxRepository[*syntax.Item], error) {
	t, err := syntax.ParseEntityType(typeName)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnknownKind, "unknown entity type")
	}
	rt, err := cc.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	var opts []repositories.Option
	if rt.Limits.MaxPageSize > 0 {
		opts = append(opts, repositories.WithLimits(rt.Limits))
	}
	if rt.Locker != nil {
		opts = append(opts, repositories.WithLocker(rt.Locker))
	}
	if rt.Observer != nil {
		opts = append(opts, repositories.WithObserver(rt.Observer))
	}
	return repositories.NewSyntaxRepository[*syntax.Item](rt.Driver, t, syntax.ItemFactory{}, cc.Logger, opts...)
}
