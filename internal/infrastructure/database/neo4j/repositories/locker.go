package repositories

import (
	"context"
	"fmt"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/domain/syntax"
	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/redis"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/monitoring/logging"
	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/pkg/errors"
)

// ReleaseFunc frees a lock taken by a RootLocker.
type ReleaseFunc func(ctx context.Context) error

// RootLocker serializes writers of one root. Acquire runs once, before the
// write transaction starts; LockInTx runs inside every attempt of that
// transaction, before the root is read, and must be safe to repeat.
type RootLocker interface {
	Acquire(ctx context.Context, d syntax.Descriptor, uid string) (ReleaseFunc, error)
	LockInTx(ctx context.Context, tx driver.Transaction, d syntax.Descriptor, uid string) error
}

// GraphLocker takes the database write lock on the root node by writing the
// lock property in the read transaction. Neo4j holds that node lock only
// until the transaction commits or rolls back, so it serializes concurrent
// for-update reads and nothing after the fetch returns. Acquire holds nothing.
type GraphLocker struct{}

// NewGraphLocker returns the default locker.
func NewGraphLocker() *GraphLocker { return &GraphLocker{} }

func (GraphLocker) Acquire(context.Context, syntax.Descriptor, string) (ReleaseFunc, error) {
	return nil, nil
}

func (GraphLocker) LockInTx(ctx context.Context, tx driver.Transaction, d syntax.Descriptor, uid string) error {
	query := fmt.Sprintf("MATCH (root:%s {uid: $uid})\nSET root.__WRITE_LOCK__ = null", d.RootLabel)
	_, err := tx.Run(ctx, query, map[string]any{"uid": uid})
	return err
}

// AdvisoryLocker takes a Redis mutex named after the root. The mutex is taken
// once per fetch, outlives the transaction and its retries, and must be
// released by the caller.
type AdvisoryLocker struct {
	factory redis.LockFactory
	log     logging.Logger
}

// NewAdvisoryLocker wraps factory.
func NewAdvisoryLocker(factory redis.LockFactory, log logging.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{factory: factory, log: log}
}

func (l *AdvisoryLocker) Acquire(ctx context.Context, d syntax.Descriptor, uid string) (ReleaseFunc, error) {
	m := l.factory.NewMutex(d.RootLabel + ":" + uid)
	if err := m.Lock(ctx); err != nil {
		if errors.IsCode(err, errors.ErrCodeLockUnavailable) {
			return nil, errors.Conflict(fmt.Sprintf("%s with UID '%s' is locked by another writer.", d.Type, uid)).WithCause(err)
		}
		return nil, err
	}
	l.log.Debug("advisory lock acquired", logging.String("root", d.RootLabel), logging.String("uid", uid))
	return m.Unlock, nil
}

func (*AdvisoryLocker) LockInTx(context.Context, driver.Transaction, syntax.Descriptor, string) error {
	return nil
}
