package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"

	driver "github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/infrastructure/database/neo4j"
)

// MockInfraDriver implements driver.DriverInterface
type MockInfraDriver struct {
	mock.Mock
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
	args := m.Called(ctx, work)
	if fn, ok := args.Get(0).(func(context.Context, driver.TransactionWork) (interface{}, error)); ok {
		return fn(ctx, work)
	}
	tx := new(MockInfraTransaction)
	return work(tx)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
	args := m.Called(ctx, work)
	if fn, ok := args.Get(0).(func(context.Context, driver.TransactionWork) (interface{}, error)); ok {
		return fn(ctx, work)
	}
	tx := new(MockInfraTransaction)
	return work(tx)
}

// MockInfraTransaction implements driver.Transaction
type MockInfraTransaction struct {
	mock.Mock
}

func (m *MockInfraTransaction) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	args := m.Called(ctx, cypher, params)
	if fn, ok := args.Get(0).(func(context.Context, string, map[string]any) driver.Result); ok {
		return fn(ctx, cypher, params), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(driver.Result), args.Error(1)
}

// MockResult implements driver.Result over a fixed slice of records.
type MockResult struct {
	Records []*neo4j.Record
	Current int
	Error   error
}

func (m *MockResult) Next(ctx context.Context) bool {
	return m.Current < len(m.Records)
}

func (m *MockResult) Err() error {
	return m.Error
}

func (m *MockResult) Record() *neo4j.Record {
	if m.Current < len(m.Records) {
		rec := m.Records[m.Current]
		m.Current++
		return rec
	}
	return nil
}

func (m *MockResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

// Results returns a fresh MockResult per call so one expectation can serve
// several Run calls.
func Results(records ...*neo4j.Record) func(context.Context, string, map[string]any) driver.Result {
	return func(context.Context, string, map[string]any) driver.Result {
		return &MockResult{Records: records}
	}
}

// NewRecord builds a record with the given keys and values.
func NewRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   keys,
		Values: values,
	}
}

// QueryContaining matches a cypher argument containing every fragment.
func QueryContaining(fragments ...string) interface{} {
	return mock.MatchedBy(func(query string) bool {
		for _, f := range fragments {
			if !strings.Contains(query, f) {
				return false
			}
		}
		return true
	})
}

// SetupMockDriver wires ExecuteRead/Write to run the work function against
// a single mock transaction.
func SetupMockDriver(t *testing.T) (*MockInfraDriver, *MockInfraTransaction) {
	d := new(MockInfraDriver)
	tx := new(MockInfraTransaction)

	d.On("ExecuteRead", mock.Anything, mock.Anything).Return(func(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
		return work(tx)
	})
	d.On("ExecuteWrite", mock.Anything, mock.Anything).Return(func(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
		return work(tx)
	})

	return d, tx
}
