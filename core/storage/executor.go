package storage

import (
	"context"

	"github.com/appgrid-io/appgrid/core/infra/logging"
	"github.com/appgrid-io/appgrid/core/infra/metrics"
)

// maxQueryRetries bounds how many extra attempts a transient failure earns.
const maxQueryRetries = 3

// Executor runs storage queries against the routed connection with bounded
// automatic retry of the transient pool-recovery race. Each call owns its
// own retry budget.
type Executor struct {
	router  *Router
	driver  Driver
	metrics metrics.Observer
}

// NewExecutor wires a router and driver. A nil observer disables metrics.
func NewExecutor(router *Router, driver Driver, obs metrics.Observer) *Executor {
	if obs == nil {
		obs = metrics.Noop{}
	}
	return &Executor{router: router, driver: driver, metrics: obs}
}

// Query executes text with positional values against the connection routed
// by tenant state.
//
// Transient failures are resubmitted immediately, without backoff, up to
// maxQueryRetries extra attempts; the pool is expected to self-heal between
// attempts. When the budget is exhausted the FIRST attempt's outcome is
// returned so the earliest diagnostic survives. Any other failure returns
// immediately, annotated with the executed query text.
func (e *Executor) Query(ctx context.Context, tenantID, text string, values []any) (Rows, Fields, error) {
	conn, err := e.router.Route(tenantID)
	if err != nil {
		return nil, nil, err
	}
	connKey := e.router.Key(tenantID)

	var firstRows Rows
	var firstFields Fields
	var firstErr error
	for attempt := 0; ; attempt++ {
		rows, fields, err := e.driver.Query(ctx, conn, text, values)
		if err == nil {
			return rows, fields, nil
		}
		if !IsTransient(err) {
			return nil, nil, &QueryError{Query: text, Err: err}
		}
		if firstErr == nil {
			firstRows, firstFields, firstErr = rows, fields, err
		}
		if attempt >= maxQueryRetries {
			logging.Error("storage", "retry budget exhausted", "connection", connKey, "error", firstErr)
			return firstRows, firstFields, firstErr
		}
		e.metrics.IncQueryRetried(connKey)
		logging.Warn("storage", "transient query failure, resubmitting", "connection", connKey, "attempt", attempt+1)
	}
}
