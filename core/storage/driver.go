package storage

import (
	"context"

	"github.com/appgrid-io/appgrid/core/infra/config"
)

// Rows is a result set decoded into column→value maps, one per row.
type Rows []map[string]any

// Fields lists the result columns in select order.
type Fields []string

// Driver executes one query against a named connection. Implementations
// must surface the transient failure class through IsTransient so the
// executor can classify it.
type Driver interface {
	Query(ctx context.Context, conn config.ConnectionDef, text string, values []any) (Rows, Fields, error)
}
