package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/appgrid-io/appgrid/core/infra/config"
)

// SQLDriver executes queries over pooled MySQL connections, one pool per
// distinct DSN. Connections are owned here; callers never pin one across
// the life of a job.
type SQLDriver struct {
	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

func NewSQLDriver() *SQLDriver {
	return &SQLDriver{pools: map[string]*sqlx.DB{}}
}

// Query executes text with positional values. Slice values expand their
// IN-list placeholder before execution.
func (d *SQLDriver) Query(ctx context.Context, conn config.ConnectionDef, text string, values []any) (Rows, Fields, error) {
	db, err := d.pool(conn.DSN())
	if err != nil {
		return nil, nil, err
	}

	if hasListValue(values) {
		text, values, err = sqlx.In(text, values...)
		if err != nil {
			return nil, nil, fmt.Errorf("expand in-list: %w", err)
		}
	}

	rows, err := db.QueryxContext(ctx, text, values...)
	if err != nil {
		return nil, nil, classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, classify(err)
	}

	var out Rows
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, nil, classify(err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, classify(err)
	}
	return out, Fields(cols), nil
}

// Close releases every pooled connection.
func (d *SQLDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for dsn, db := range d.pools {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.pools, dsn)
	}
	return firstErr
}

func (d *SQLDriver) pool(dsn string) (*sqlx.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if db, ok := d.pools[dsn]; ok {
		return db, nil
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	d.pools[dsn] = db
	return db, nil
}

func hasListValue(values []any) bool {
	for _, v := range values {
		if isList(v) {
			return true
		}
	}
	return false
}

// classify wraps pool-recovery races so the executor retries them.
func classify(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return &TransientError{Err: err}
	}
	return err
}
