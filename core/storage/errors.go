package storage

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNoConnection means the required connection definition is absent
	// from the controller's table. Fatal for the call, never retried.
	ErrNoConnection = errors.New("no connection available")

	// ErrNoTenant means no tenant database is resolvable for the context.
	// Distinct so callers can branch on "no tenant" vs generic failure.
	ErrNoTenant = errors.New("no tenant database resolvable")
)

// TransientError marks the known recoverable failure class: a pooled
// connection accepting work while still recovering from a dropped link.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient storage failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err belongs to the retryable failure class.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	return strings.Contains(err.Error(), "enqueue after fatal error")
}

// QueryError annotates a non-transient failure with the executed query text.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v [query: %s]", e.Err, e.Query)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
