package storage

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("syntax error"), false},
		{&TransientError{Err: errors.New("x")}, true},
		{fmt.Errorf("wrapped: %w", &TransientError{Err: errors.New("x")}), true},
		{driver.ErrBadConn, true},
		{errors.New("cannot enqueue after fatal error"), true},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestQueryErrorAnnotation(t *testing.T) {
	inner := errors.New("duplicate entry")
	qe := &QueryError{Query: "INSERT INTO t VALUES (?)", Err: inner}
	if !strings.Contains(qe.Error(), "INSERT INTO t") {
		t.Fatalf("error must carry the query text: %s", qe.Error())
	}
	if !errors.Is(qe, inner) {
		t.Fatalf("expected unwrap to inner error")
	}
}

func TestTransientErrorUnwrap(t *testing.T) {
	inner := errors.New("pool recovering")
	te := &TransientError{Err: inner}
	if !errors.Is(te, inner) {
		t.Fatalf("expected unwrap to inner error")
	}
	if !strings.Contains(te.Error(), "pool recovering") {
		t.Fatalf("unexpected message: %s", te.Error())
	}
}
