package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	query string
	args  []any
}

// stubExecutor answers statements through per-test hooks and records every call.
type stubExecutor struct {
	calls    []call
	exec     func(query string, args []any) (pgconn.CommandTag, error)
	queryRow func(query string, args []any) pgx.Row
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	if s.exec == nil {
		return pgconn.NewCommandTag("UPDATE 1"), nil
	}
	return s.exec(query, args)
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	if s.queryRow == nil {
		return stubRow{err: pgx.ErrNoRows}
	}
	return s.queryRow(query, args)
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return nil, errors.New("not implemented")
}

func (s *stubExecutor) last() call {
	if len(s.calls) == 0 {
		return call{}
	}
	return s.calls[len(s.calls)-1]
}

type stubRow struct {
	scan func(dest ...any) error
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

func contains(query, fragment string) bool {
	return strings.Contains(query, fragment)
}

func tag(rows int) pgconn.CommandTag {
	if rows == 0 {
		return pgconn.NewCommandTag("UPDATE 0")
	}
	return pgconn.NewCommandTag("UPDATE 1")
}
