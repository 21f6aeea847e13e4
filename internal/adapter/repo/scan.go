package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mediacache/internal/infra"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// validID reports whether id can be bound to a uuid column. Anything else
// cannot match a row, so callers short-circuit to domain.ErrNotFound.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func collectRows[T any](rows pgx.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryList[T any](ctx context.Context, sql infra.SQLExecutor, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := sql.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows, scan)
}
