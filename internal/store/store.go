// Package store persists the catalog in PostgreSQL through database/sql and
// lib/pq. Uniqueness and cascades are enforced by the schema; repositories
// report violations as ErrConflict or ErrReference.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

const defaultPageSize = 20

type rowScanner interface {
	Scan(dest ...any) error
}

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	return offset, limit
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err)
	}
	return nil
}
