// Copyright 2026 Optic Labs
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vinovest/sqlx"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// e.g. two concurrent registrations racing on the same email.
var ErrDuplicate = errors.New("record already exists")

// querier is the subset of sqlx used by the repository. Both *sqlx.DB and
// *sqlx.Tx satisfy it, so every method works inside and outside a
// transaction.
type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository wraps the database handle for all persistence operations.
type Repository struct {
	db *sqlx.DB // nil when bound to a transaction
	q  querier
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, q: db}
}

// InTx runs fn against a repository bound to a single transaction,
// committing on success and rolling back on error. Calling InTx on a
// repository that is already transactional reuses the open transaction.
func (r *Repository) InTx(ctx context.Context, fn func(*Repository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&Repository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// wrapError converts driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	// modernc.org/sqlite exposes constraint violations only via the message
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}
