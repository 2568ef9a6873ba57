package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// TxRunner executes a function inside a transaction on the request-scoped
// connection. Because the scope holds one dedicated connection, every
// repository statement issued while the transaction is open participates in
// it. Commit and rollback are all-or-nothing; callers never observe partial
// state.
type TxRunner interface {
	// InTx runs fn inside a transaction and commits iff fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txRunner struct{}

// NewTxRunner creates a TxRunner bound to the request-scoped connection.
func NewTxRunner() TxRunner {
	return &txRunner{}
}

var _ TxRunner = (*txRunner)(nil)

func (r *txRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
