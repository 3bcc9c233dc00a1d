package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx is a session bound to an open transaction.
type Tx struct {
	*DB
	tx pgx.Tx
}

// Begin starts a transaction. Inside a transaction it starts a savepoint.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	b, ok := d.q.(beginner)
	if !ok {
		return nil, fmt.Errorf("session cannot begin a transaction")
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{DB: &DB{q: tx, reg: d.reg}, tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction
// is not an error.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction and commits when it returns nil. The
// error from fn is returned as is, after rolling back.
func (d *DB) WithTx(ctx context.Context, fn func(tx *DB) error) error {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx.DB); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
