package tenancy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner opens transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Executor runs a unit of work scoped to an explicitly chosen tenant inside a
// fresh transaction, restoring the caller's tenant afterward. It is the only
// sanctioned way to cross a tenant boundary: a handler running under tenant A
// (for example reacting to "tenant created") uses it to provision rows inside
// the new tenant B.
type Executor struct {
	db TxBeginner
}

// NewExecutor constructs an Executor.
func NewExecutor(db TxBeginner) *Executor {
	return &Executor{db: db}
}

// ExecuteAs switches the scope to tenantID, opens a new transaction (never
// nested in a caller transaction — a connection already bound to the caller's
// partition would otherwise keep serving the old tenant), runs fn, and
// restores the captured scope whether or not fn fails.
func (e *Executor) ExecuteAs(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context, tx pgx.Tx) error) error {
	ctx, scope := EnsureScope(ctx)

	prev, prevSet := scope.snapshot()
	scope.Set(tenantID)
	defer scope.restore(prev, prevSet)

	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("tenancy: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tenancy: commit tx: %w", err)
	}
	return nil
}

// RunAs is ExecuteAs for callbacks that do not need the transaction handle.
func (e *Executor) RunAs(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error {
	return e.ExecuteAs(ctx, tenantID, func(ctx context.Context, _ pgx.Tx) error {
		return fn(ctx)
	})
}
