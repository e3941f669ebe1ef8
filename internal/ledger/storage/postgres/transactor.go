package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. Ledger movements run one
// operation per transaction at read committed with explicit
// SELECT ... FOR UPDATE locks on the wallets involved; the options are spelled
// out here so the locking strategy is visible at the boundary.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a read-write transaction for a single ledger operation.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
}
