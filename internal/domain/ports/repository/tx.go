package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction handle to fn as tx.
//
// Repositories detect a tx-bound handle (pgx.Tx for Postgres) and switch to
// row-locking reads such as SELECT ... FOR UPDATE where a method documents
// it. Every repository method MUST accept a nil tx and fall back to the
// pool.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		bal, err := accounts.GetAccountCredits(ctx, tx, ownerID)
//		...
//		return accounts.SetAccountCredits(ctx, tx, ownerID, bal-cost)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
