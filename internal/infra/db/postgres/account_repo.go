package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

// GetAccountCredits locks the row with FOR UPDATE inside a transaction.
func (r *accountRepo) GetAccountCredits(ctx context.Context, tx repository.Tx, ownerID string) (int, error) {
	q := `SELECT credits FROM accounts WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, ownerID)
	if err != nil {
		return 0, err
	}
	var credits int
	if err := row.Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.ErrReadDatabaseRow
	}
	return credits, nil
}

func (r *accountRepo) SetAccountCredits(ctx context.Context, tx repository.Tx, ownerID string, credits int) error {
	if credits < 0 {
		return domain.ErrInvalidArgument
	}
	const q = `UPDATE accounts SET credits=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, ownerID, credits)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) AddAccountCredits(ctx context.Context, tx repository.Tx, ownerID string, delta int) (*model.Account, error) {
	const q = `
INSERT INTO accounts (id, credits, updated_at) VALUES ($1, GREATEST($2, 0), NOW())
ON CONFLICT (id) DO UPDATE SET
  credits = GREATEST(accounts.credits + $2, 0),
  updated_at = NOW()
RETURNING id, credits, updated_at;`
	row, err := pickRow(ctx, r.pool, tx, q, ownerID, delta)
	if err != nil {
		return nil, err
	}
	var a model.Account
	if err := row.Scan(&a.ID, &a.Credits, &a.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &a, nil
}
