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

var _ repository.RefundLedger = (*refundLedgerRepo)(nil)

type refundLedgerRepo struct{ pool *pgxpool.Pool }

func NewRefundLedgerRepo(pool *pgxpool.Pool) *refundLedgerRepo {
	return &refundLedgerRepo{pool: pool}
}

func (r *refundLedgerRepo) Record(ctx context.Context, tx repository.Tx, ref *model.CreditRefund) error {
	const q = `
INSERT INTO credit_refunds (job_id, owner_id, amount, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (job_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, ref.JobID, ref.OwnerID, ref.Amount, ref.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyRefunded
	}
	return nil
}

func (r *refundLedgerRepo) FindByJobID(ctx context.Context, tx repository.Tx, jobID string) (*model.CreditRefund, error) {
	const q = `SELECT job_id, owner_id, amount, created_at FROM credit_refunds WHERE job_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, jobID)
	if err != nil {
		return nil, err
	}
	var ref model.CreditRefund
	if err := row.Scan(&ref.JobID, &ref.OwnerID, &ref.Amount, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ref, nil
}
