package repository

import (
	"context"

	"translation-queue/internal/domain/model"
)

type AccountRepository interface {
	// GetAccountCredits reads the balance. Inside a transaction the row is
	// locked until commit.
	GetAccountCredits(ctx context.Context, tx Tx, ownerID string) (int, error)
	SetAccountCredits(ctx context.Context, tx Tx, ownerID string, credits int) error
	// AddAccountCredits creates the account when missing.
	AddAccountCredits(ctx context.Context, tx Tx, ownerID string, delta int) (*model.Account, error)
}

// RefundLedger records one refund per job.
type RefundLedger interface {
	// Record returns domain.ErrAlreadyRefunded if the job already has a row.
	Record(ctx context.Context, tx Tx, r *model.CreditRefund) error
	FindByJobID(ctx context.Context, tx Tx, jobID string) (*model.CreditRefund, error)
}
