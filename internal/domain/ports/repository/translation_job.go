package repository

import (
	"context"
	"time"

	"translation-queue/internal/domain/model"
)

// JobUpdate carries the optional columns written together with a status
// change. Nil fields are left untouched.
type JobUpdate struct {
	TranslatedText     *string
	ErrorMessage       *string
	ProgressPercentage *int
	TotalChunks        *int
	CompletedChunks    *int
	FailedChunks       *int
	RetryCount         *int
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

type TranslationJobRepository interface {
	Create(ctx context.Context, tx Tx, job *model.Job) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)

	// UpdateJobStatus mirrors a status transition and its progress fields.
	UpdateJobStatus(ctx context.Context, tx Tx, jobID string, status model.JobStatus, upd JobUpdate) error

	// ListRefundPending returns failed or cancelled owned jobs whose debited
	// credits were not returned yet, oldest first.
	ListRefundPending(ctx context.Context, tx Tx, limit int) ([]*model.Job, error)
	MarkRefunded(ctx context.Context, tx Tx, jobID string, amount int) error

	// FailInterrupted marks every pending or processing row failed. It runs
	// once at startup, before the in-memory queue accepts work.
	FailInterrupted(ctx context.Context, tx Tx, reason string, at time.Time) (int64, error)
	// DeleteTerminalBefore removes finished rows older than cutoff, except
	// those still owed a refund.
	DeleteTerminalBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
