// File: internal/usecase/credit_reconciler.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
	"translation-queue/internal/infra/metrics"
)

// Compile-time check
var _ CreditReconciler = (*creditReconciler)(nil)

// Locker serializes balance changes per owner across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type CreditReconciler interface {
	// Refund returns amount credits to ownerID for jobID. It is idempotent
	// per job: a second call credits nothing and returns 0.
	Refund(ctx context.Context, ownerID string, amount int, jobID string) (int, error)
	// RefundJob refunds a failed or cancelled job when a refund is due.
	RefundJob(ctx context.Context, job *model.Job) (int, error)
	// Sweep refunds up to limit jobs the store still owes credits.
	Sweep(ctx context.Context, limit int) (int, error)
}

type creditReconciler struct {
	accounts repository.AccountRepository
	ledger   repository.RefundLedger
	jobs     repository.TranslationJobRepository
	tm       repository.TransactionManager
	locker   Locker // optional
	log      *zerolog.Logger
	now      func() time.Time
}

func NewCreditReconciler(
	accounts repository.AccountRepository,
	ledger repository.RefundLedger,
	jobs repository.TranslationJobRepository,
	tm repository.TransactionManager,
	locker Locker,
	logger *zerolog.Logger,
) *creditReconciler {
	l := logger.With().Str("component", "credits").Logger()
	return &creditReconciler{
		accounts: accounts,
		ledger:   ledger,
		jobs:     jobs,
		tm:       tm,
		locker:   locker,
		log:      &l,
		now:      time.Now,
	}
}

const creditLockTTL = 10 * time.Second

func creditLockKey(ownerID string) string { return "lock:credits:" + ownerID }

func (r *creditReconciler) Refund(ctx context.Context, ownerID string, amount int, jobID string) (int, error) {
	if ownerID == "" || jobID == "" || amount <= 0 {
		return 0, fmt.Errorf("refund %d to %q for %q: %w", amount, ownerID, jobID, domain.ErrInvalidArgument)
	}

	if r.locker != nil {
		key := creditLockKey(ownerID)
		token, err := r.locker.TryLock(ctx, key, creditLockTTL)
		if err != nil {
			metrics.IncRefund("error")
			return 0, fmt.Errorf("lock credits: %w", err)
		}
		defer func() { _ = r.locker.Unlock(context.Background(), key, token) }()
	}

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := r.ledger.Record(ctx, tx, &model.CreditRefund{
			JobID:     jobID,
			OwnerID:   ownerID,
			Amount:    amount,
			CreatedAt: r.now(),
		}); err != nil {
			return err
		}

		balance, err := r.accounts.GetAccountCredits(ctx, tx, ownerID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if _, err := r.accounts.AddAccountCredits(ctx, tx, ownerID, amount); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := r.accounts.SetAccountCredits(ctx, tx, ownerID, balance+amount); err != nil {
				return err
			}
		}
		return r.jobs.MarkRefunded(ctx, tx, jobID, amount)
	})
	if errors.Is(err, domain.ErrAlreadyRefunded) {
		metrics.IncRefund("duplicate")
		r.log.Debug().Str("job_id", jobID).Msg("refund already recorded")
		return 0, nil
	}
	if err != nil {
		metrics.IncRefund("error")
		return 0, err
	}

	metrics.IncRefund("refunded")
	metrics.AddRefundedCredits(amount)
	r.log.Info().Str("job_id", jobID).Int("credits", amount).Msg("credits refunded")
	return amount, nil
}

func (r *creditReconciler) RefundJob(ctx context.Context, job *model.Job) (int, error) {
	if job == nil || !job.RefundDue() {
		return 0, nil
	}
	return r.Refund(ctx, job.OwnerID, job.CreditsDebited, job.ID)
}

func (r *creditReconciler) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	owed, err := r.jobs.ListRefundPending(ctx, repository.NoTX, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, j := range owed {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		amount, err := r.RefundJob(ctx, j)
		if err != nil {
			r.log.Error().Err(err).Str("job_id", j.ID).Msg("sweep refund failed")
			errs = append(errs, fmt.Errorf("job %s: %w", j.ID, err))
			continue
		}
		if amount > 0 {
			n++
		}
	}
	return n, errors.Join(errs...)
}
