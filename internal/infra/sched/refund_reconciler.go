package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper refunds failed or cancelled jobs the store still owes credits.
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (int, error)
}

// RefundReconciler periodically sweeps for unrefunded failures. This covers
// refunds whose write failed and jobs left behind by a crash between the
// terminal transition and the refund.
type RefundReconciler struct {
	credits  Sweeper
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewRefundReconciler(credits Sweeper, interval time.Duration, batch int, logger *zerolog.Logger) *RefundReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	l := logger.With().Str("component", "RefundReconciler").Logger()
	return &RefundReconciler{credits: credits, interval: interval, batch: batch, log: &l}
}

func (w *RefundReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting refund reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping refund reconciler")
			return ctx.Err()
		case <-t.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of jobs refunded.
func (w *RefundReconciler) RunOnce(ctx context.Context) int {
	n, err := w.credits.Sweep(ctx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Int("refunded", n).Msg("refund sweep incomplete")
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("owed credits refunded")
	}
	return n
}
