package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"translation-queue/internal/domain/ports/repository"
)

// Pruner drops finished jobs from the in-memory queue view.
type Pruner interface {
	Prune(cutoff time.Time) int
}

// CleanupWorker forgets terminal jobs older than the retention window, both
// in memory and in the store.
type CleanupWorker struct {
	queue     Pruner
	jobs      repository.TranslationJobRepository
	interval  time.Duration
	retention time.Duration
	log       *zerolog.Logger
	now       func() time.Time
}

func NewCleanupWorker(queue Pruner, jobs repository.TranslationJobRepository, interval, retention time.Duration, logger *zerolog.Logger) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	l := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		queue:     queue,
		jobs:      jobs,
		interval:  interval,
		retention: retention,
		log:       &l,
		now:       time.Now,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("retention", w.retention).Msg("Starting cleanup worker")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping cleanup worker")
			return ctx.Err()
		case <-t.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce prunes once and returns the in-memory and stored counts removed.
func (w *CleanupWorker) RunOnce(ctx context.Context) (int, int64) {
	cutoff := w.now().Add(-w.retention)
	var pruned int
	if w.queue != nil {
		pruned = w.queue.Prune(cutoff)
	}
	var deleted int64
	if w.jobs != nil {
		n, err := w.jobs.DeleteTerminalBefore(ctx, repository.NoTX, cutoff)
		if err != nil {
			w.log.Error().Err(err).Msg("delete finished jobs failed")
		}
		deleted = n
	}
	if pruned > 0 || deleted > 0 {
		w.log.Info().Int("pruned", pruned).Int64("deleted", deleted).Msg("finished jobs cleaned up")
	}
	return pruned, deleted
}
