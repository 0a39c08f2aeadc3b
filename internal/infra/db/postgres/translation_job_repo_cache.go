package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
	"translation-queue/internal/infra/metrics"
	red "translation-queue/internal/infra/redis"
)

var _ repository.TranslationJobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator caches finished jobs for status polling. Jobs still
// pending or processing are always read through, so a restart can never
// serve a stale in-flight row.
type jobRepoCacheDecorator struct {
	inner repository.TranslationJobRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobRepoCacheDecorator(inner repository.TranslationJobRepository, cache red.RedisClient, ttl time.Duration) repository.TranslationJobRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func jobKey(id string) string { return fmt.Sprintf("job:id:%s", id) }

func (d *jobRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, j *model.Job) error {
	return d.inner.Create(ctx, tx, j)
}

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	if tx == nil {
		val, err := d.cache.Get(ctx, jobKey(id))
		if err == nil {
			var j model.Job
			if json.Unmarshal([]byte(val), &j) == nil {
				metrics.IncCacheRequest("job_status", "hit")
				return &j, nil
			}
		} else if err != red.ErrNil {
			metrics.IncCacheRequest("job_status", "error")
		}
	}

	metrics.IncCacheRequest("job_status", "miss")
	j, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if j != nil && j.Status.IsTerminal() {
		bytes, _ := json.Marshal(j)
		_ = d.cache.Set(ctx, jobKey(id), bytes, d.ttl)
	}
	return j, nil
}

func (d *jobRepoCacheDecorator) UpdateJobStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error {
	_ = d.cache.Del(ctx, jobKey(jobID))
	return d.inner.UpdateJobStatus(ctx, tx, jobID, status, upd)
}

func (d *jobRepoCacheDecorator) MarkRefunded(ctx context.Context, tx repository.Tx, jobID string, amount int) error {
	_ = d.cache.Del(ctx, jobKey(jobID))
	return d.inner.MarkRefunded(ctx, tx, jobID, amount)
}

// Pass-through methods
func (d *jobRepoCacheDecorator) ListRefundPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	return d.inner.ListRefundPending(ctx, tx, limit)
}

func (d *jobRepoCacheDecorator) FailInterrupted(ctx context.Context, tx repository.Tx, reason string, at time.Time) (int64, error) {
	return d.inner.FailInterrupted(ctx, tx, reason, at)
}

// DeleteTerminalBefore leaves cached copies to expire with their TTL.
func (d *jobRepoCacheDecorator) DeleteTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	return d.inner.DeleteTerminalBefore(ctx, tx, cutoff)
}
