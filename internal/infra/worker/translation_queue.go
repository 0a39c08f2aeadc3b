package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/chunking"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
	"translation-queue/internal/infra/logging"
	"translation-queue/internal/infra/metrics"
)

// StatusStore receives every status transition the queue makes.
type StatusStore interface {
	UpdateJobStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error
}

// Refunder returns the debited credits of a failed or cancelled job and
// reports the amount credited back.
type Refunder interface {
	RefundJob(ctx context.Context, job *model.Job) (int, error)
}

type QueueOptions struct {
	InterOpDelay      time.Duration
	TextChunkSize     int
	DocumentChunkSize int
	MaxJobRetries     int
	TextTimeout       time.Duration // per gateway attempt
	DocumentTimeout   time.Duration
}

func (o *QueueOptions) applyDefaults() {
	if o.TextChunkSize <= 0 {
		o.TextChunkSize = chunking.DefaultTextSize
	}
	if o.DocumentChunkSize <= 0 {
		o.DocumentChunkSize = chunking.DefaultDocumentSize
	}
	if o.MaxJobRetries < 0 {
		o.MaxJobRetries = 0
	}
	if o.TextTimeout <= 0 {
		o.TextTimeout = 30 * time.Second
	}
	if o.DocumentTimeout <= 0 {
		o.DocumentTimeout = 25 * time.Second
	}
}

const (
	shutdownReason = "interrupted by shutdown"
	persistTimeout = 5 * time.Second
)

// Queue is a strictly serial FIFO of translation jobs. One job and one
// chunk are in flight at a time. A job whose chunk runs out of attempts
// goes back to the head of the list until MaxJobRetries is used up.
type Queue struct {
	mu      sync.Mutex
	pending []*model.Job
	current *model.Job
	jobs    map[string]*model.Job // every job still remembered, by id
	closed  bool

	wake chan struct{}
	done chan struct{}

	translator *ChunkTranslator
	store      StatusStore
	refunder   Refunder
	opts       QueueOptions
	log        *zerolog.Logger

	now   func() time.Time
	sleep sleepFunc
}

func NewQueue(translator *ChunkTranslator, store StatusStore, refunder Refunder, opts QueueOptions, logger *zerolog.Logger) *Queue {
	opts.applyDefaults()
	l := logger.With().Str("component", "queue").Logger()
	return &Queue{
		jobs:       make(map[string]*model.Job),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		translator: translator,
		store:      store,
		refunder:   refunder,
		opts:       opts,
		log:        &l,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Enqueue appends a Pending job to the tail. The queue keeps its own copy.
func (q *Queue) Enqueue(job *model.Job) (model.JobHandle, error) {
	if job == nil || job.Status != model.JobStatusPending {
		return model.JobHandle{}, fmt.Errorf("enqueue needs a pending job: %w", domain.ErrInvalidArgument)
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return model.JobHandle{}, domain.ErrQueueClosed
	}
	if _, ok := q.jobs[job.ID]; ok {
		q.mu.Unlock()
		return model.JobHandle{}, domain.ErrAlreadyExists
	}
	j := job.Clone()
	q.jobs[j.ID] = j
	q.pending = append(q.pending, j)
	h := model.JobHandle{ID: j.ID, Position: len(q.pending) - 1}
	metrics.SetQueueDepth(len(q.pending))
	q.mu.Unlock()

	q.signal()
	return h, nil
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the queue.
func (q *Queue) Status() model.QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := model.QueueSnapshot{Pending: make([]*model.Job, 0, len(q.pending))}
	if q.current != nil {
		snap.Processing = q.current.Clone()
	}
	for _, j := range q.pending {
		snap.Pending = append(snap.Pending, j.Clone())
	}
	for _, j := range q.jobs {
		snap.Stats.Count(j.Status)
	}
	return snap
}

// Job returns a copy of a remembered job.
func (q *Queue) Job(id string) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

// Cancel cancels a pending job at once. A processing job is flagged and
// stops at its next chunk boundary.
func (q *Queue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		q.mu.Unlock()
		return domain.ErrJobNotCancellable
	}
	if j.Status == model.JobStatusProcessing {
		j.CancelAsked = true
		q.mu.Unlock()
		q.log.Info().Str("job_id", id).Msg("cancel requested for running job")
		return nil
	}
	q.removePending(j)
	if err := j.Cancel(q.now()); err != nil {
		q.mu.Unlock()
		return err
	}
	snap := j.Clone()
	q.mu.Unlock()

	q.log.Info().Str("job_id", id).Msg("pending job cancelled")
	q.finish(ctx, snap)
	return nil
}

// removePending must be called with q.mu held.
func (q *Queue) removePending(j *model.Job) {
	for i, p := range q.pending {
		if p == j {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			break
		}
	}
	metrics.SetQueueDepth(len(q.pending))
}

// Prune forgets terminal jobs that finished before cutoff.
func (q *Queue) Prune(cutoff time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, j := range q.jobs {
		if j.Status.IsTerminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(q.jobs, id)
			n++
		}
	}
	return n
}

// Done is closed when Run has returned.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Run processes jobs until ctx ends. Jobs still in the queue at that point
// are failed and refunded. Run should be started once, in its own goroutine.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	q.log.Info().Msg("translation queue started")
	for {
		job := q.next(ctx)
		if job == nil {
			q.shutdown()
			q.log.Info().Msg("translation queue stopped")
			return
		}
		q.process(ctx, job)
		if ctx.Err() != nil {
			// shutdown still sees the interrupted job as current
			continue
		}

		q.mu.Lock()
		q.current = nil
		more := len(q.pending) > 0
		q.mu.Unlock()
		if more {
			_ = q.sleep(ctx, q.opts.InterOpDelay)
		}
	}
}

// next pops the head of the list, blocking until one exists. It returns nil
// once ctx ends.
func (q *Queue) next(ctx context.Context) *model.Job {
	for {
		if ctx.Err() != nil {
			return nil
		}
		q.mu.Lock()
		if len(q.pending) > 0 {
			j := q.pending[0]
			q.pending = q.pending[1:]
			q.current = j
			metrics.SetQueueDepth(len(q.pending))
			q.mu.Unlock()
			return j
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-q.wake:
		}
	}
}

func (q *Queue) chunkSettings(kind model.JobKind) (int, time.Duration) {
	if kind == model.JobKindDocument {
		return q.opts.DocumentChunkSize, q.opts.DocumentTimeout
	}
	return q.opts.TextChunkSize, q.opts.TextTimeout
}

func (q *Queue) process(ctx context.Context, j *model.Job) {
	log := logging.With(logging.WithJobID(ctx, j.ID), q.log)
	size, timeout := q.chunkSettings(j.Kind)

	q.mu.Lock()
	if j.Chunks == nil {
		pieces := chunking.Split(j.Payload, size)
		texts := make([]string, len(pieces))
		mid := make([]bool, len(pieces))
		split := 0
		for i, p := range pieces {
			texts[i], mid[i] = p.Text, p.MidWord
			if p.MidWord {
				split++
			}
		}
		if err := j.SetChunks(texts, mid); err != nil {
			_ = j.Fail(q.now(), err.Error())
			snap := j.Clone()
			q.mu.Unlock()
			q.finish(ctx, snap)
			return
		}
		if split > 0 {
			metrics.AddMidWordSplits(split)
			log.Warn().Int("pieces", split).Msg("word longer than chunk size was split")
		}
	}
	if err := j.Start(q.now()); err != nil {
		q.mu.Unlock()
		log.Error().Err(err).Msg("cannot start job")
		return
	}
	upd := progressUpdate(j)
	upd.StartedAt = j.StartedAt
	q.mu.Unlock()

	log.Info().Int("chunks", len(j.Chunks)).Int("retry", j.RetryCount).Msg("job started")
	q.persist(j.ID, model.JobStatusProcessing, upd)

	translated := 0
	for i := range j.Chunks {
		q.mu.Lock()
		if j.CancelAsked {
			q.cancelRunning(ctx, j)
			return
		}
		c := j.Chunks[i]
		q.mu.Unlock()
		if c.Status == model.ChunkStatusSuccess {
			continue
		}

		if translated > 0 {
			if err := q.sleep(ctx, q.opts.InterOpDelay); err != nil {
				return
			}
		}
		translated++

		out, err := q.translator.Translate(ctx, ChunkRequest{
			Index:          c.Index,
			Text:           c.Text,
			SourceLanguage: j.SourceLanguage,
			TargetLanguage: j.TargetLanguage,
			Timeout:        timeout,
		}, func(_ int, aerr error) {
			q.mu.Lock()
			j.Chunks[i].Attempts++
			if aerr != nil {
				j.Chunks[i].LastError = aerr.Error()
			}
			q.mu.Unlock()
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !IsChunkFailure(err) {
				log.Error().Err(err).Int("chunk", c.Index).Msg("translator stopped without exhausting attempts")
			}
			q.chunkExhausted(ctx, j, i, err)
			return
		}

		q.mu.Lock()
		j.Chunks[i].Status = model.ChunkStatusSuccess
		j.Chunks[i].TranslatedText = out
		j.Chunks[i].LastError = ""
		j.UpdatedAt = q.now()
		upd := progressUpdate(j)
		q.mu.Unlock()
		q.persist(j.ID, model.JobStatusProcessing, upd)
	}

	q.mu.Lock()
	if j.CancelAsked {
		q.cancelRunning(ctx, j)
		return
	}
	if err := j.Complete(q.now()); err != nil {
		q.mu.Unlock()
		log.Error().Err(err).Msg("cannot complete job")
		return
	}
	snap := j.Clone()
	q.mu.Unlock()

	log.Info().Int("chunks", len(snap.Chunks)).Msg("job completed")
	q.finish(ctx, snap)
}

// cancelRunning must be called with q.mu held; it releases it.
func (q *Queue) cancelRunning(ctx context.Context, j *model.Job) {
	err := j.Cancel(q.now())
	snap := j.Clone()
	q.mu.Unlock()
	if err != nil {
		return
	}
	q.log.Info().Str("job_id", j.ID).Msg("running job cancelled at chunk boundary")
	q.finish(ctx, snap)
}

func (q *Queue) chunkExhausted(ctx context.Context, j *model.Job, i int, cause error) {
	q.mu.Lock()
	j.Chunks[i].Status = model.ChunkStatusFailed
	j.Chunks[i].LastError = cause.Error()

	if j.RetryCount < q.opts.MaxJobRetries && !j.CancelAsked {
		_ = j.Requeue(q.now())
		q.pending = append([]*model.Job{j}, q.pending...)
		q.current = nil
		metrics.SetQueueDepth(len(q.pending))
		upd := progressUpdate(j)
		msg := cause.Error()
		upd.ErrorMessage = &msg
		retry := j.RetryCount
		q.mu.Unlock()

		metrics.IncJobRetry()
		q.log.Warn().Err(cause).Str("job_id", j.ID).Int("retry", retry).Msg("job requeued at head")
		q.persist(j.ID, model.JobStatusPending, upd)
		return
	}
	if j.CancelAsked {
		q.cancelRunning(ctx, j)
		return
	}
	_ = j.Fail(q.now(), cause.Error())
	snap := j.Clone()
	q.mu.Unlock()

	q.log.Error().Err(cause).Str("job_id", j.ID).Int("retries", snap.RetryCount).Msg("job failed")
	q.finish(ctx, snap)
}

// finish persists a terminal job and refunds it when due.
func (q *Queue) finish(ctx context.Context, snap *model.Job) {
	metrics.IncJob(string(snap.Kind), string(snap.Status))

	upd := progressUpdate(snap)
	upd.CompletedAt = snap.CompletedAt
	switch snap.Status {
	case model.JobStatusCompleted:
		out, cleared := snap.Output, ""
		upd.TranslatedText = &out
		upd.ErrorMessage = &cleared // drop text left by a requeue
	default:
		msg := snap.Error
		upd.ErrorMessage = &msg
	}
	q.persist(snap.ID, snap.Status, upd)

	if !snap.RefundDue() || q.refunder == nil {
		return
	}
	rctx, cancel := detached(ctx)
	defer cancel()
	amount, err := q.refunder.RefundJob(rctx, snap)
	if err != nil {
		// the refund sweeper picks it up later
		q.log.Error().Err(err).Str("job_id", snap.ID).Int("credits", snap.CreditsDebited).Msg("refund failed")
		return
	}
	q.mu.Lock()
	if j, ok := q.jobs[snap.ID]; ok {
		j.CreditsRefunded = amount
	}
	q.mu.Unlock()
}

func (q *Queue) persist(jobID string, status model.JobStatus, upd repository.JobUpdate) {
	if q.store == nil {
		return
	}
	ctx, cancel := detached(context.Background())
	defer cancel()
	if err := q.store.UpdateJobStatus(ctx, repository.NoTX, jobID, status, upd); err != nil {
		q.log.Error().Err(err).Str("job_id", jobID).Str("status", string(status)).Msg("status write failed")
	}
}

// detached keeps writes alive after the run context is cancelled.
func detached(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	if id := logging.TraceID(parent); id != "" {
		ctx = logging.WithTraceID(ctx, id)
	}
	return context.WithTimeout(ctx, persistTimeout)
}

func (q *Queue) shutdown() {
	q.mu.Lock()
	q.closed = true
	var left []*model.Job
	if q.current != nil && !q.current.Status.IsTerminal() {
		left = append(left, q.current)
	}
	left = append(left, q.pending...)
	q.pending = nil
	q.current = nil
	metrics.SetQueueDepth(0)

	snaps := make([]*model.Job, 0, len(left))
	for _, j := range left {
		if err := j.Fail(q.now(), shutdownReason); err == nil {
			snaps = append(snaps, j.Clone())
		}
	}
	q.mu.Unlock()

	for _, s := range snaps {
		q.finish(context.Background(), s)
	}
	if len(snaps) > 0 {
		q.log.Warn().Int("jobs", len(snaps)).Msg("unfinished jobs failed on shutdown")
	}
}

func progressUpdate(j *model.Job) repository.JobUpdate {
	total := j.TotalChunks()
	done := j.CompletedChunks()
	failed := j.FailedChunks()
	progress := j.Progress()
	retry := j.RetryCount
	return repository.JobUpdate{
		ProgressPercentage: &progress,
		TotalChunks:        &total,
		CompletedChunks:    &done,
		FailedChunks:       &failed,
		RetryCount:         &retry,
	}
}

// IsChunkFailure reports whether err came from a chunk running out of attempts.
func IsChunkFailure(err error) bool {
	var cf *ChunkFailure
	return errors.As(err, &cf)
}
