//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
)

// ---- In-memory TranslationJobRepository ----

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	UpdateErr error
}

var _ repository.TranslationJobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[string]*model.Job{}} }

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (m *memJobRepo) UpdateJobStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if j.Stored == nil {
		j.Stored = &model.ChunkCounts{}
	}
	if upd.TranslatedText != nil {
		j.Output = *upd.TranslatedText
	}
	if upd.ErrorMessage != nil {
		j.Error = *upd.ErrorMessage
	}
	if upd.ProgressPercentage != nil {
		j.Stored.Progress = *upd.ProgressPercentage
	}
	if upd.TotalChunks != nil {
		j.Stored.Total = *upd.TotalChunks
	}
	if upd.CompletedChunks != nil {
		j.Stored.Completed = *upd.CompletedChunks
	}
	if upd.FailedChunks != nil {
		j.Stored.Failed = *upd.FailedChunks
	}
	if upd.RetryCount != nil {
		j.RetryCount = *upd.RetryCount
	}
	if upd.StartedAt != nil {
		j.StartedAt = upd.StartedAt
	}
	if upd.CompletedAt != nil {
		j.CompletedAt = upd.CompletedAt
	}
	return nil
}

func (m *memJobRepo) ListRefundPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.jobs {
		if j.RefundDue() {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) MarkRefunded(ctx context.Context, tx repository.Tx, jobID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	j.CreditsRefunded = amount
	return nil
}

func (m *memJobRepo) FailInterrupted(ctx context.Context, tx repository.Tx, reason string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.jobs {
		if !j.Status.IsTerminal() {
			_ = j.Fail(at, reason)
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) DeleteTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		if j.Status.IsTerminal() && !j.RefundDue() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		return j.Clone()
	}
	return nil
}

func (m *memJobRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// ---- In-memory AccountRepository ----

type memAccountRepo struct {
	mu       sync.Mutex
	balances map[string]int
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func newMemAccountRepo(seed map[string]int) *memAccountRepo {
	b := map[string]int{}
	for k, v := range seed {
		b[k] = v
	}
	return &memAccountRepo{balances: b}
}

func (m *memAccountRepo) GetAccountCredits(ctx context.Context, tx repository.Tx, ownerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.balances[ownerID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return v, nil
}

func (m *memAccountRepo) SetAccountCredits(ctx context.Context, tx repository.Tx, ownerID string, credits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[ownerID]; !ok {
		return domain.ErrNotFound
	}
	m.balances[ownerID] = credits
	return nil
}

func (m *memAccountRepo) AddAccountCredits(ctx context.Context, tx repository.Tx, ownerID string, delta int) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[ownerID] += delta
	return &model.Account{ID: ownerID, Credits: m.balances[ownerID], UpdatedAt: time.Now()}, nil
}

func (m *memAccountRepo) balance(owner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[owner]
}

// ---- In-memory RefundLedger ----

type memLedger struct {
	mu   sync.Mutex
	rows map[string]*model.CreditRefund
}

var _ repository.RefundLedger = (*memLedger)(nil)

func newMemLedger() *memLedger { return &memLedger{rows: map[string]*model.CreditRefund{}} }

func (m *memLedger) Record(ctx context.Context, tx repository.Tx, r *model.CreditRefund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.JobID]; ok {
		return domain.ErrAlreadyRefunded
	}
	cp := *r
	m.rows[r.JobID] = &cp
	return nil
}

func (m *memLedger) FindByJobID(ctx context.Context, tx repository.Tx, jobID string) (*model.CreditRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ---- Fake JobQueue ----

type fakeQueue struct {
	mu         sync.Mutex
	jobs       map[string]*model.Job
	order      []string
	EnqueueErr error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{jobs: map[string]*model.Job{}} }

func (q *fakeQueue) Enqueue(job *model.Job) (model.JobHandle, error) {
	if q.EnqueueErr != nil {
		return model.JobHandle{}, q.EnqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.ID] = job.Clone()
	q.order = append(q.order, job.ID)
	return model.JobHandle{ID: job.ID, Position: len(q.order) - 1}, nil
}

func (q *fakeQueue) Job(id string) (*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (q *fakeQueue) Cancel(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	return j.Cancel(time.Now())
}

func (q *fakeQueue) Status() model.QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	var s model.QueueSnapshot
	for _, id := range q.order {
		j := q.jobs[id]
		s.Stats.Count(j.Status)
		if j.Status == model.JobStatusPending {
			s.Pending = append(s.Pending, j.Clone())
		}
	}
	return s
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
	Keys  []string
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Keys = append(l.Keys, key)
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", errors.New("locked")
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
