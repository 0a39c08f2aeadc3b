//go:build !integration

package postgres

import (
	"context"
	"time"

	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
	red "translation-queue/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerJobRepo mocks the database repository that the job decorator wraps.
type mockInnerJobRepo struct {
	FindByIDFunc        func(ctx context.Context, tx repository.Tx, id string) (*model.Job, error)
	UpdateJobStatusFunc func(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error
	MarkRefundedFunc    func(ctx context.Context, tx repository.Tx, jobID string, amount int) error
}

func (m *mockInnerJobRepo) Create(ctx context.Context, tx repository.Tx, j *model.Job) error {
	return nil
}
func (m *mockInnerJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerJobRepo) UpdateJobStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error {
	return m.UpdateJobStatusFunc(ctx, tx, jobID, status, upd)
}
func (m *mockInnerJobRepo) ListRefundPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	return nil, nil
}
func (m *mockInnerJobRepo) MarkRefunded(ctx context.Context, tx repository.Tx, jobID string, amount int) error {
	return m.MarkRefundedFunc(ctx, tx, jobID, amount)
}
func (m *mockInnerJobRepo) FailInterrupted(ctx context.Context, tx repository.Tx, reason string, at time.Time) (int64, error) {
	return 0, nil
}
func (m *mockInnerJobRepo) DeleteTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	return 0, nil
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
