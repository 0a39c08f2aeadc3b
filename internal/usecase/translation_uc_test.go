//go:build !integration

package usecase_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/domain/ports/repository"
	"translation-queue/internal/infra/worker"
	"translation-queue/internal/usecase"
)

var testPricing = usecase.Pricing{FreeCharacters: 300, RatePerCharacter: 0.1}

type ucDeps struct {
	jobs     *memJobRepo
	accounts *memAccountRepo
	ledger   *memLedger
	queue    *fakeQueue
}

func newUC(t *testing.T, balances map[string]int) (usecase.TranslationUseCase, *ucDeps) {
	t.Helper()
	d := &ucDeps{
		jobs:     newMemJobRepo(),
		accounts: newMemAccountRepo(balances),
		ledger:   newMemLedger(),
		queue:    newFakeQueue(),
	}
	tm := NewMockTxManager()
	credits := usecase.NewCreditReconciler(d.accounts, d.ledger, d.jobs, tm, NewMockLocker(), newTestLogger())
	uc := usecase.NewTranslationUseCase(d.jobs, d.accounts, tm, d.queue, credits, testPricing, newTestLogger())
	return uc, d
}

// chars returns an ASCII payload of exactly n characters.
func chars(n int) string {
	return strings.Repeat("abcd ", n/5+1)[:n]
}

func TestEstimateCredits(t *testing.T) {
	cases := []struct {
		chars, want int
	}{
		{0, 0},
		{300, 0},
		{301, 1},
		{310, 1},
		{311, 2},
		{800, 50},
		{1300, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, usecase.EstimateCredits(tc.chars, 300, 0.1), "chars=%d", tc.chars)
	}
	assert.Equal(t, 0, usecase.EstimateCredits(5000, 300, 0))
}

func TestSubmit_DebitsAndEnqueues(t *testing.T) {
	uc, d := newUC(t, map[string]int{"u1": 120})

	res, err := uc.Submit(context.Background(), usecase.SubmitRequest{
		Kind:           model.JobKindText,
		SourceLanguage: "en",
		TargetLanguage: "fr",
		Payload:        chars(800),
		OwnerID:        "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Credits)
	assert.Equal(t, 0, res.Position)
	assert.Equal(t, 70, d.accounts.balance("u1"))

	stored := d.jobs.get(res.JobID)
	require.NotNil(t, stored)
	assert.Equal(t, model.JobStatusPending, stored.Status)
	assert.Equal(t, 50, stored.CreditsDebited)

	queued, err := d.queue.Job(res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "u1", queued.OwnerID)
}

func TestSubmit_FreeAllowanceNeedsNoAccount(t *testing.T) {
	uc, d := newUC(t, nil)
	res, err := uc.Submit(context.Background(), usecase.SubmitRequest{
		Kind:           model.JobKindText,
		SourceLanguage: "auto",
		TargetLanguage: "ht",
		Payload:        "Hello, how are you?",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Credits)
	assert.Equal(t, 1, d.jobs.count())
}

func TestSubmit_InsufficientCredits(t *testing.T) {
	for name, balances := range map[string]map[string]int{
		"short balance": {"u1": 49},
		"no account":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			uc, d := newUC(t, balances)
			_, err := uc.Submit(context.Background(), usecase.SubmitRequest{
				Kind:           model.JobKindText,
				SourceLanguage: "en",
				TargetLanguage: "fr",
				Payload:        chars(800),
				OwnerID:        "u1",
			})
			require.ErrorIs(t, err, domain.ErrInsufficientCredits)
			assert.Equal(t, 0, d.jobs.count(), "no job row may exist")
			assert.Empty(t, d.queue.Status().Pending)
			assert.Equal(t, balances["u1"], d.accounts.balance("u1"))
		})
	}
}

func TestSubmit_AnonymousOverAllowance(t *testing.T) {
	uc, d := newUC(t, nil)
	_, err := uc.Submit(context.Background(), usecase.SubmitRequest{
		Kind:           model.JobKindText,
		SourceLanguage: "en",
		TargetLanguage: "fr",
		Payload:        chars(301),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, 0, d.jobs.count())
}

func TestSubmit_RejectsBadRequests(t *testing.T) {
	cases := []struct {
		name    string
		req     usecase.SubmitRequest
		wantErr error
	}{
		{"unsupported source", usecase.SubmitRequest{Kind: model.JobKindText, SourceLanguage: "english", TargetLanguage: "fr", Payload: "hi"}, domain.ErrUnsupportedLanguage},
		{"auto target", usecase.SubmitRequest{Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "auto", Payload: "hi"}, domain.ErrUnsupportedLanguage},
		{"same language", usecase.SubmitRequest{Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "en-US", Payload: "hi"}, domain.ErrInvalidArgument},
		{"empty payload", usecase.SubmitRequest{Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "fr", Payload: "  \n"}, domain.ErrEmptyPayload},
		{"unknown kind", usecase.SubmitRequest{Kind: "audio", SourceLanguage: "en", TargetLanguage: "fr", Payload: "hi"}, domain.ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, d := newUC(t, nil)
			_, err := uc.Submit(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 0, d.jobs.count())
		})
	}
}

func TestSubmit_EnqueueFailureCompensates(t *testing.T) {
	uc, d := newUC(t, map[string]int{"u1": 100})
	d.queue.EnqueueErr = domain.ErrQueueClosed

	_, err := uc.Submit(context.Background(), usecase.SubmitRequest{
		Kind:           model.JobKindText,
		SourceLanguage: "en",
		TargetLanguage: "de",
		Payload:        chars(800),
		OwnerID:        "u1",
	})
	require.ErrorIs(t, err, domain.ErrQueueClosed)
	assert.Equal(t, 100, d.accounts.balance("u1"), "debit must be returned")

	require.Equal(t, 1, d.jobs.count())
	var stored *model.Job
	for _, j := range d.jobs.jobs {
		stored = j
	}
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	assert.True(t, strings.HasPrefix(stored.Error, "not queued: "))
	assert.Equal(t, 50, stored.CreditsRefunded)
}

func TestGetStatus_QueueThenStore(t *testing.T) {
	ctx := context.Background()
	uc, d := newUC(t, nil)

	res, err := uc.Submit(ctx, usecase.SubmitRequest{
		Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "fr", Payload: "hello",
	})
	require.NoError(t, err)
	v, err := uc.GetStatus(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, v.Status)
	assert.Empty(t, v.TranslatedText)

	// a job the queue no longer remembers is served from the store
	done, _ := model.NewJob(model.JobKindText, "en", "fr", "x", "", 0, nil)
	require.NoError(t, d.jobs.Create(ctx, nil, done))
	out := "bonjour"
	total, completed, progress := 3, 3, 100
	now := time.Now()
	require.NoError(t, d.jobs.UpdateJobStatus(ctx, nil, done.ID, model.JobStatusCompleted, repository.JobUpdate{
		TranslatedText:     &out,
		TotalChunks:        &total,
		CompletedChunks:    &completed,
		ProgressPercentage: &progress,
		CompletedAt:        &now,
	}))

	v, err = uc.GetStatus(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, v.Status)
	assert.Equal(t, "bonjour", v.TranslatedText)
	assert.Equal(t, 3, v.TotalChunks)
	assert.Equal(t, 100, v.Progress)

	_, err = uc.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetStatus_HidesOutputUnlessCompleted(t *testing.T) {
	ctx := context.Background()
	uc, d := newUC(t, nil)

	j, _ := model.NewJob(model.JobKindText, "en", "fr", "x", "", 0, nil)
	require.NoError(t, d.jobs.Create(ctx, nil, j))
	out, msg := "partial", "chunk 2 failed after 10 attempts: boom"
	require.NoError(t, d.jobs.UpdateJobStatus(ctx, nil, j.ID, model.JobStatusFailed, repository.JobUpdate{
		TranslatedText: &out,
		ErrorMessage:   &msg,
	}))

	v, err := uc.GetStatus(ctx, j.ID)
	require.NoError(t, err)
	assert.Empty(t, v.TranslatedText)
	assert.Equal(t, msg, v.Error)
}

func TestCancel_Ownership(t *testing.T) {
	ctx := context.Background()
	uc, d := newUC(t, map[string]int{"u1": 100})

	res, err := uc.Submit(ctx, usecase.SubmitRequest{
		Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "fr", Payload: chars(400), OwnerID: "u1",
	})
	require.NoError(t, err)

	require.ErrorIs(t, uc.Cancel(ctx, res.JobID, "intruder"), domain.ErrNotFound)
	require.NoError(t, uc.Cancel(ctx, res.JobID, "u1"))

	queued, _ := d.queue.Job(res.JobID)
	assert.Equal(t, model.JobStatusCancelled, queued.Status)
	require.ErrorIs(t, uc.Cancel(ctx, res.JobID, "u1"), domain.ErrJobNotCancellable)
}

func TestCancel_StoredJobUnknownToQueue(t *testing.T) {
	ctx := context.Background()
	uc, d := newUC(t, nil)
	j, _ := model.NewJob(model.JobKindText, "en", "fr", "x", "", 0, nil)
	require.NoError(t, d.jobs.Create(ctx, nil, j))

	assert.ErrorIs(t, uc.Cancel(ctx, j.ID, ""), domain.ErrJobNotCancellable)
}

type echoGateway struct{ calls atomic.Int32 }

func (g *echoGateway) Name() string { return "echo" }

func (g *echoGateway) Translate(_ context.Context, req adapter.TranslationRequest) (string, error) {
	g.calls.Add(1)
	return req.Text, nil
}

// A job that can never pass validation ends failed with its debit returned
// exactly once.
func TestSubmit_FailedJobRestoresBalance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobs := newMemJobRepo()
	accounts := newMemAccountRepo(map[string]int{"u1": 120})
	tm := NewMockTxManager()
	logger := newTestLogger()
	credits := usecase.NewCreditReconciler(accounts, newMemLedger(), jobs, tm, NewMockLocker(), logger)

	gw := &echoGateway{}
	translator := worker.NewChunkTranslator(gw, worker.RetryPolicy{MaxAttempts: 10}, logger)
	q := worker.NewQueue(translator, jobs, credits, worker.QueueOptions{MaxJobRetries: 2, TextChunkSize: 1000}, logger)
	go q.Run(ctx)

	uc := usecase.NewTranslationUseCase(jobs, accounts, tm, q, credits, testPricing, logger)
	res, err := uc.Submit(ctx, usecase.SubmitRequest{
		Kind:           model.JobKindText,
		SourceLanguage: "en",
		TargetLanguage: "fr",
		Payload:        chars(800),
		OwnerID:        "u1",
	})
	require.NoError(t, err)
	require.Equal(t, 50, res.Credits)

	require.Eventually(t, func() bool {
		j := jobs.get(res.JobID)
		return j != nil && j.Status == model.JobStatusFailed && j.CreditsRefunded == 50
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 120, accounts.balance("u1"))
	assert.Equal(t, int32(30), gw.calls.Load())

	v, err := uc.GetStatus(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, v.Status)
	assert.Equal(t, 2, v.RetryCount)
	assert.True(t, strings.Contains(v.Error, "failed after 10 attempts"), v.Error)

	// a later sweep finds nothing owed
	n, err := credits.Sweep(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 120, accounts.balance("u1"))
}

func TestQueue_Snapshot(t *testing.T) {
	uc, _ := newUC(t, nil)
	for i := 0; i < 2; i++ {
		_, err := uc.Submit(context.Background(), usecase.SubmitRequest{
			Kind: model.JobKindText, SourceLanguage: "en", TargetLanguage: "fr", Payload: "hi",
		})
		require.NoError(t, err)
	}
	s := uc.Queue()
	assert.Equal(t, 2, s.Stats.Pending)
	assert.Len(t, s.Pending, 2)
}
