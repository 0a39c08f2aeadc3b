// File: internal/usecase/translation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
	"translation-queue/internal/domain/quality"
	"translation-queue/internal/infra/logging"
)

// Compile-time check
var _ TranslationUseCase = (*translationUC)(nil)

// JobQueue is the live queue the use case submits to.
type JobQueue interface {
	Enqueue(job *model.Job) (model.JobHandle, error)
	Job(id string) (*model.Job, error)
	Cancel(ctx context.Context, id string) error
	Status() model.QueueSnapshot
}

type SubmitRequest struct {
	Kind           model.JobKind
	SourceLanguage string
	TargetLanguage string
	Payload        string
	OwnerID        string
	File           *model.FileInfo
	// Credits overrides pricing when set.
	Credits *int
}

type SubmitResult struct {
	JobID    string
	Position int
	Credits  int
}

// JobStatusView is what status polling returns. TranslatedText is only set
// for completed jobs.
type JobStatusView struct {
	ID              string
	Status          model.JobStatus
	Progress        int
	TranslatedText  string
	Error           string
	TotalChunks     int
	CompletedChunks int
	RetryCount      int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

type TranslationUseCase interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	GetStatus(ctx context.Context, jobID string) (*JobStatusView, error)
	// Cancel checks ownership; jobs of other owners look missing.
	Cancel(ctx context.Context, jobID, ownerID string) error
	Queue() model.QueueSnapshot
	Estimate(text string) (characters, credits int)
}

// Pricing is the character-based credit tariff.
type Pricing struct {
	FreeCharacters   int
	RatePerCharacter float64
}

type translationUC struct {
	jobs     repository.TranslationJobRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	queue    JobQueue
	credits  CreditReconciler
	pricing  Pricing
	log      *zerolog.Logger
}

func NewTranslationUseCase(
	jobs repository.TranslationJobRepository,
	accounts repository.AccountRepository,
	tm repository.TransactionManager,
	queue JobQueue,
	credits CreditReconciler,
	pricing Pricing,
	logger *zerolog.Logger,
) *translationUC {
	return &translationUC{
		jobs:     jobs,
		accounts: accounts,
		tm:       tm,
		queue:    queue,
		credits:  credits,
		pricing:  pricing,
		log:      logger,
	}
}

// EstimateCredits prices characters beyond the free allowance, rounding up.
func EstimateCredits(characters, free int, rate float64) int {
	billable := characters - free
	if billable <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Ceil(float64(billable) * rate))
}

var langCodeRe = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z0-9]{2,8})?$`)

func validLanguage(code string, allowAuto bool) bool {
	if allowAuto && strings.EqualFold(code, "auto") {
		return true
	}
	return langCodeRe.MatchString(code)
}

func (u *translationUC) Estimate(text string) (int, int) {
	n := utf8.RuneCountInString(text)
	return n, EstimateCredits(n, u.pricing.FreeCharacters, u.pricing.RatePerCharacter)
}

func (u *translationUC) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "TranslationUC.Submit")()

	src := strings.TrimSpace(req.SourceLanguage)
	dst := strings.TrimSpace(req.TargetLanguage)
	if !validLanguage(src, true) || !validLanguage(dst, false) {
		return nil, fmt.Errorf("%q -> %q: %w", src, dst, domain.ErrUnsupportedLanguage)
	}
	if quality.Normalize(src) == quality.Normalize(dst) {
		return nil, fmt.Errorf("source and target are both %q: %w", dst, domain.ErrInvalidArgument)
	}

	credits := 0
	if req.Credits != nil {
		credits = *req.Credits
	} else {
		_, credits = u.Estimate(req.Payload)
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" && credits > 0 {
		return nil, fmt.Errorf("anonymous job needs %d credits: %w", credits, domain.ErrInsufficientCredits)
	}

	job, err := model.NewJob(req.Kind, src, dst, req.Payload, owner, credits, req.File)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if credits > 0 {
			balance, err := u.accounts.GetAccountCredits(ctx, tx, owner)
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrInsufficientCredits
			}
			if err != nil {
				return err
			}
			if balance < credits {
				return domain.ErrInsufficientCredits
			}
			if err := u.accounts.SetAccountCredits(ctx, tx, owner, balance-credits); err != nil {
				return err
			}
		}
		return u.jobs.Create(ctx, tx, job)
	})
	if err != nil {
		return nil, err
	}

	h, err := u.queue.Enqueue(job)
	if err != nil {
		u.compensate(ctx, job, err)
		return nil, err
	}
	log.Info().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Int("credits", credits).
		Int("position", h.Position).
		Msg("job submitted")
	return &SubmitResult{JobID: job.ID, Position: h.Position, Credits: credits}, nil
}

// compensate fails a stored job that never reached the queue and returns
// its credits.
func (u *translationUC) compensate(ctx context.Context, job *model.Job, cause error) {
	now := time.Now()
	msg := "not queued: " + cause.Error()
	_ = job.Fail(now, msg)
	if err := u.jobs.UpdateJobStatus(ctx, repository.NoTX, job.ID, model.JobStatusFailed, repository.JobUpdate{
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("failed to mark unqueued job")
	}
	if u.credits == nil {
		return
	}
	if _, err := u.credits.RefundJob(ctx, job); err != nil {
		u.log.Error().Err(err).Str("job_id", job.ID).Msg("refund of unqueued job failed")
	}
}

func (u *translationUC) find(ctx context.Context, jobID string) (*model.Job, error) {
	if j, err := u.queue.Job(jobID); err == nil {
		return j, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return u.jobs.FindByID(ctx, repository.NoTX, jobID)
}

func (u *translationUC) GetStatus(ctx context.Context, jobID string) (*JobStatusView, error) {
	j, err := u.find(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return toStatusView(j), nil
}

func toStatusView(j *model.Job) *JobStatusView {
	v := &JobStatusView{
		ID:              j.ID,
		Status:          j.Status,
		Progress:        j.Progress(),
		TotalChunks:     j.TotalChunks(),
		CompletedChunks: j.CompletedChunks(),
		RetryCount:      j.RetryCount,
		CreatedAt:       j.CreatedAt,
		CompletedAt:     j.CompletedAt,
	}
	switch j.Status {
	case model.JobStatusCompleted:
		v.TranslatedText = j.Output
	case model.JobStatusFailed, model.JobStatusCancelled:
		v.Error = j.Error
	}
	return v
}

func (u *translationUC) Cancel(ctx context.Context, jobID, ownerID string) error {
	j, err := u.find(ctx, jobID)
	if err != nil {
		return err
	}
	if j.OwnerID != "" && j.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	if j.Status.IsTerminal() {
		return domain.ErrJobNotCancellable
	}
	if err := u.queue.Cancel(ctx, jobID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// stored as running but unknown to this process
			return domain.ErrJobNotCancellable
		}
		return err
	}
	return nil
}

func (u *translationUC) Queue() model.QueueSnapshot { return u.queue.Status() }
