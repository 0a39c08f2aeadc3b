package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/domain/quality"
	"translation-queue/internal/infra/metrics"
)

// RetryPolicy bounds the attempts made for one chunk.
type RetryPolicy struct {
	MaxAttempts int
	TimeoutBase time.Duration // first wait after a timeout-class failure
	TimeoutStep time.Duration // added per further timeout-class failure
	TimeoutMax  time.Duration
	Flat        time.Duration // wait after any other failure
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 10,
		TimeoutBase: 5 * time.Second,
		TimeoutStep: 2 * time.Second,
		TimeoutMax:  15 * time.Second,
		Flat:        2 * time.Second,
	}
}

// Backoff returns the wait after the failed attempt with 0-based index idx.
func (p RetryPolicy) Backoff(idx int, err error) time.Duration {
	if adapter.IsTimeout(err) {
		d := p.TimeoutBase + time.Duration(idx)*p.TimeoutStep
		if d > p.TimeoutMax {
			d = p.TimeoutMax
		}
		return d
	}
	return p.Flat
}

// ChunkFailure is returned once a chunk used all of its attempts.
type ChunkFailure struct {
	Index    int // 0-based
	Attempts int
	Err      error
}

func (f *ChunkFailure) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %v", f.Index+1, f.Attempts, f.Err)
}

func (f *ChunkFailure) Unwrap() error { return f.Err }

// ChunkRequest is one chunk to translate.
type ChunkRequest struct {
	Index          int
	Text           string
	SourceLanguage string
	TargetLanguage string
	Timeout        time.Duration // per attempt
}

// AttemptFunc observes every finished attempt. n is 1-based; err is nil on
// an accepted translation.
type AttemptFunc func(n int, err error)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChunkTranslator drives one chunk through the gateway and the quality
// check until an attempt is accepted or the policy is exhausted.
type ChunkTranslator struct {
	gw     adapter.TranslationGateway
	policy RetryPolicy
	sleep  sleepFunc
	log    *zerolog.Logger
}

func NewChunkTranslator(gw adapter.TranslationGateway, policy RetryPolicy, logger *zerolog.Logger) *ChunkTranslator {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	l := logger.With().Str("component", "retry").Logger()
	return &ChunkTranslator{gw: gw, policy: policy, sleep: sleepCtx, log: &l}
}

// Translate returns the accepted translation, a *ChunkFailure after the
// last attempt, or the context error when ctx ends first.
func (c *ChunkTranslator) Translate(ctx context.Context, req ChunkRequest, onAttempt AttemptFunc) (string, error) {
	var lastErr error
	for i := 0; i < c.policy.MaxAttempts; i++ {
		out, err := c.attempt(ctx, req)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		metrics.IncChunkAttempt(attemptResult(err))
		if onAttempt != nil {
			onAttempt(i+1, err)
		}
		if err == nil {
			return out, nil
		}
		lastErr = err

		if i == c.policy.MaxAttempts-1 {
			break
		}
		wait := c.policy.Backoff(i, err)
		c.log.Warn().Err(err).
			Int("chunk", req.Index).
			Int("attempt", i+1).
			Dur("backoff", wait).
			Msg("chunk attempt failed")
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", &ChunkFailure{Index: req.Index, Attempts: c.policy.MaxAttempts, Err: lastErr}
}

func (c *ChunkTranslator) attempt(ctx context.Context, req ChunkRequest) (string, error) {
	actx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	out, err := c.gw.Translate(actx, adapter.TranslationRequest{
		Text:           req.Text,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) && !adapter.IsTimeout(err) {
			err = fmt.Errorf("%w: %v", adapter.ErrGatewayTimeout, err)
		}
		return "", err
	}
	out = strings.TrimSpace(out)
	if err := quality.Check(out, req.Text, req.SourceLanguage, req.TargetLanguage); err != nil {
		return "", err
	}
	return out, nil
}

func attemptResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, quality.ErrRejected):
		return "rejected"
	case adapter.IsTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}
