package translation

import (
	"context"

	"translation-queue/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TranslationGateway = (*limitedGateway)(nil)

type limitedGateway struct {
	inner adapter.TranslationGateway
	sem   chan struct{}
}

// NewLimited caps in-flight calls to inner. A non-positive limit returns
// inner unchanged.
func NewLimited(inner adapter.TranslationGateway, maxConcurrent int) adapter.TranslationGateway {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedGateway{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedGateway) Name() string { return l.inner.Name() }

func (l *limitedGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Translate(ctx, req)
}
