package translation

import (
	"context"
	"time"

	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/infra/metrics"
)

var _ adapter.TranslationGateway = (*instrumentedGateway)(nil)

type instrumentedGateway struct {
	inner adapter.TranslationGateway
	now   func() time.Time
}

// NewInstrumented records call latency per provider.
func NewInstrumented(inner adapter.TranslationGateway) adapter.TranslationGateway {
	return &instrumentedGateway{inner: inner, now: time.Now}
}

func (g *instrumentedGateway) Name() string { return g.inner.Name() }

func (g *instrumentedGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	start := g.now()
	out, err := g.inner.Translate(ctx, req)
	metrics.ObserveGatewayCall(g.inner.Name(), g.now().Sub(start).Milliseconds(), err == nil)
	return out, err
}
