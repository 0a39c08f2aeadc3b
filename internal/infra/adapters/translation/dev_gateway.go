package translation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"translation-queue/internal/domain/ports/adapter"
)

var _ adapter.TranslationGateway = (*DevGateway)(nil)

// DevGateway is for local runs. It tags the input with the target language
// instead of calling a model.
type DevGateway struct {
	delay time.Duration
	log   *zerolog.Logger
}

func NewDevGateway(delay time.Duration, logger *zerolog.Logger) *DevGateway {
	l := logger.With().Str("component", "dev-gateway").Logger()
	return &DevGateway{delay: delay, log: &l}
}

func (d *DevGateway) Name() string { return "dev" }

func (d *DevGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	d.log.Debug().Str("target", req.TargetLanguage).Int("chars", len([]rune(req.Text))).Msg("dev translate")
	return fmt.Sprintf("[%s] %s", baseCode(req.TargetLanguage), req.Text), nil
}
