package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"translation-queue/internal/config"
	"translation-queue/internal/domain/ports/adapter"
)

// FromConfig builds the default provider plus every routed one, each
// instrumented and limited, behind a RoutedGateway.
func FromConfig(ctx context.Context, cfg config.GatewayConfig, logger *zerolog.Logger) (adapter.TranslationGateway, error) {
	providers := map[string]bool{cfg.Provider: true}
	for _, p := range cfg.Routes {
		providers[strings.ToLower(strings.TrimSpace(p))] = true
	}

	built := make(map[string]adapter.TranslationGateway, len(providers))
	for p := range providers {
		model := ""
		if p == cfg.Provider {
			model = cfg.Model
		}
		gw, err := newProvider(ctx, p, model, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("gateway %s: %w", p, err)
		}
		built[p] = NewLimited(NewInstrumented(gw), cfg.ConcurrentLimit)
		logger.Info().Str("provider", p).Str("model", model).Msg("translation gateway ready")
	}
	return NewRoutedGateway(cfg.Provider, built, cfg.Routes), nil
}

func newProvider(ctx context.Context, provider, model string, cfg config.GatewayConfig, logger *zerolog.Logger) (adapter.TranslationGateway, error) {
	switch provider {
	case "nllb":
		return NewNLLBGateway(cfg.NLLBURL, cfg.NLLBToken)
	case "openai":
		return NewOpenAIGateway(cfg.OpenAIKey, cfg.OpenAIBaseURL, model)
	case "gemini":
		return NewGeminiGateway(ctx, cfg.GeminiKey, cfg.GeminiURL, model, 0)
	case "dev":
		return NewDevGateway(200*time.Millisecond, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
