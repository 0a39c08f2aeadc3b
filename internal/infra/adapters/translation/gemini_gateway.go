package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/infra/metrics"
)

var _ adapter.TranslationGateway = (*GeminiGateway)(nil)

type GeminiGateway struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiGateway creates a Gemini gateway using the official SDK.
func NewGeminiGateway(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiGateway, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxOut <= 0 {
		maxOut = 2048
	}
	return &GeminiGateway{client: c, model: model, maxOut: maxOut}, nil
}

func (g *GeminiGateway) Name() string { return "gemini" }

func (g *GeminiGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, &genai.GenerateContentConfig{
		MaxOutputTokens:   int32(g.maxOut),
		SystemInstruction: genai.NewContentFromText(systemPrompt(req), genai.RoleUser),
	}, nil)
	if err != nil {
		return "", err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: req.Text})
	if err != nil {
		if adapter.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", adapter.ErrGatewayTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", adapter.ErrGatewayRejected, err)
	}
	if resp != nil && resp.UsageMetadata != nil {
		metrics.AddGatewayTokens(g.Name(), int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		text = sb.String()
	}
	if strings.TrimSpace(text) == "" {
		return "", adapter.ErrEmptyResponse
	}
	return text, nil
}
