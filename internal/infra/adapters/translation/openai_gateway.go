package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/infra/metrics"
)

// Compile-time assurance this gateway satisfies the port
var _ adapter.TranslationGateway = (*OpenAIGateway)(nil)

// OpenAIGateway translates through the Chat Completions API. The base URL
// may point at any compatible server.
type OpenAIGateway struct {
	client openai.Client
	model  string
	enc    *tiktoken.Tiktoken
}

func NewOpenAIGateway(apiKey, baseURL, model string) (*OpenAIGateway, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &OpenAIGateway{
		client: openai.NewClient(opts...),
		model:  model,
		enc:    enc,
	}, nil
}

func (o *OpenAIGateway) Name() string { return "openai" }

// CountTokens counts cl100k tokens in text.
func (o *OpenAIGateway) CountTokens(text string) int {
	if o.enc == nil {
		return 0
	}
	return len(o.enc.Encode(text, nil, nil))
}

// outputBudget leaves room for scripts that expand when translated.
func (o *OpenAIGateway) outputBudget(text string) int64 {
	n := int64(o.CountTokens(text))*3 + 64
	if n > 4096 {
		n = 4096
	}
	return n
}

func (o *OpenAIGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(req)),
			openai.UserMessage(req.Text),
		},
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(o.outputBudget(req.Text)),
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}
	metrics.AddGatewayTokens(o.Name(), int(completion.Usage.PromptTokens), int(completion.Usage.CompletionTokens))

	for _, c := range completion.Choices {
		if t := strings.TrimSpace(c.Message.Content); t != "" {
			return c.Message.Content, nil
		}
	}
	return "", adapter.ErrEmptyResponse
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if adapter.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", adapter.ErrGatewayTimeout, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 408 || apiErr.StatusCode == 504 {
			return fmt.Errorf("%w: openai http %d", adapter.ErrGatewayTimeout, apiErr.StatusCode)
		}
		return fmt.Errorf("%w: openai http %d", adapter.ErrGatewayRejected, apiErr.StatusCode)
	}
	return fmt.Errorf("openai call failed: %w", err)
}
