package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"translation-queue/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.TranslationGateway = (*NLLBGateway)(nil)

// NLLBGateway calls a self-hosted NLLB HTTP service.
type NLLBGateway struct {
	url    string
	token  string
	client *http.Client
}

type nllbRequest struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	MaxLength int    `json:"max_length,omitempty"`
}

type nllbResponse struct {
	Result         string `json:"result"`
	TranslatedText string `json:"translated_text"`
	Translation    string `json:"translation"`
	Error          string `json:"error"`
}

func NewNLLBGateway(url, token string) (*NLLBGateway, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nllb: empty service url")
	}
	return &NLLBGateway{
		url:   url,
		token: token,
		// deadlines come from the caller's context
		client: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (g *NLLBGateway) Name() string { return "nllb" }

func (g *NLLBGateway) Translate(ctx context.Context, req adapter.TranslationRequest) (string, error) {
	body, err := json.Marshal(nllbRequest{
		Text:      req.Text,
		Source:    NLLBCode(req.SourceLanguage),
		Target:    NLLBCode(req.TargetLanguage),
		MaxLength: 1000,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if g.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		if adapter.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", adapter.ErrGatewayTimeout, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		if adapter.IsTimeout(err) {
			return "", fmt.Errorf("%w: %v", adapter.ErrGatewayTimeout, err)
		}
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: nllb http %d: %s", adapter.ErrGatewayRejected, resp.StatusCode, snippet(raw))
	}
	return decodeNLLB(raw)
}

func decodeNLLB(raw []byte) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", adapter.ErrEmptyResponse
		}
		return s, nil
	}
	var payload nllbResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: nllb decode: %v", adapter.ErrGatewayRejected, err)
	}
	for _, t := range []string{payload.Result, payload.TranslatedText, payload.Translation} {
		if t != "" {
			return t, nil
		}
	}
	if payload.Error != "" {
		return "", fmt.Errorf("%w: %s", adapter.ErrGatewayRejected, payload.Error)
	}
	return "", adapter.ErrEmptyResponse
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
