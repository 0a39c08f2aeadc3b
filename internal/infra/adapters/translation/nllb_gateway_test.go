package translation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"translation-queue/internal/domain/ports/adapter"
	"translation-queue/internal/infra/adapters/translation"
)

func nllbServer(t *testing.T, h http.HandlerFunc) *translation.NLLBGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := translation.NewNLLBGateway(srv.URL, "tok")
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func TestNLLB_SendsMappedCodes(t *testing.T) {
	t.Parallel()
	var got map[string]any
	var auth string
	g := nllbServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"result":"Bonjou, kijan ou ye?"}`))
	})

	out, err := g.Translate(context.Background(), adapter.TranslationRequest{
		Text: "Hello, how are you?", SourceLanguage: "en", TargetLanguage: "ht",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "Bonjou, kijan ou ye?" {
		t.Fatalf("unexpected output %q", out)
	}
	if got["source"] != "eng_Latn" || got["target"] != "hat_Latn" {
		t.Fatalf("codes not mapped: %v", got)
	}
	if auth != "Bearer tok" {
		t.Fatalf("missing bearer token, got %q", auth)
	}
}

func TestNLLB_ResponseShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want string
		err  error
	}{
		{"result", `{"result":"a"}`, "a", nil},
		{"translated_text", `{"translated_text":"b"}`, "b", nil},
		{"translation", `{"translation":"c"}`, "c", nil},
		{"bare string", `"d"`, "d", nil},
		{"empty", `{}`, "", adapter.ErrEmptyResponse},
		{"error field", `{"error":"model not loaded"}`, "", adapter.ErrGatewayRejected},
		{"garbage", `<html>`, "", adapter.ErrGatewayRejected},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := nllbServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			out, err := g.Translate(context.Background(), adapter.TranslationRequest{Text: "x", TargetLanguage: "fr"})
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil || out != tc.want {
				t.Fatalf("got %q, %v", out, err)
			}
		})
	}
}

func TestNLLB_HTTPErrorIsRejected(t *testing.T) {
	t.Parallel()
	g := nllbServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	_, err := g.Translate(context.Background(), adapter.TranslationRequest{Text: "x", TargetLanguage: "fr"})
	if !errors.Is(err, adapter.ErrGatewayRejected) {
		t.Fatalf("expected rejected, got %v", err)
	}
	if adapter.IsTimeout(err) {
		t.Fatal("http error must not be timeout class")
	}
}

func TestNLLB_DeadlineIsTimeoutClass(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	g := nllbServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	// Registered after the server so it runs before srv.Close (cleanups are LIFO).
	t.Cleanup(func() { close(release) })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Translate(ctx, adapter.TranslationRequest{Text: "x", TargetLanguage: "fr"})
	if !adapter.IsTimeout(err) {
		t.Fatalf("expected timeout class, got %v", err)
	}
}

func TestNewNLLBGateway_RequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := translation.NewNLLBGateway(" ", ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}
