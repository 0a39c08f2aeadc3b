package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  url: postgres://x\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Queue.InterOpDelay != 2*time.Second {
		t.Errorf("inter-op delay: got %v", cfg.Queue.InterOpDelay)
	}
	if cfg.Queue.TextChunkSize != 600 || cfg.Queue.DocumentChunkSize != 300 {
		t.Errorf("chunk sizes: got %d/%d", cfg.Queue.TextChunkSize, cfg.Queue.DocumentChunkSize)
	}
	if cfg.Queue.MaxChunkAttempts != 10 || cfg.Queue.MaxJobRetries != 2 {
		t.Errorf("retry caps: got %d/%d", cfg.Queue.MaxChunkAttempts, cfg.Queue.MaxJobRetries)
	}
	if cfg.Gateway.Timeout != 30*time.Second || cfg.Gateway.DocumentTimeout != 25*time.Second {
		t.Errorf("timeouts: got %v/%v", cfg.Gateway.Timeout, cfg.Gateway.DocumentTimeout)
	}
	if cfg.Gateway.Provider != "nllb" {
		t.Errorf("provider: got %q", cfg.Gateway.Provider)
	}
	if cfg.Sched.Retention != 24*time.Hour {
		t.Errorf("retention: got %v", cfg.Sched.Retention)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("TQ_TEST_KEY", "sk-123")
	cfg, err := Parse([]byte("gateway:\n  provider: OpenAI\n  openai_key: ${TQ_TEST_KEY}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Gateway.OpenAIKey != "sk-123" {
		t.Errorf("expected expanded key, got %q", cfg.Gateway.OpenAIKey)
	}
	if cfg.Gateway.Provider != "openai" {
		t.Errorf("expected normalized provider, got %q", cfg.Gateway.Provider)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	dir := t.TempDir()
	write := func(body string) string {
		p := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}

	cases := []struct {
		name string
		body string
		dev  bool
		ok   bool
	}{
		{"missing database", "redis:\n  url: localhost:6379\n", false, false},
		{"missing redis", "database:\n  url: postgres://x\n", false, false},
		{"nllb without url", "database:\n  url: postgres://x\nredis:\n  url: r\n", false, false},
		{"dev provider outside dev", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  provider: dev\n", false, false},
		{"dev provider in dev", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  provider: dev\n", true, true},
		{"unknown provider", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  provider: deepl\n", false, false},
		{"route to unconfigured provider", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  nllb_url: http://nllb\n  routes:\n    ja: openai\n", false, false},
		{"route to configured provider", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  nllb_url: http://nllb\n  openai_key: sk\n  routes:\n    ja: OpenAI\n", false, true},
		{"valid nllb", "database:\n  url: postgres://x\nredis:\n  url: r\ngateway:\n  nllb_url: http://nllb\n", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(write(tc.body), tc.dev)
			if tc.ok && err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
