// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GatewayConfig struct {
	Provider        string        `yaml:"provider"` // nllb|openai|gemini|dev
	NLLBURL         string        `yaml:"nllb_url"`
	NLLBToken       string        `yaml:"nllb_token"`
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`          // per attempt, text jobs
	DocumentTimeout time.Duration `yaml:"document_timeout"` // per attempt, document jobs
	ConcurrentLimit int           `yaml:"concurrent_limit"`

	// Routes sends a target language to a provider other than Provider,
	// e.g. {"ja": "openai"}. Every routed provider needs its key set.
	Routes map[string]string `yaml:"routes"`
}

type QueueConfig struct {
	InterOpDelay      time.Duration `yaml:"inter_op_delay"`
	TextChunkSize     int           `yaml:"text_chunk_size"`
	DocumentChunkSize int           `yaml:"document_chunk_size"`
	MaxChunkAttempts  int           `yaml:"max_chunk_attempts"`
	MaxJobRetries     int           `yaml:"max_job_retries"`
}

type CreditsConfig struct {
	FreeCharacters   int     `yaml:"free_characters"`
	RatePerCharacter float64 `yaml:"rate_per_character"`
}

type AuthConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	CookieName string `yaml:"cookie_name"`
}

type APIConfig struct {
	RateLimit  int           `yaml:"rate_limit"` // submissions per window, 0 disables
	RateWindow time.Duration `yaml:"rate_window"`
}

type SchedConfig struct {
	RefundSweepInterval time.Duration `yaml:"refund_sweep_interval"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval"`
	Retention           time.Duration `yaml:"retention"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Queue    QueueConfig    `yaml:"queue"`
	Credits  CreditsConfig  `yaml:"credits"`
	Auth     AuthConfig     `yaml:"auth"`
	API      APIConfig      `yaml:"api"`
	Sched    SchedConfig    `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. An optional .env next to the
// working directory is loaded first and ${VAR} references in the file are
// expanded from the environment.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse expands environment references, unmarshals and applies defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 10 * time.Second
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)

	c.Gateway.Provider = strings.ToLower(strings.TrimSpace(c.Gateway.Provider))
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "nllb"
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 30 * time.Second
	}
	if c.Gateway.DocumentTimeout <= 0 {
		c.Gateway.DocumentTimeout = 25 * time.Second
	}
	if c.Gateway.ConcurrentLimit <= 0 {
		c.Gateway.ConcurrentLimit = 1
	}
	if c.Gateway.Model == "" {
		switch c.Gateway.Provider {
		case "gemini":
			c.Gateway.Model = "gemini-2.0-flash"
		default:
			c.Gateway.Model = "gpt-4o-mini"
		}
	}

	if c.Queue.InterOpDelay <= 0 {
		c.Queue.InterOpDelay = 2 * time.Second
	}
	if c.Queue.TextChunkSize <= 0 {
		c.Queue.TextChunkSize = 600
	}
	if c.Queue.DocumentChunkSize <= 0 {
		c.Queue.DocumentChunkSize = 300
	}
	if c.Queue.MaxChunkAttempts <= 0 {
		c.Queue.MaxChunkAttempts = 10
	}
	if c.Queue.MaxJobRetries < 0 {
		c.Queue.MaxJobRetries = 0
	} else if c.Queue.MaxJobRetries == 0 {
		c.Queue.MaxJobRetries = 2
	}

	if c.Credits.FreeCharacters <= 0 {
		c.Credits.FreeCharacters = 300
	}
	if c.Credits.RatePerCharacter <= 0 {
		c.Credits.RatePerCharacter = 0.1
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "session"
	}
	if c.API.RateWindow <= 0 {
		c.API.RateWindow = time.Minute
	}

	if c.Sched.RefundSweepInterval <= 0 {
		c.Sched.RefundSweepInterval = time.Minute
	}
	if c.Sched.CleanupInterval <= 0 {
		c.Sched.CleanupInterval = time.Hour
	}
	if c.Sched.Retention <= 0 {
		c.Sched.Retention = 24 * time.Hour
	}
}

// Minimal validation
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	for lang, p := range c.Gateway.Routes {
		if err := c.checkProvider(strings.ToLower(p)); err != nil {
			return fmt.Errorf("gateway.routes[%s]: %w", lang, err)
		}
	}
	return c.checkProvider(c.Gateway.Provider)
}

func (c *Config) checkProvider(provider string) error {
	switch provider {
	case "nllb":
		if c.Gateway.NLLBURL == "" {
			return errors.New("gateway.nllb_url is required for provider nllb")
		}
	case "openai":
		if c.Gateway.OpenAIKey == "" {
			return errors.New("gateway.openai_key is required for provider openai")
		}
	case "gemini":
		if c.Gateway.GeminiKey == "" {
			return errors.New("gateway.gemini_key is required for provider gemini")
		}
	case "dev":
		if !c.Runtime.Dev {
			return errors.New("gateway provider dev needs -dev")
		}
	default:
		return fmt.Errorf("unknown gateway provider %q", provider)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
