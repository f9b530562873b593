package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"jan-server/services/chat-api/internal/domain/provider"
)

var globalConfig *Config

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all environment backed configuration for chat-api.
type Config struct {
	// HTTP Server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort        int      `env:"METRICS_PORT" envDefault:"9091"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Storage
	StoreDriver          string        `env:"STORE_DRIVER" envDefault:"postgres"`
	DBPostgresqlWriteDSN string        `env:"DB_POSTGRESQL_WRITE_DSN"`
	DBPostgresqlRead1DSN string        `env:"DB_POSTGRESQL_READ1_DSN"`
	DBMaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnMaxLifetime    time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate          bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Redis backs the per-conversation title lock. Empty means in-process locking.
	RedisURL string `env:"REDIS_URL"`

	// Providers
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `env:"OPENAI_BASE_URL"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	XAIAPIKey           string `env:"XAI_API_KEY"`
	XAIBaseURL          string `env:"XAI_BASE_URL" envDefault:"https://api.x.ai/v1"`
	ProviderCatalogPath string `env:"PROVIDER_CATALOG_PATH"`

	// Chat orchestration
	ChatTimeout        time.Duration `env:"CHAT_TIMEOUT" envDefault:"30s"`
	TitleTimeout       time.Duration `env:"TITLE_TIMEOUT" envDefault:"10s"`
	TitleModelProvider string        `env:"TITLE_MODEL_PROVIDER" envDefault:"openai"`
	TitleModel         string        `env:"TITLE_MODEL" envDefault:"gpt-4o-mini"`
	SystemPrompt       string        `env:"SYSTEM_PROMPT"`

	// Auth
	AuthEnabled         bool          `env:"AUTH_ENABLED" envDefault:"false"`
	Issuer              string        `env:"AUTH_ISSUER"`
	Audience            string        `env:"AUTH_AUDIENCE"`
	JWKSURL             string        `env:"AUTH_JWKS_URL"`
	RefreshJWKSInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`
	AuthClockSkew       time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"60s"`
	DebugSecret         string        `env:"DEBUG_SECRET"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"chat-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"jan"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
	EnableSwagger    bool   `env:"ENABLE_SWAGGER" envDefault:"true"`

	Catalog       *provider.Catalog `env:"-"`
	EnvReloadedAt time.Time         `env:"-"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func (c *Config) finalize() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.DBPostgresqlWriteDSN == "" {
			return errors.New("DB_POSTGRESQL_WRITE_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	if c.AuthEnabled {
		if c.JWKSURL == "" {
			return errors.New("AUTH_JWKS_URL must be provided when AUTH_ENABLED=true")
		}
		if _, err := url.ParseRequestURI(c.JWKSURL); err != nil {
			return fmt.Errorf("invalid AUTH_JWKS_URL: %w", err)
		}
		if c.Issuer == "" {
			return errors.New("AUTH_ISSUER must be provided when AUTH_ENABLED=true")
		}
	}

	if c.ChatTimeout <= 0 || c.TitleTimeout <= 0 {
		return errors.New("CHAT_TIMEOUT and TITLE_TIMEOUT must be positive")
	}

	catalog := provider.DefaultCatalog()
	if path := strings.TrimSpace(c.ProviderCatalogPath); path != "" {
		loaded, err := LoadCatalog(path)
		if err != nil {
			return fmt.Errorf("load provider catalog: %w", err)
		}
		catalog = loaded
	}
	if !catalog.Supports(c.TitleModelProvider, c.TitleModel) {
		return fmt.Errorf("title model %s/%s is not in the provider catalog", c.TitleModelProvider, c.TitleModel)
	}
	c.Catalog = catalog

	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.EnvReloadedAt = time.Now()
	return nil
}

// GetGlobal returns the config produced by the last successful Load.
func GetGlobal() *Config {
	return globalConfig
}

// IsProduction reports whether ENVIRONMENT names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// SecretStatus reports which provider and infrastructure secrets are present without exposing them.
func (c *Config) SecretStatus() map[string]bool {
	return map[string]bool{
		"OPENAI_API_KEY":          c.OpenAIAPIKey != "",
		"GEMINI_API_KEY":          c.GeminiAPIKey != "",
		"XAI_API_KEY":             c.XAIAPIKey != "",
		"DB_POSTGRESQL_WRITE_DSN": c.DBPostgresqlWriteDSN != "",
		"REDIS_URL":               c.RedisURL != "",
		"AUTH_JWKS_URL":           c.JWKSURL != "",
		"DEBUG_SECRET":            c.DebugSecret != "",
	}
}

var Version = "dev"
