// Package config loads the service configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every configurable knob of the service.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Analyzer AnalyzerConfig
	AI       AIConfig
	Relay    RelayConfig
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Store.Driver == "redis" && c.Store.RedisAddr == "" {
		return fmt.Errorf("STORE_REDIS_ADDR is required for the redis driver")
	}

	switch c.Analyzer.Mode {
	case "remote":
		if c.Analyzer.URL == "" {
			return fmt.Errorf("ANALYZER_URL is required for remote analyzer mode")
		}
	case "llm":
		if !c.AI.Enabled() {
			return fmt.Errorf("llm analyzer mode requires Ark credentials and ARK_MODEL")
		}
	case "heuristic":
	default:
		return fmt.Errorf("invalid ANALYZER_MODE %q", c.Analyzer.Mode)
	}
	return nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:":8080"`
}

// StoreConfig selects and configures the transcript store driver.
type StoreConfig struct {
	Driver     string        `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath string        `env:"STORE_SQLITE_PATH" envDefault:"counsel.db"`
	RedisAddr  string        `env:"STORE_REDIS_ADDR"`
	RedisTTL   time.Duration `env:"STORE_REDIS_TTL" envDefault:"720h"`
}

// AnalyzerConfig selects the risk analyzer implementation.
type AnalyzerConfig struct {
	// remote: external analysis service over HTTP.
	// llm: Ark chat model via the counselor chain.
	// heuristic: keyword scorer, no external dependency.
	Mode    string        `env:"ANALYZER_MODE" envDefault:"heuristic"`
	URL     string        `env:"ANALYZER_URL"`
	Timeout time.Duration `env:"ANALYZER_TIMEOUT" envDefault:"15s"`
}

// AIConfig holds the Ark chat-model credentials for llm analyzer mode.
type AIConfig struct {
	APIKey    string `env:"ARK_API_KEY"`
	AccessKey string `env:"ARK_ACCESS_KEY"`
	SecretKey string `env:"ARK_SECRET_KEY"`
	Model     string `env:"ARK_MODEL"`
	BaseURL   string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region    string `env:"ARK_REGION" envDefault:"cn-beijing"`
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   c.BaseURL,
		Region:    c.Region,
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Model:     c.Model,
	})
}

// RelayConfig carries the relay's policy parameters.
type RelayConfig struct {
	HistoryWindow int           `env:"RELAY_HISTORY_WINDOW" envDefault:"20"`
	InboxDepth    int           `env:"RELAY_INBOX_DEPTH" envDefault:"32"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
}
