package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment and optionally overridden by
// flags in main.
type Config struct {
	ServerAddr         string        `envconfig:"SERVER_ADDR" default:":8000"`
	DatabaseDSN        string        `envconfig:"DATABASE_DSN"`
	AllowedOrigins     []string      `envconfig:"ALLOWED_ORIGINS"`
	OpenAIAPIKey       string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel        string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	TranslationTimeout time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"15s"`
	RateLimitPerSecond int           `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
}

const envPrefix = "LINGOCHAT"

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("translation timeout must be positive")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}
