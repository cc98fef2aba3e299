package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_defaults(t *testing.T) {
	t.Setenv("LINGOCHAT_DATABASE_DSN", "host=localhost dbname=lingochat sslmode=disable")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ServerAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, 15*time.Second, cfg.TranslationTimeout)
	assert.Equal(t, 2, cfg.RateLimitPerSecond)
}

func TestNewConfig_overrides(t *testing.T) {
	t.Setenv("LINGOCHAT_SERVER_ADDR", ":9999")
	t.Setenv("LINGOCHAT_TRANSLATION_TIMEOUT", "5s")
	t.Setenv("LINGOCHAT_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddr)
	assert.Equal(t, 5*time.Second, cfg.TranslationTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := Config{
		ServerAddr:         ":8000",
		DatabaseDSN:        "host=localhost",
		TranslationTimeout: 15 * time.Second,
		RateLimitPerSecond: 2,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing addr", func(c *Config) { c.ServerAddr = "" }},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }},
		{"zero timeout", func(c *Config) { c.TranslationTimeout = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimitPerSecond = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
