package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"LEASEGEN_APP_ENV",
	"LEASEGEN_APP_PORT",
	"LEASEGEN_RATE_LIMIT_REQUESTS",
	"LEASEGEN_RATE_LIMIT_WINDOW",
	"LEASEGEN_RATE_LIMIT_STORE",
	"LEASEGEN_CAPTCHA_REQUIRED",
	"LEASEGEN_CAPTCHA_SECRET_KEY",
	"LEASEGEN_GENERATION_BACKEND",
	"LEASEGEN_GENERATION_API_KEY",
	"LEASEGEN_GENERATION_MODEL",
	"LEASEGEN_GENERATION_PROMPT_PRICE_PER_MILLION",
	"LEASEGEN_DOCUMENT_FORMAT",
	"LEASEGEN_TELEMETRY_SAMPLING_RATIO",
	"LEASEGEN_TELEMETRY_DAILY_BUDGET_USD",
}

// clearEnv unsets every managed variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		if v, ok := os.LookupEnv(k); ok {
			t.Cleanup(func() { os.Setenv(k, v) })
		}
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "leasegen", cfg.App.Name)
		assert.Equal(t, EnvDevelopment, cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, 5, cfg.RateLimit.Requests)
		assert.Equal(t, time.Hour, cfg.RateLimit.Window)
		assert.Equal(t, "memory", cfg.RateLimit.Store)
		assert.False(t, cfg.Captcha.Required)
		assert.Equal(t, "echo", cfg.Generation.Backend)
		assert.Equal(t, "docx", cfg.Document.Format)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.True(t, cfg.Telemetry.DailyBudgetUSD.IsZero())
		assert.False(t, cfg.IsProduction())
	})

	t.Run("loads values from environment variables with LEASEGEN prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEASEGEN_APP_PORT", "9000")
		t.Setenv("LEASEGEN_RATE_LIMIT_REQUESTS", "3")
		t.Setenv("LEASEGEN_RATE_LIMIT_WINDOW", "10m")
		t.Setenv("LEASEGEN_GENERATION_BACKEND", "openai")
		t.Setenv("LEASEGEN_GENERATION_PROMPT_PRICE_PER_MILLION", "0.15")
		t.Setenv("LEASEGEN_DOCUMENT_FORMAT", "pdf")
		t.Setenv("LEASEGEN_TELEMETRY_SAMPLING_RATIO", "0")
		t.Setenv("LEASEGEN_TELEMETRY_DAILY_BUDGET_USD", "25.50")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, 3, cfg.RateLimit.Requests)
		assert.Equal(t, 10*time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, "openai", cfg.Generation.Backend)
		assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
		assert.True(t, decimal.RequireFromString("0.15").Equal(cfg.Generation.PromptPricePerMillion))
		assert.Equal(t, "pdf", cfg.Document.Format)
		assert.Equal(t, 0.0, cfg.Telemetry.SamplingRatio)
		assert.True(t, decimal.RequireFromString("25.5").Equal(cfg.Telemetry.DailyBudgetUSD))
	})

	t.Run("production requires captcha and a real backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEASEGEN_APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "captcha.required")

		t.Setenv("LEASEGEN_CAPTCHA_REQUIRED", "true")
		t.Setenv("LEASEGEN_CAPTCHA_SECRET_KEY", "secret")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "echo")

		t.Setenv("LEASEGEN_GENERATION_BACKEND", "openai")
		_, err = Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api_key")

		t.Setenv("LEASEGEN_GENERATION_API_KEY", "sk-test")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("rejects invalid price", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEASEGEN_GENERATION_PROMPT_PRICE_PER_MILLION", "cheap")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prompt_price_per_million")
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.Telemetry.SamplingRatio = 1.0
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown env", func(c *Config) { c.App.Env = "staging" }, "app.env"},
		{"unknown backend", func(c *Config) { c.Generation.Backend = "llama" }, "generation.backend"},
		{"unknown format", func(c *Config) { c.Document.Format = "odt" }, "document.format"},
		{"unknown store", func(c *Config) { c.RateLimit.Store = "memcached" }, "rate_limit.store"},
		{"captcha without secret", func(c *Config) { c.Captcha.Required = true }, "captcha.secret_key"},
		{"ark without model", func(c *Config) {
			c.Generation.Backend = "ark"
			c.Generation.Model = ""
		}, "generation.model"},
		{"negative price", func(c *Config) {
			c.Generation.CompletionPricePerMillion = decimal.NewFromInt(-1)
		}, "negative"},
		{"sampling ratio out of range", func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, "sampling_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
