package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Captcha    CaptchaConfig
	Generation GenerationConfig
	Document   DocumentConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string // development or production; controls error detail exposure
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// RateLimitConfig holds the per-caller quota
type RateLimitConfig struct {
	Requests         int
	Window           time.Duration
	Store            string // memory or redis
	FallbackToMemory bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CaptchaConfig holds challenge verification settings
type CaptchaConfig struct {
	Required  bool
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// GenerationConfig selects and configures the generation backend
type GenerationConfig struct {
	Backend                   string // openai, ark, qwen, echo
	APIKey                    string
	BaseURL                   string
	Model                     string
	MaxTokens                 int
	Temperature               float32
	Timeout                   time.Duration
	SystemPrompt              string
	PromptPricePerMillion     decimal.Decimal
	CompletionPricePerMillion decimal.Decimal
}

// DocumentConfig selects the binary document format
type DocumentConfig struct {
	Format          string // docx or pdf
	ChromeRemoteURL string
	ChromeNoSandbox bool
	RenderTimeout   time.Duration
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64
	ServiceName           string
	Insecure              bool
	MetricsExportInterval time.Duration
	DailyBudgetUSD        decimal.Decimal // informational; exceeding it only logs a warning
	ProfilingEnabled      bool
	ProfilingServer       string
}

var (
	knownBackends = []string{"openai", "ark", "qwen", "echo"}
	knownFormats  = []string{"docx", "pdf"}
	knownStores   = []string{"memory", "redis"}
)

// Load loads configuration from .env, config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with LEASEGEN_ prefix (e.g., LEASEGEN_GENERATION_API_KEY)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEASEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	promptPrice, err := parseDecimal(v, "generation.prompt_price_per_million")
	if err != nil {
		return nil, err
	}
	completionPrice, err := parseDecimal(v, "generation.completion_price_per_million")
	if err != nil {
		return nil, err
	}
	budget, err := parseDecimal(v, "telemetry.daily_budget_usd")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		RateLimit: RateLimitConfig{
			Requests:         v.GetInt("rate_limit.requests"),
			Window:           v.GetDuration("rate_limit.window"),
			Store:            v.GetString("rate_limit.store"),
			FallbackToMemory: v.GetBool("rate_limit.fallback_to_memory"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Captcha: CaptchaConfig{
			Required:  v.GetBool("captcha.required"),
			SecretKey: v.GetString("captcha.secret_key"),
			VerifyURL: v.GetString("captcha.verify_url"),
			Timeout:   v.GetDuration("captcha.timeout"),
		},
		Generation: GenerationConfig{
			Backend:                   v.GetString("generation.backend"),
			APIKey:                    v.GetString("generation.api_key"),
			BaseURL:                   v.GetString("generation.base_url"),
			Model:                     v.GetString("generation.model"),
			MaxTokens:                 v.GetInt("generation.max_tokens"),
			Temperature:               float32(v.GetFloat64("generation.temperature")),
			Timeout:                   v.GetDuration("generation.timeout"),
			SystemPrompt:              v.GetString("generation.system_prompt"),
			PromptPricePerMillion:     promptPrice,
			CompletionPricePerMillion: completionPrice,
		},
		Document: DocumentConfig{
			Format:          v.GetString("document.format"),
			ChromeRemoteURL: v.GetString("document.chrome_remote_url"),
			ChromeNoSandbox: v.GetBool("document.chrome_no_sandbox"),
			RenderTimeout:   v.GetDuration("document.render_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			DailyBudgetUSD:        budget,
			ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:       v.GetString("telemetry.profiling_server"),
		},
	}

	// sampling_ratio = 0 is a legitimate setting, so only default it when unset
	if !v.IsSet("telemetry.sampling_ratio") {
		cfg.Telemetry.SamplingRatio = 1.0
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q: %w", key, raw, err)
	}
	return d, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "leasegen"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = EnvDevelopment
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == EnvProduction {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	// Generation plus rendering can take a while; the write timeout has to cover both.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}

	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 5
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Hour
	}
	if cfg.RateLimit.Store == "" {
		cfg.RateLimit.Store = "memory"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Captcha.VerifyURL == "" {
		cfg.Captcha.VerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	}
	if cfg.Captcha.Timeout == 0 {
		cfg.Captcha.Timeout = 10 * time.Second
	}

	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = "echo"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaultModel(cfg.Generation.Backend)
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 4096
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 90 * time.Second
	}

	if cfg.Document.Format == "" {
		cfg.Document.Format = "docx"
	}
	if cfg.Document.RenderTimeout == 0 {
		cfg.Document.RenderTimeout = 30 * time.Second
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 15 * time.Second
	}
	if cfg.Telemetry.ProfilingServer == "" {
		cfg.Telemetry.ProfilingServer = "http://localhost:4040"
	}
}

func defaultModel(backend string) string {
	switch backend {
	case "openai":
		return "gpt-4o-mini"
	case "qwen":
		return "qwen-plus"
	case "echo":
		return "echo"
	default:
		return ""
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.App.Env != EnvDevelopment && c.App.Env != EnvProduction {
		return fmt.Errorf("app.env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.App.Env)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("rate_limit.requests must be positive")
	}
	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if !slices.Contains(knownStores, c.RateLimit.Store) {
		return fmt.Errorf("rate_limit.store must be one of %v, got %q", knownStores, c.RateLimit.Store)
	}
	if !slices.Contains(knownBackends, c.Generation.Backend) {
		return fmt.Errorf("generation.backend must be one of %v, got %q", knownBackends, c.Generation.Backend)
	}
	if c.Generation.Backend != "echo" && c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required for backend %q", c.Generation.Backend)
	}
	if c.Generation.PromptPricePerMillion.IsNegative() || c.Generation.CompletionPricePerMillion.IsNegative() {
		return fmt.Errorf("generation prices cannot be negative")
	}
	if !slices.Contains(knownFormats, c.Document.Format) {
		return fmt.Errorf("document.format must be one of %v, got %q", knownFormats, c.Document.Format)
	}
	if c.Captcha.Required && c.Captcha.SecretKey == "" {
		return fmt.Errorf("captcha.secret_key is required when captcha.required is true")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == EnvProduction {
		if !c.Captcha.Required {
			return fmt.Errorf("captcha.required must be true in production")
		}
		if c.Generation.Backend == "echo" {
			return fmt.Errorf("generation.backend cannot be 'echo' in production")
		}
		if c.Generation.APIKey == "" {
			return fmt.Errorf("generation.api_key is required in production")
		}
	}
	return nil
}

// IsProduction reports whether error details must be redacted
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}
