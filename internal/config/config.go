package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Extraction providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	Extraction Extraction
	TKP        TKP
	RateLimit  RateLimit
	Obs        Obs

	// RedisURL is optional; without it the collect limiter keeps counters in memory.
	RedisURL string
}

// Extraction configures the language-model collaborator.
type Extraction struct {
	Provider     string
	OpenAIKey    string
	OpenAIModel  string
	OpenAIBase   string
	GeminiKey    string
	GeminiModel  string
	Timeout      time.Duration
	MaxAttempts  int
	BreakerOpen  time.Duration
	BreakerRatio float64
}

// TKP points at the schema and template files read on every request.
type TKP struct {
	SchemaPath    string
	TemplatesPath string
	TemplateName  string
}

// RateLimit bounds /collect calls per client.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Obs toggles logging, metrics and tracing.
type Obs struct {
	LogFormat        string
	LogLevel         string
	EnablePrometheus bool
	MetricsNamespace string
	MetricsBuckets   string
	EnableTracing    bool
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		Extraction: Extraction{
			Provider:     strings.ToLower(valueOrDefault(k.String("EXTRACTION_PROVIDER"), ProviderOpenAI)),
			OpenAIKey:    strings.TrimSpace(k.String("OPENAI_API_KEY")),
			OpenAIModel:  valueOrDefault(k.String("OPENAI_MODEL"), "gpt-4.1-mini"),
			OpenAIBase:   strings.TrimRight(valueOrDefault(k.String("OPENAI_BASE_URL"), "https://api.openai.com"), "/"),
			GeminiKey:    strings.TrimSpace(k.String("GEMINI_API_KEY")),
			GeminiModel:  valueOrDefault(k.String("GEMINI_MODEL"), "gemini-2.5-flash"),
			Timeout:      parseDuration(k.String("EXTRACTION_TIMEOUT"), "60s"),
			MaxAttempts:  parseInt(k.String("EXTRACTION_MAX_ATTEMPTS"), 1),
			BreakerOpen:  parseDuration(k.String("EXTRACTION_BREAKER_OPEN_FOR"), "30s"),
			BreakerRatio: parseFloat(k.String("EXTRACTION_BREAKER_FAILURE_RATIO"), 0.5),
		},
		TKP: TKP{
			SchemaPath:    valueOrDefault(k.String("TKP_SCHEMA_PATH"), "schema/tkp_schema.json"),
			TemplatesPath: valueOrDefault(k.String("TKP_TEMPLATES_PATH"), "templates"),
			TemplateName:  valueOrDefault(k.String("TKP_TEMPLATE_NAME"), "tkp.md.tmpl"),
		},
		RateLimit: RateLimit{
			Limit:  parseInt(k.String("COLLECT_RATE_LIMIT"), 30),
			Window: parseDuration(k.String("COLLECT_RATE_WINDOW"), "1m"),
		},
		Obs: Obs{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			EnablePrometheus: parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "tkp"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING"), false),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	switch cfg.Extraction.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return nil, fmt.Errorf("EXTRACTION_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.Extraction.Provider)
	}
	if cfg.Extraction.MaxAttempts < 1 {
		cfg.Extraction.MaxAttempts = 1
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// ExtractionKey returns the API key of the selected provider.
func (c *Config) ExtractionKey() string {
	if c.Extraction.Provider == ProviderGemini {
		return c.Extraction.GeminiKey
	}
	return c.Extraction.OpenAIKey
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests overrides environment variables for the duration of a single Load.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
