package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tkp-service/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"EXTRACTION_PROVIDER": "",
		"OPENAI_API_KEY":      "",
		"OPENAI_MODEL":        "",
		"PORT":                "",
		"REDIS_URL":           "",
		"COLLECT_RATE_LIMIT":  "",
	})
	require.NoError(t, err)

	require.Equal(t, config.ProviderOpenAI, cfg.Extraction.Provider)
	require.Equal(t, "gpt-4.1-mini", cfg.Extraction.OpenAIModel)
	require.Equal(t, 1, cfg.Extraction.MaxAttempts)
	require.Equal(t, 60*time.Second, cfg.Extraction.Timeout)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "schema/tkp_schema.json", cfg.TKP.SchemaPath)
	require.Equal(t, "tkp.md.tmpl", cfg.TKP.TemplateName)
	require.Equal(t, 30, cfg.RateLimit.Limit)
	require.Empty(t, cfg.RedisURL)
	require.Empty(t, cfg.ExtractionKey())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"EXTRACTION_PROVIDER":     "Gemini",
		"GEMINI_API_KEY":          "g-key",
		"EXTRACTION_MAX_ATTEMPTS": "0",
		"EXTRACTION_TIMEOUT":      "5s",
		"CORS_ALLOWED_ORIGINS":    "https://a.example, ,https://b.example",
		"PORT":                    ":9090",
		"OBS_ENABLE_PROMETHEUS":   "off",
	})
	require.NoError(t, err)

	require.Equal(t, config.ProviderGemini, cfg.Extraction.Provider)
	require.Equal(t, "g-key", cfg.ExtractionKey())
	require.Equal(t, 1, cfg.Extraction.MaxAttempts)
	require.Equal(t, 5*time.Second, cfg.Extraction.Timeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.False(t, cfg.Obs.EnablePrometheus)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"EXTRACTION_PROVIDER": "llama"})
	require.Error(t, err)
}

func TestMustLoad(t *testing.T) {
	t.Setenv("EXTRACTION_PROVIDER", "gemini")
	require.Equal(t, config.ProviderGemini, config.MustLoad().Extraction.Provider)

	t.Setenv("EXTRACTION_PROVIDER", "bogus")
	require.Panics(t, func() { config.MustLoad() })
}
