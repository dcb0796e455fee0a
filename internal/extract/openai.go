package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/tkp-service/internal/resilience"
	"github.com/noah-isme/tkp-service/internal/state"
)

// OpenAIConfig configures the Responses API extractor.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	MaxAttempts  int
	BreakerOpen  time.Duration
	BreakerRatio float64
	Logger       zerolog.Logger
	// Transport overrides the base round tripper; tests point it at httptest.
	Transport http.RoundTripper
}

// OpenAI extracts updates through the OpenAI Responses API with a strict
// json_schema output format.
type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	schema   SchemaLoader
	http     resilience.HTTPClient
}

// NewOpenAI constructs the extractor. Calls are traced and guarded by a
// circuit breaker so a failing upstream is not hammered.
func NewOpenAI(cfg OpenAIConfig, schema SchemaLoader) *OpenAI {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.openai.com"
	}
	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &OpenAI{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: base + "/v1/responses",
		schema:   schema,
		http: resilience.HTTPClient{
			Client: &http.Client{Transport: otelhttp.NewTransport(rt)},
			Breaker: resilience.NewBreaker(resilience.BreakerConfig{
				Target:       "openai",
				FailureRatio: cfg.BreakerRatio,
				OpenFor:      cfg.BreakerOpen,
				Logger:       cfg.Logger,
			}),
			Target:      "openai",
			MaxAttempts: cfg.MaxAttempts,
			BaseBackoff: 500 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     cfg.Timeout,
		},
	}
}

func (o *OpenAI) Name() string { return "openai" }

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
	Text  responsesText    `json:"text"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesText struct {
	Format responsesFormat `json:"format"`
}

type responsesFormat struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Extract implements Extractor.
func (o *OpenAI) Extract(ctx context.Context, message string, current state.Map) Result {
	schema, err := o.schema.Load()
	if err != nil {
		return Failed(err)
	}
	body := responsesRequest{
		Model: o.model,
		Input: []responsesInput{{
			Role:    "user",
			Content: []responsesContent{{Type: "input_text", Text: Prompt(message, current)}},
		}},
		Text: responsesText{Format: responsesFormat{
			Type:   "json_schema",
			Name:   SchemaName,
			Strict: true,
			Schema: Strict(schema),
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Failed(fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Failed(err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Request-Id", uuid.NewString())

	resp, err := o.http.Do(ctx, req)
	if err != nil {
		return Failed(fmt.Errorf("openai request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Failed(fmt.Errorf("read openai response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Failed(fmt.Errorf("openai status %d: %s", resp.StatusCode, truncate(raw, 512)))
	}

	text, err := outputText(raw)
	if err != nil {
		return Failed(err)
	}
	update, err := decodeUpdate(text)
	if err != nil {
		return Failed(err)
	}
	return Succeeded(update)
}

type responsesEnvelope struct {
	Status     string `json:"status"`
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text"`
			Refusal string `json:"refusal"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// outputText pulls the generated text out of a Responses API reply,
// preferring the output_text convenience field.
func outputText(raw []byte) (string, error) {
	var env responsesEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if env.Error != nil && env.Error.Message != "" {
		return "", fmt.Errorf("openai error: %s", env.Error.Message)
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s, nil
	}
	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if c.Refusal != "" {
				return "", fmt.Errorf("openai refused: %s", c.Refusal)
			}
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("openai: empty output; status=%s body=%s", env.Status, truncate(raw, 256))
	}
	return b.String(), nil
}
