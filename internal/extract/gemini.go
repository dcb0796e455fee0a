package extract

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"

	"github.com/noah-isme/tkp-service/internal/state"
)

// GeminiConfig configures the Gemini extractor.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the traced default client.
	HTTPClient *http.Client
}

// Gemini extracts updates with the Gemini API using a JSON response schema.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	schema  SchemaLoader
}

// NewGemini constructs the extractor.
func NewGemini(ctx context.Context, cfg GeminiConfig, schema SchemaLoader) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  hc,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, timeout: cfg.Timeout, schema: schema}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, message string, current state.Map) Result {
	schema, err := g.schema.Load()
	if err != nil {
		return Failed(err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{genai.NewContentFromText(Prompt(message, current), genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:        ptr[float32](0),
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: schema,
	})
	if err != nil {
		return Failed(fmt.Errorf("gemini request: %w", err))
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return Failed(fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason))
	}
	update, err := decodeUpdate(resp.Text())
	if err != nil {
		return Failed(err)
	}
	return Succeeded(update)
}

func ptr[T any](v T) *T { return &v }
