// Package extract turns a free-form user message into a partial proposal
// update by asking a language model for JSON that follows the proposal schema.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/tkp-service/internal/config"
	"github.com/noah-isme/tkp-service/internal/obs"
	"github.com/noah-isme/tkp-service/internal/state"
)

// Result is either an update to merge or the reason extraction failed.
// A failed result never carries a partial update.
type Result struct {
	Update state.Map
	Err    error
}

// Succeeded wraps an update.
func Succeeded(update state.Map) Result {
	if update == nil {
		update = state.Map{}
	}
	return Result{Update: update}
}

// Failed wraps a failure reason.
func Failed(err error) Result { return Result{Err: err} }

// OK reports whether the result carries an update.
func (r Result) OK() bool { return r.Err == nil }

// Extractor proposes state updates from a message and the state so far.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, message string, current state.Map) Result
}

// Disabled answers every call with an empty update.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Extract(context.Context, string, state.Map) Result { return Succeeded(nil) }

// New selects the configured provider. A provider without credentials, or one
// that fails to initialise, degrades to Disabled with a single warning.
func New(ctx context.Context, cfg config.Extraction, schema SchemaLoader, logger zerolog.Logger) Extractor {
	var (
		ex  Extractor
		err error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.GeminiKey == "" {
			err = errors.New("GEMINI_API_KEY is not set")
			break
		}
		ex, err = NewGemini(ctx, GeminiConfig{
			APIKey:  cfg.GeminiKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
		}, schema)
	default:
		if cfg.OpenAIKey == "" {
			err = errors.New("OPENAI_API_KEY is not set")
			break
		}
		ex = NewOpenAI(OpenAIConfig{
			APIKey:       cfg.OpenAIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBase,
			Timeout:      cfg.Timeout,
			MaxAttempts:  cfg.MaxAttempts,
			BreakerOpen:  cfg.BreakerOpen,
			BreakerRatio: cfg.BreakerRatio,
			Logger:       logger,
		}, schema)
	}
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.Provider).Msg("structured extraction disabled")
		return Instrument(Disabled{})
	}
	logger.Info().Str("provider", ex.Name()).Msg("structured extraction enabled")
	return Instrument(ex)
}

// Instrument wraps ex with a span and extraction metrics.
func Instrument(ex Extractor) Extractor { return instrumented{next: ex} }

type instrumented struct{ next Extractor }

func (i instrumented) Name() string { return i.next.Name() }

func (i instrumented) Extract(ctx context.Context, message string, current state.Map) Result {
	name := i.next.Name()
	ctx, span := obs.StartSpan(ctx, "extract."+name)
	defer span.End()

	start := time.Now()
	res := i.next.Extract(ctx, message, current)
	outcome := "ok"
	switch {
	case name == "disabled":
		outcome = "skipped"
	case !res.OK():
		outcome = "error"
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "extraction failed")
	}
	span.SetAttributes(
		attribute.String("extract.provider", name),
		attribute.Int("extract.update_keys", len(res.Update)),
	)
	obs.ObserveExtraction(name, outcome, obs.DurationMillis(time.Since(start)))
	return res
}
