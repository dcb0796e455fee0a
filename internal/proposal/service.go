package proposal

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/tkp-service/internal/common"
	"github.com/noah-isme/tkp-service/internal/extract"
	"github.com/noah-isme/tkp-service/internal/obs"
	"github.com/noah-isme/tkp-service/internal/pricing"
	"github.com/noah-isme/tkp-service/internal/state"
	"github.com/noah-isme/tkp-service/internal/tkp"
)

// Collect outcomes reported to metrics.
const (
	OutcomeComplete     = "complete"
	OutcomeNeedMoreInfo = "need_more_info"
	OutcomeError        = "error"
)

// Renderer produces the proposal document.
type Renderer interface {
	Render(data tkp.Data) (string, error)
}

// Service runs one collection step: extract, merge, validate, then either ask
// for more data or render. It keeps nothing between calls.
type Service struct {
	Extractor extract.Extractor
	Renderer  Renderer
	Logger    zerolog.Logger
}

// CollectResult is the outcome of Collect. When NeedMoreInfo is set, State is
// the merged partial state and Question lists what is missing; otherwise
// Markdown holds the document and State the validated record.
type CollectResult struct {
	NeedMoreInfo bool
	Question     string
	Missing      tkp.FieldErrors
	Markdown     string
	State        state.Map
}

// RenderResult is the outcome of RenderDirect.
type RenderResult struct {
	Markdown string
	State    state.Map
	Totals   pricing.Summary
}

// Collect merges what the extractor finds in message into current and
// validates the result. current is never modified. Extraction failures are
// logged and treated as an empty update; only render failures are errors.
func (s *Service) Collect(ctx context.Context, message string, current state.Map) (CollectResult, error) {
	working := current.Clone()
	if working == nil {
		working = state.Map{}
	}

	ex := s.Extractor
	if ex == nil {
		ex = extract.Disabled{}
	}
	res := ex.Extract(ctx, message, working.Clone())
	if !res.OK() {
		s.logger(ctx).Warn().Err(res.Err).Str("provider", ex.Name()).Msg("extraction failed, continuing without update")
	} else {
		state.Merge(working, res.Update)
	}

	data, errs := tkp.Validate(working)
	if len(errs) > 0 {
		obs.ObserveCollect(OutcomeNeedMoreInfo)
		return CollectResult{
			NeedMoreInfo: true,
			Question:     errs.Question(),
			Missing:      errs,
			State:        working,
		}, nil
	}

	markdown, typed, err := s.render(data)
	if err != nil {
		obs.ObserveCollect(OutcomeError)
		return CollectResult{}, err
	}
	obs.ObserveCollect(OutcomeComplete)
	return CollectResult{Markdown: markdown, State: typed}, nil
}

// RenderDirect validates a complete payload and renders it with its totals.
// Validation failures come back as a 422 AppError whose details list every
// offending field.
func (s *Service) RenderDirect(_ context.Context, payload state.Map) (RenderResult, error) {
	data, errs := tkp.Validate(payload)
	if len(errs) > 0 {
		obs.ObserveRender("invalid")
		return RenderResult{}, common.NewAppError("VALIDATION_FAILED", "payload does not match the proposal schema", http.StatusUnprocessableEntity, errs).
			WithDetails(errs)
	}
	markdown, typed, err := s.render(data)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{Markdown: markdown, State: typed, Totals: data.Summary()}, nil
}

func (s *Service) render(data tkp.Data) (string, state.Map, error) {
	markdown, err := s.Renderer.Render(data)
	if err != nil {
		obs.ObserveRender(OutcomeError)
		return "", nil, common.Internal("render proposal", err)
	}
	typed, err := data.State()
	if err != nil {
		obs.ObserveRender(OutcomeError)
		return "", nil, common.Internal("encode proposal", err)
	}
	obs.ObserveRender("ok")
	return markdown, typed, nil
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}
