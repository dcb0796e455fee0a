package proposal

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/noah-isme/tkp-service/internal/common"
	"github.com/noah-isme/tkp-service/internal/pricing"
	"github.com/noah-isme/tkp-service/internal/state"
)

// Handler exposes the proposal endpoints over HTTP.
type Handler struct {
	Svc *Service
}

type collectRequest struct {
	Message *string   `json:"message"`
	State   state.Map `json:"state"`
}

type collectResponse struct {
	NeedMoreInfo bool      `json:"needMoreInfo"`
	Question     string    `json:"question,omitempty"`
	Markdown     string    `json:"markdown,omitempty"`
	State        state.Map `json:"state"`
}

type renderResponse struct {
	Markdown string          `json:"markdown"`
	State    state.Map       `json:"state"`
	Totals   pricing.Summary `json:"totals"`
}

// Routes registers the endpoints under both the bare and /tkp prefixes.
// limit, when non-nil, guards the collect routes only.
func (h Handler) Routes(r chi.Router, limit func(http.Handler) http.Handler) {
	collect := http.Handler(http.HandlerFunc(h.Collect))
	if limit != nil {
		collect = limit(collect)
	}
	for _, prefix := range []string{"", "/tkp"} {
		r.Method(http.MethodPost, prefix+"/collect", collect)
		r.Post(prefix+"/render", h.Render)
	}
}

// Collect handles POST /collect.
func (h Handler) Collect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := decode(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if req.Message == nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "message is required", nil)
		return
	}

	res, err := h.Svc.Collect(r.Context(), *req.Message, req.State)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, collectResponse{
		NeedMoreInfo: res.NeedMoreInfo,
		Question:     res.Question,
		Markdown:     res.Markdown,
		State:        nonNil(res.State),
	})
}

// Render handles POST /render.
func (h Handler) Render(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		common.WriteError(w, common.BadRequest("invalid request body", err))
		return
	}
	payload, err := state.Decode(raw)
	if err != nil {
		common.WriteError(w, common.BadRequest("request body must be a JSON object", err))
		return
	}

	res, err := h.Svc.RenderDirect(r.Context(), payload)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, renderResponse{
		Markdown: res.Markdown,
		State:    nonNil(res.State),
		Totals:   res.Totals,
	})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.BadRequest("request body must be a JSON object", err)
	}
	return nil
}

func nonNil(m state.Map) state.Map {
	if m == nil {
		return state.Map{}
	}
	return m
}
