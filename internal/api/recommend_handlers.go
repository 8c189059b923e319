package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/filmlore/nichecast/internal/affinity"
	"github.com/filmlore/nichecast/internal/bias"
	"github.com/filmlore/nichecast/internal/catalog"
	"github.com/filmlore/nichecast/internal/middleware"
	"github.com/filmlore/nichecast/internal/profile"
	"github.com/filmlore/nichecast/internal/recommend"
	"github.com/filmlore/nichecast/internal/scoring"
	"github.com/filmlore/nichecast/internal/similarity"
)

// Handlers wires the five engine operations onto HTTP routes.
type Handlers struct {
	scores      *scoring.Engine
	similar     *similarity.Engine
	bias        *bias.Profiler
	affinity    *affinity.Explorer
	recommender recommend.Recommender
	profiles    *profile.Generator
	logger      *slog.Logger
}

// NewHandlers creates the handler set. The recommender may be the blender
// directly or its caching wrapper.
func NewHandlers(scores *scoring.Engine, similar *similarity.Engine, profiler *bias.Profiler,
	explorer *affinity.Explorer, recommender recommend.Recommender,
	profiles *profile.Generator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		scores:      scores,
		similar:     similar,
		bias:        profiler,
		affinity:    explorer,
		recommender: recommender,
		profiles:    profiles,
		logger:      logger,
	}
}

// RegisterRoutes attaches all engine routes to the mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /viewers/{id}/similar", h.handleSimilarViewers)
	mux.HandleFunc("GET /viewers/{id}/bias", h.handleStructuralBias)
	mux.HandleFunc("GET /viewers/{id}/crew-suggestions", h.handleCrewSuggestions)
	mux.HandleFunc("GET /viewers/{id}/recommendations", h.handleRecommendations)
	mux.HandleFunc("GET /viewers/{id}/profile", h.handleProfile)
	mux.HandleFunc("POST /internal/scores/recalculate", h.handleRecalculate)
}

// viewerID extracts and validates the {id} path segment.
// Writes a 400 response and returns false on failure.
func (h *Handlers) viewerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "viewer id must be an integer")
		return 0, false
	}
	return id, true
}

// limitParam reads an optional positive ?k= query parameter, 0 meaning default.
func limitParam(r *http.Request) int {
	k, err := strconv.Atoi(r.URL.Query().Get("k"))
	if err != nil || k <= 0 {
		return 0
	}
	return k
}

// writeEngineError maps engine failures onto the error envelope.
func (h *Handlers) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	code := ErrCodeInternal
	if errors.Is(err, catalog.ErrDataIntegrity) {
		code = ErrCodeDataIntegrity
	}
	ctx := middleware.SetErrorCode(r.Context(), code)
	h.logger.Error("engine operation failed",
		"path", r.URL.Path,
		"error", err,
	)
	WriteError(w, ctx, http.StatusInternalServerError, code, "operation failed")
}

func (h *Handlers) handleSimilarViewers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewerID(w, r)
	if !ok {
		return
	}
	result, err := h.similar.SimilarViewers(r.Context(), id, limitParam(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if result == nil {
		result = []similarity.SimilarViewer{}
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"similar_viewers": result})
}

func (h *Handlers) handleStructuralBias(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewerID(w, r)
	if !ok {
		return
	}
	result, err := h.bias.StructuralBias(r.Context(), id, limitParam(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if result == nil {
		result = []bias.TagBias{}
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"structural_bias": result})
}

func (h *Handlers) handleCrewSuggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewerID(w, r)
	if !ok {
		return
	}
	result, err := h.affinity.CrewSuggestions(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if result == nil {
		result = []affinity.Suggestion{}
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"suggestions": result})
}

func (h *Handlers) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewerID(w, r)
	if !ok {
		return
	}
	result, err := h.recommender.NicheRecommendations(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if result == nil {
		result = []recommend.Recommendation{}
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"recommendations": result})
}

func (h *Handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.viewerID(w, r)
	if !ok {
		return
	}
	result, err := h.profiles.Generate(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, result)
}

func (h *Handlers) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	result, err := h.scores.Recalculate(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"viewers_scored":   result.ViewersScored,
		"zero_log_viewers": result.ZeroLogViewers,
	})
}
