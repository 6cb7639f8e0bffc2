package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/config"
	"github.com/namelens/reachlens/internal/core"
	"github.com/namelens/reachlens/internal/core/engine"
	apperrors "github.com/namelens/reachlens/internal/errors"
	"github.com/namelens/reachlens/internal/metrics"
	"github.com/namelens/reachlens/internal/observability"
)

// DefaultMaxBatch caps the subjects accepted by one batch request.
const DefaultMaxBatch = 1000

const maxBatchBody = 4 << 20

// ResolverSource hands out a resolver for a lookup profile. An empty
// profile selects the configured default.
type ResolverSource interface {
	Resolver(profile string) (*engine.Resolver, error)
}

// ResolveHandler serves the /v1 resolution endpoints.
type ResolveHandler struct {
	Resolvers   ResolverSource
	Concurrency int
	MaxBatch    int
	// Timeout bounds a single request's resolution work. Zero means no
	// bound beyond the client's own connection.
	Timeout time.Duration
}

// BatchRequest is the body accepted by POST /v1/batch.
type BatchRequest struct {
	Subjects []string `json:"subjects"`
	Mode     string   `json:"mode,omitempty"`
	Profile  string   `json:"profile,omitempty"`
}

// BatchResultItem is one entry of a batch response.
type BatchResultItem struct {
	Subject string       `json:"subject"`
	Status  *core.Status `json:"status,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BatchResponse is the body returned by POST /v1/batch.
type BatchResponse struct {
	Items   []BatchResultItem  `json:"items"`
	Summary *core.BatchSummary `json:"summary"`
}

// Status handles GET /v1/status?subject=.
func (h *ResolveHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, engine.ModeAvailability)
}

// Syntax handles GET /v1/syntax?subject=.
func (h *ResolveHandler) Syntax(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, engine.ModeSyntax)
}

// Reputation handles GET /v1/reputation?subject=.
func (h *ResolveHandler) Reputation(w http.ResponseWriter, r *http.Request) {
	h.single(w, r, engine.ModeReputation)
}

func (h *ResolveHandler) single(w http.ResponseWriter, r *http.Request, mode engine.Mode) {
	query := r.URL.Query()
	subject := strings.TrimSpace(query.Get("subject"))
	if subject == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("subject query parameter is required"))
		return
	}

	resolver, ok := h.resolver(w, r, query.Get("profile"))
	if !ok {
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	st, err := resolver.ResolveMode(ctx, mode, subject)
	if err != nil {
		metrics.RecordOperationError("resolve_"+string(mode), errorKind(err))
		respondWithError(w, r, apperrors.WrapResolveError(r.Context(), err))
		return
	}

	writeJSON(w, http.StatusOK, st)
}

// Batch handles POST /v1/batch.
func (h *ResolveHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBatchBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "request body must be a JSON batch request"))
		return
	}

	mode, err := engine.ParseMode(strings.ToLower(strings.TrimSpace(req.Mode)))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "unsupported batch mode"))
		return
	}
	if len(req.Subjects) == 0 {
		respondWithError(w, r, apperrors.NewInvalidInputError("subjects must not be empty"))
		return
	}
	limit := h.MaxBatch
	if limit <= 0 {
		limit = DefaultMaxBatch
	}
	if len(req.Subjects) > limit {
		respondWithError(w, r, apperrors.NewBatchTooLargeError(len(req.Subjects), limit))
		return
	}

	resolver, ok := h.resolver(w, r, req.Profile)
	if !ok {
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	summary := core.NewBatchSummary(time.Now().UTC())
	items, err := resolver.RunBatch(ctx, req.Subjects, engine.BatchOptions{
		Mode:        mode,
		Concurrency: h.Concurrency,
	})
	if err != nil {
		metrics.RecordOperationError("batch_"+string(mode), errorKind(err))
		respondWithError(w, r, apperrors.WrapResolveError(r.Context(), err))
		return
	}

	resp := BatchResponse{Items: make([]BatchResultItem, 0, len(items)), Summary: summary}
	for _, item := range items {
		summary.Add(item.Status)
		entry := BatchResultItem{Subject: item.Subject, Status: item.Status}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		}
		resp.Items = append(resp.Items, entry)
	}
	summary.CompletedAt = time.Now().UTC()
	metrics.RecordBatch(summary)

	writeJSON(w, http.StatusOK, resp)
}

func (h *ResolveHandler) resolver(w http.ResponseWriter, r *http.Request, profile string) (*engine.Resolver, bool) {
	if h.Resolvers == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("resolver not configured"))
		return nil, false
	}
	resolver, err := h.Resolvers.Resolver(strings.TrimSpace(profile))
	if err != nil {
		if stderrors.Is(err, config.ErrUnknownProfile) {
			respondWithError(w, r, apperrors.NewUnknownProfileError(profile))
			return nil, false
		}
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "failed to build resolver"))
		return nil, false
	}
	return resolver, true
}

func (h *ResolveHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout > 0 {
		return context.WithTimeout(r.Context(), h.Timeout)
	}
	return context.WithCancel(r.Context())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write response", zap.Error(err))
	}
}

func errorKind(err error) string {
	switch {
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "resolve"
	}
}
