// Package api exposes content resolution, learner progression and quiz
// sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// LearnerHeader carries the learner id on quiz requests.
const LearnerHeader = "X-Learner-ID"

const maxBodyBytes = 64 << 10

// Config holds dependencies for a Handler.
type Config struct {
	Content  *content.Resolver
	Progress progress.Store
	Quiz     *quiz.Service
	// DefaultPassingScore applies to modules without a passing score.
	DefaultPassingScore int
}

// Handler serves the learner-facing API.
type Handler struct {
	content      *content.Resolver
	progress     progress.Store
	quiz         *quiz.Service
	passingScore int
}

// New creates a Handler.
func New(cfg Config) *Handler {
	return &Handler{
		content:      cfg.Content,
		progress:     cfg.Progress,
		quiz:         cfg.Quiz,
		passingScore: cfg.DefaultPassingScore,
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/catalog", h.handleCatalog)
	mux.HandleFunc("GET /v1/tiers/{level}", h.handleTier)
	mux.HandleFunc("GET /v1/modules/{slug}", h.handleModule)
	mux.HandleFunc("GET /v1/modules/{slug}/lessons", h.handleLessons)
	mux.HandleFunc("POST /v1/modules/{slug}/quiz/sessions", h.handleStartQuiz)

	mux.HandleFunc("GET /v1/quiz/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("POST /v1/quiz/sessions/{id}/answers", h.handleAnswer)
	mux.HandleFunc("POST /v1/quiz/sessions/{id}/finish", h.handleFinish)

	mux.HandleFunc("GET /v1/learners/{learner}/progress", h.handleProgress)
	mux.HandleFunc("PUT /v1/learners/{learner}/progress/{slug}", h.handleSetProgress)
	mux.HandleFunc("GET /v1/learners/{learner}/next", h.handleNext)
}

// moduleContent bundles a module with its gate decision.
type moduleContent struct {
	module  curriculum.Module
	lessons []curriculum.Lesson
	quiz    curriculum.Quiz
	gate    progress.GateResult
}

// loadModule resolves a module and everything the threshold gate needs.
func (h *Handler) loadModule(ctx context.Context, slug string) (moduleContent, bool) {
	m, ok := h.content.ResolveModule(ctx, slug)
	if !ok {
		return moduleContent{}, false
	}
	lessons := h.content.ResolveLessons(ctx, m.Slug)
	q := h.content.ResolveQuiz(ctx, m.Slug)
	return moduleContent{
		module:  m,
		lessons: lessons,
		quiz:    q,
		gate:    progress.CheckThresholds(m, lessons, q),
	}, true
}

func (h *Handler) passingScoreFor(m curriculum.Module) int {
	if m.Thresholds.PassingScore > 0 {
		return m.Thresholds.PassingScore
	}
	return h.passingScore
}

func learnerFrom(r *http.Request) (string, bool) {
	id := r.Header.Get(LearnerHeader)
	return id, id != ""
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeQuizError maps quiz service errors onto HTTP statuses.
func writeQuizError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrDisplayIndexOutOfRange),
		errors.Is(err, quiz.ErrOpenEnded):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, quiz.ErrAlreadyAnswered):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("quiz request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
