package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

type progressRequest struct {
	Status curriculum.CompletionStatus `json:"status"`
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	learner := r.PathValue("learner")
	entries, err := h.progress.Progress(r.Context(), learner)
	if err != nil {
		slog.Error("failed to load progress", "learner_id", learner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learner := r.PathValue("learner")

	var req progressRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, ok := h.content.ResolveModule(ctx, r.PathValue("slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "module not found")
		return
	}

	err := h.progress.SetStatus(ctx, learner, m.Slug, req.Status)
	switch {
	case errors.Is(err, progress.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("failed to save progress", "learner_id", learner, "module", m.Slug, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learner := r.PathValue("learner")

	entries, err := h.progress.Progress(ctx, learner)
	if err != nil {
		slog.Error("failed to load progress", "learner_id", learner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	cat, ok := h.content.ResolveCatalog(ctx)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}

	in := progress.Input{Tiers: cat.Tiers, Modules: cat.Modules, Progress: entries}
	route, ok := progress.NextUnlockedLesson(in)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Only the chosen module needs its groups to find the first lesson.
	in.LessonGroups = map[string][]curriculum.LessonGroup{
		route.ModuleSlug: h.content.ResolveLessonGroups(ctx, route.ModuleSlug),
	}
	route, _ = progress.NextUnlockedLesson(in)
	writeJSON(w, http.StatusOK, route)
}
