package api

import (
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

type moduleResponse struct {
	Module        curriculum.Module   `json:"module"`
	Gate          progress.GateResult `json:"gate"`
	LessonCount   int                 `json:"lessonCount"`
	QuestionCount int                 `json:"questionCount"`
	PassingScore  int                 `json:"passingScore"`
}

type lessonsResponse struct {
	ModuleSlug string                   `json:"moduleSlug"`
	Lessons    []curriculum.Lesson      `json:"lessons"`
	Groups     []curriculum.LessonGroup `json:"groups"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.content.ResolveCatalog(r.Context())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (h *Handler) handleTier(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.PathValue("level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "tier level must be an integer")
		return
	}
	tier, ok := h.content.ResolveTier(r.Context(), level)
	if !ok {
		writeError(w, http.StatusNotFound, "tier not found")
		return
	}
	writeJSON(w, http.StatusOK, tier)
}

func (h *Handler) handleModule(w http.ResponseWriter, r *http.Request) {
	mc, ok := h.loadModule(r.Context(), r.PathValue("slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "module not found")
		return
	}
	writeJSON(w, http.StatusOK, moduleResponse{
		Module:        mc.module,
		Gate:          mc.gate,
		LessonCount:   len(mc.lessons),
		QuestionCount: len(mc.quiz.Questions),
		PassingScore:  h.passingScoreFor(mc.module),
	})
}

func (h *Handler) handleLessons(w http.ResponseWriter, r *http.Request) {
	mc, ok := h.loadModule(r.Context(), r.PathValue("slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "module not found")
		return
	}
	if !mc.gate.LessonsValid {
		writeError(w, http.StatusForbidden, "module does not have enough lessons yet")
		return
	}
	writeJSON(w, http.StatusOK, lessonsResponse{
		ModuleSlug: mc.module.Slug,
		Lessons:    mc.lessons,
		Groups:     curriculum.GroupLessons(mc.module.Slug, mc.lessons),
	})
}
