package api

import (
	"net/http"
	"slices"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

type startQuizRequest struct {
	Count int `json:"count"`
}

type answerRequest struct {
	QuestionID   string `json:"questionId"`
	DisplayIndex *int   `json:"displayIndex"`
}

// questionView is a session question as the learner sees it. Choices are in
// display order and the answer key is withheld.
type questionView struct {
	ID            string                  `json:"id"`
	Question      string                  `json:"question"`
	Choices       []string                `json:"choices"`
	Type          curriculum.QuestionType `json:"type"`
	Topic         string                  `json:"topic,omitempty"`
	EstimatedTime string                  `json:"estimatedTime,omitempty"`
}

type answerView struct {
	QuestionID   string `json:"questionId"`
	DisplayIndex int    `json:"displayIndex"`
	Correct      bool   `json:"correct"`
}

type sessionResponse struct {
	SessionID  string         `json:"sessionId"`
	ModuleSlug string         `json:"moduleSlug"`
	Questions  []questionView `json:"questions"`
	Answers    []answerView   `json:"answers"`
}

type gradeResponse struct {
	QuestionID          string `json:"questionId"`
	IsCorrect           bool   `json:"isCorrect"`
	Explanation         string `json:"explanation"`
	CorrectDisplayIndex int    `json:"correctDisplayIndex"`
}

type finishResponse struct {
	quiz.Result
	ModuleSlug   string `json:"moduleSlug"`
	PassingScore int    `json:"passingScore"`
}

func newSessionResponse(sess *quiz.Session) sessionResponse {
	resp := sessionResponse{
		SessionID:  sess.ID,
		ModuleSlug: sess.ModuleSlug,
		Questions:  []questionView{},
		Answers:    []answerView{},
	}
	for _, it := range sess.Items() {
		q, _ := sess.Question(it.QuestionID)
		choices, _ := sess.DisplayedChoices(it.QuestionID)
		resp.Questions = append(resp.Questions, questionView{
			ID:            q.ID,
			Question:      q.Question,
			Choices:       choices,
			Type:          q.Type,
			Topic:         q.Topic,
			EstimatedTime: q.EstimatedTime,
		})
	}
	for _, a := range sess.Answers() {
		resp.Answers = append(resp.Answers, answerView{
			QuestionID:   a.QuestionID,
			DisplayIndex: a.DisplayIndex,
			Correct:      a.Correct,
		})
	}
	return resp
}

// displayIndexOf maps an original choice index to where it was shown.
func displayIndexOf(sess *quiz.Session, questionID string, original int) int {
	for _, it := range sess.Items() {
		if it.QuestionID == questionID {
			return slices.Index(it.DisplayOrder, original)
		}
	}
	return -1
}

func (h *Handler) handleStartQuiz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learner, ok := learnerFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, LearnerHeader+" header is required")
		return
	}

	var req startQuizRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mc, ok := h.loadModule(ctx, r.PathValue("slug"))
	if !ok {
		writeError(w, http.StatusNotFound, "module not found")
		return
	}
	if !mc.gate.QuizValid {
		writeError(w, http.StatusForbidden, "module quiz does not have enough questions yet")
		return
	}

	sess, err := h.quiz.Start(ctx, learner, mc.module.Slug, mc.quiz.Questions, req.Count)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	learner, ok := learnerFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, LearnerHeader+" header is required")
		return
	}
	sess, err := h.quiz.Session(r.PathValue("id"), learner)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learner, ok := learnerFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, LearnerHeader+" header is required")
		return
	}

	var req answerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuestionID == "" || req.DisplayIndex == nil {
		writeError(w, http.StatusBadRequest, "questionId and displayIndex are required")
		return
	}

	id := r.PathValue("id")
	grade, err := h.quiz.Answer(ctx, id, learner, req.QuestionID, *req.DisplayIndex)
	if err != nil {
		writeQuizError(w, err)
		return
	}

	resp := gradeResponse{
		QuestionID:          grade.QuestionID,
		IsCorrect:           grade.IsCorrect,
		Explanation:         grade.Explanation,
		CorrectDisplayIndex: -1,
	}
	if sess, err := h.quiz.Session(id, learner); err == nil {
		resp.CorrectDisplayIndex = displayIndexOf(sess, grade.QuestionID, grade.CorrectAnswerIndex)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learner, ok := learnerFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, LearnerHeader+" header is required")
		return
	}

	id := r.PathValue("id")
	sess, err := h.quiz.Session(id, learner)
	if err != nil {
		writeQuizError(w, err)
		return
	}

	passing := h.passingScore
	if m, ok := h.content.ResolveModule(ctx, sess.ModuleSlug); ok {
		passing = h.passingScoreFor(m)
	}

	res, err := h.quiz.Finish(ctx, id, learner, passing)
	if err != nil {
		writeQuizError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finishResponse{
		Result:       res,
		ModuleSlug:   sess.ModuleSlug,
		PassingScore: passing,
	})
}
