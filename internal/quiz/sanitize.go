// Package quiz runs quiz sessions: question sanitization, per-session choice
// shuffling and grading against the original answer key.
package quiz

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// Sanitize cleans a raw question pool. Questions with empty text or an
// invalid choice set are dropped, never repaired. Duplicates by (id, text)
// keep their first occurrence. Type is inferred from the shape of the
// question rather than trusted from the source: only a question without
// choices and without an answer key is open-ended, so choices lacking a key
// are dropped whatever the label says.
func Sanitize(raw []curriculum.RawQuestion) []curriculum.QuizQuestion {
	out := make([]curriculum.QuizQuestion, 0, len(raw))
	seen := make(map[[2]string]bool, len(raw))

	for i, r := range raw {
		q, reason := sanitizeOne(r)
		if reason != "" {
			slog.Warn("dropping quiz question", "index", i, "id", r.ID, "reason", reason)
			continue
		}
		key := [2]string{q.ID, q.Question}
		if seen[key] {
			slog.Debug("dropping duplicate quiz question", "index", i, "id", q.ID)
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

func sanitizeOne(r curriculum.RawQuestion) (curriculum.QuizQuestion, string) {
	q := curriculum.QuizQuestion{
		ID:                 strings.TrimSpace(r.ID),
		Question:           cleanText(r.Question),
		Explanation:        strings.TrimSpace(r.Explanation),
		Topic:              strings.TrimSpace(r.Topic),
		EstimatedTime:      strings.TrimSpace(r.EstimatedTime),
		CorrectAnswerIndex: curriculum.NoAnswer,
	}
	if q.Question == "" {
		return q, "empty question text"
	}

	if len(r.Choices) == 0 && r.CorrectAnswerIndex == nil {
		if r.Type == curriculum.MultipleChoice {
			return q, "multiple-choice question without choices"
		}
		q.Type = curriculum.OpenEnded
		return q, ""
	}

	// Anything carrying choices or an answer key must be a well-formed
	// multiple-choice question.
	if len(r.Choices) < 2 {
		return q, "fewer than two choices"
	}
	choices := make([]string, len(r.Choices))
	for i, c := range r.Choices {
		choices[i] = cleanText(c)
		if choices[i] == "" {
			return q, "empty choice"
		}
	}
	if r.CorrectAnswerIndex == nil {
		return q, "missing correct answer index"
	}
	if idx := *r.CorrectAnswerIndex; idx < 0 || idx >= len(choices) {
		return q, "correct answer index out of range"
	}

	q.Choices = choices
	q.CorrectAnswerIndex = *r.CorrectAnswerIndex
	q.Type = curriculum.MultipleChoice
	return q, ""
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
