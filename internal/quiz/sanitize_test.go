package quiz_test

import (
	"reflect"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

func idx(i int) *int { return &i }

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		in       curriculum.RawQuestion
		wantKeep bool
		wantType curriculum.QuestionType
	}{
		{
			name:     "valid multiple choice",
			in:       curriculum.RawQuestion{ID: "q1", Question: "2+2?", Choices: []string{"3", "4"}, CorrectAnswerIndex: idx(1)},
			wantKeep: true,
			wantType: curriculum.MultipleChoice,
		},
		{
			name:     "mislabeled open-ended with valid choices",
			in:       curriculum.RawQuestion{ID: "q2", Question: "Pick", Choices: []string{"a", "b", "c"}, CorrectAnswerIndex: idx(0), Type: curriculum.OpenEnded},
			wantKeep: true,
			wantType: curriculum.MultipleChoice,
		},
		{
			name:     "open-ended",
			in:       curriculum.RawQuestion{ID: "q3", Question: "Explain goroutines."},
			wantKeep: true,
			wantType: curriculum.OpenEnded,
		},
		{
			name: "empty text",
			in:   curriculum.RawQuestion{ID: "q4", Question: "   ", Choices: []string{"a", "b"}, CorrectAnswerIndex: idx(0)},
		},
		{
			name: "single choice",
			in:   curriculum.RawQuestion{ID: "q5", Question: "?", Choices: []string{"a"}, CorrectAnswerIndex: idx(0)},
		},
		{
			name: "blank choice",
			in:   curriculum.RawQuestion{ID: "q6", Question: "?", Choices: []string{"a", "  "}, CorrectAnswerIndex: idx(0)},
		},
		{
			name: "index out of range",
			in:   curriculum.RawQuestion{ID: "q7", Question: "?", Choices: []string{"a", "b"}, CorrectAnswerIndex: idx(2)},
		},
		{
			name: "negative index",
			in:   curriculum.RawQuestion{ID: "q8", Question: "?", Choices: []string{"a", "b"}, CorrectAnswerIndex: idx(-1)},
		},
		{
			name: "choices without answer key",
			in:   curriculum.RawQuestion{ID: "q9", Question: "?", Choices: []string{"a", "b"}},
		},
		{
			// Choices mark a multiple-choice question even under an
			// open-ended label; without a key it cannot be graded.
			name: "open-ended label with choices but no answer key",
			in:   curriculum.RawQuestion{ID: "q12", Question: "Explain", Choices: []string{"a", "b"}, Type: curriculum.OpenEnded},
		},
		{
			name: "multiple choice label without choices",
			in:   curriculum.RawQuestion{ID: "q10", Question: "?", Type: curriculum.MultipleChoice},
		},
		{
			name: "answer key without choices",
			in:   curriculum.RawQuestion{ID: "q11", Question: "?", CorrectAnswerIndex: idx(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quiz.Sanitize([]curriculum.RawQuestion{tt.in})
			if !tt.wantKeep {
				if len(got) != 0 {
					t.Fatalf("Sanitize() kept %+v, want dropped", got[0])
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("Sanitize() dropped question, want kept")
			}
			if got[0].Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got[0].Type, tt.wantType)
			}
			if tt.wantType == curriculum.OpenEnded && got[0].CorrectAnswerIndex != curriculum.NoAnswer {
				t.Errorf("open-ended CorrectAnswerIndex = %d, want NoAnswer", got[0].CorrectAnswerIndex)
			}
		})
	}
}

func TestSanitize_TrimsAndDeduplicates(t *testing.T) {
	raw := []curriculum.RawQuestion{
		{ID: "q1", Question: "  What is a slice? ", Choices: []string{" view ", "array"}, CorrectAnswerIndex: idx(0), Explanation: "A view. "},
		{ID: "q1", Question: "What is a slice?", Choices: []string{"x", "y"}, CorrectAnswerIndex: idx(1)},
		{ID: "q1", Question: "What is a map?", Choices: []string{"hash", "tree"}, CorrectAnswerIndex: idx(0)},
		{ID: "q2", Question: "What is a slice?", Choices: []string{"a", "b"}, CorrectAnswerIndex: idx(0)},
	}

	got := quiz.Sanitize(raw)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Question != "What is a slice?" {
		t.Errorf("Question = %q, want trimmed", got[0].Question)
	}
	if got[0].Choices[0] != "view" {
		t.Errorf("Choices[0] = %q, want trimmed", got[0].Choices[0])
	}
	if got[0].Explanation != "A view." {
		t.Errorf("Explanation = %q", got[0].Explanation)
	}
	// First occurrence wins.
	if got[0].CorrectAnswerIndex != 0 {
		t.Errorf("CorrectAnswerIndex = %d, want first occurrence's 0", got[0].CorrectAnswerIndex)
	}
}

func TestSanitize_NormalizesUnicode(t *testing.T) {
	composed := "Caf\u00e9?"
	decomposed := "Cafe\u0301?"
	got := quiz.Sanitize([]curriculum.RawQuestion{
		{ID: "q1", Question: composed},
		{ID: "q1", Question: decomposed},
	})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 (NFC forms are duplicates)", len(got))
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	raw := []curriculum.RawQuestion{
		{ID: "q1", Question: " A ", Choices: []string{" x", "y "}, CorrectAnswerIndex: idx(1), Type: curriculum.OpenEnded},
		{ID: "q2", Question: "B"},
		{ID: "q3", Question: ""},
		{ID: "q1", Question: "A", Choices: []string{"x", "y"}, CorrectAnswerIndex: idx(0)},
		{ID: "q4", Question: "Café", Choices: []string{"1", "2", "3"}, CorrectAnswerIndex: idx(2), Topic: " t "},
	}

	once := quiz.Sanitize(raw)
	again := make([]curriculum.RawQuestion, len(once))
	for i, q := range once {
		again[i] = q.Raw()
	}
	twice := quiz.Sanitize(again)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Sanitize not idempotent:\nonce  = %+v\ntwice = %+v", once, twice)
	}
}
