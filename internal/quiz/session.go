package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

var (
	// ErrUnknownQuestion is matched by *UnknownQuestionError.
	ErrUnknownQuestion        = errors.New("unknown question")
	ErrDisplayIndexOutOfRange = errors.New("display index out of range")
	ErrOpenEnded              = errors.New("open-ended question is not auto-graded")
	ErrAlreadyAnswered        = errors.New("question already answered")
)

// UnknownQuestionError reports a question id that is not part of the session.
// It distinguishes a malformed request from a wrong answer.
type UnknownQuestionError struct {
	QuestionID string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("unknown question %q", e.QuestionID)
}

func (e *UnknownQuestionError) Is(target error) bool {
	return target == ErrUnknownQuestion
}

// Item is one question of a session. DisplayOrder[i] is the original index
// of the choice shown at position i.
type Item struct {
	QuestionID   string
	DisplayOrder []int
}

// Answer is a recorded learner answer.
type Answer struct {
	QuestionID    string    `json:"questionId"`
	DisplayIndex  int       `json:"displayIndex"`
	OriginalIndex int       `json:"originalIndex"`
	Correct       bool      `json:"correct"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// Grade is the outcome of grading one answer.
type Grade struct {
	QuestionID         string `json:"questionId"`
	IsCorrect          bool   `json:"isCorrect"`
	Explanation        string `json:"explanation"`
	CorrectAnswerIndex int    `json:"correctAnswerIndex"`
}

// Result summarizes a session against a passing score.
type Result struct {
	Answered int  `json:"answered"`
	Correct  int  `json:"correct"`
	Gradable int  `json:"gradable"`
	Score    int  `json:"score"` // percent, rounded down
	Passed   bool `json:"passed"`
}

// Session is a single learner attempt. Display orders are fixed when the
// session starts and never change afterwards.
type Session struct {
	ID         string
	LearnerID  string
	ModuleSlug string
	CreatedAt  time.Time

	items     []Item
	questions map[string]curriculum.QuizQuestion
	order     map[string][]int

	mu      sync.Mutex
	answers map[string]Answer
}

// Selection picks which questions enter a session.
type Selection func(questions []curriculum.QuizQuestion, n int, r *rand.Rand) []curriculum.QuizQuestion

// SelectFirst takes the first n questions in pool order.
func SelectFirst(questions []curriculum.QuizQuestion, n int, _ *rand.Rand) []curriculum.QuizQuestion {
	return append([]curriculum.QuizQuestion(nil), questions[:n]...)
}

// SelectRandom takes n distinct questions uniformly at random.
func SelectRandom(questions []curriculum.QuizQuestion, n int, r *rand.Rand) []curriculum.QuizQuestion {
	pool := append([]curriculum.QuizQuestion(nil), questions...)
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + r.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// SessionOptions configures StartSession.
type SessionOptions struct {
	LearnerID  string
	ModuleSlug string
	Select     Selection  // defaults to SelectFirst
	Rand       *rand.Rand // defaults to a randomly seeded source
	Now        func() time.Time
}

// StartSession selects min(desiredCount, len(questions)) questions and fixes
// a random display permutation for each one.
func StartSession(questions []curriculum.QuizQuestion, desiredCount int, opts SessionOptions) *Session {
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	sel := opts.Select
	if sel == nil {
		sel = SelectFirst
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	n := min(max(desiredCount, 0), len(questions))
	picked := sel(questions, n, r)

	s := &Session{
		ID:         uuid.NewString(),
		LearnerID:  opts.LearnerID,
		ModuleSlug: opts.ModuleSlug,
		CreatedAt:  now(),
		items:      make([]Item, 0, len(picked)),
		questions:  make(map[string]curriculum.QuizQuestion, len(picked)),
		order:      make(map[string][]int, len(picked)),
		answers:    make(map[string]Answer),
	}

	for i, q := range picked {
		id := q.ID
		if _, dup := s.questions[id]; dup || id == "" {
			id = fmt.Sprintf("%s#%d", q.ID, i+1)
			q.ID = id
		}
		perm := Permutation(len(q.Choices), r)
		s.items = append(s.items, Item{QuestionID: id, DisplayOrder: perm})
		s.questions[id] = q
		s.order[id] = perm
	}
	return s
}

// Permutation returns a uniformly random permutation of 0..n-1 using the
// Fisher-Yates shuffle.
func Permutation(n int, r *rand.Rand) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

// Items returns the session's questions in presentation order.
func (s *Session) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = Item{QuestionID: it.QuestionID, DisplayOrder: append([]int(nil), it.DisplayOrder...)}
	}
	return out
}

// Question returns a session question by id.
func (s *Session) Question(id string) (curriculum.QuizQuestion, bool) {
	q, ok := s.questions[id]
	return q, ok
}

// DisplayedChoices returns the choices of a question in display order.
func (s *Session) DisplayedChoices(questionID string) ([]string, error) {
	q, ok := s.questions[questionID]
	if !ok {
		return nil, &UnknownQuestionError{QuestionID: questionID}
	}
	perm := s.order[questionID]
	out := make([]string, len(perm))
	for display, original := range perm {
		out[display] = q.Choices[original]
	}
	return out, nil
}

// OriginalIndex maps the choice shown at displayIndex back to its index in
// the question's original choice order.
func (s *Session) OriginalIndex(questionID string, displayIndex int) (int, error) {
	q, ok := s.questions[questionID]
	if !ok {
		return 0, &UnknownQuestionError{QuestionID: questionID}
	}
	if q.Type != curriculum.MultipleChoice {
		return 0, ErrOpenEnded
	}
	perm := s.order[questionID]
	if displayIndex < 0 || displayIndex >= len(perm) {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrDisplayIndexOutOfRange, displayIndex, len(perm))
	}
	return perm[displayIndex], nil
}

// Grade compares an original-order index against the answer key.
func (s *Session) Grade(questionID string, originalIndex int) (Grade, error) {
	q, ok := s.questions[questionID]
	if !ok {
		return Grade{}, &UnknownQuestionError{QuestionID: questionID}
	}
	if q.Type != curriculum.MultipleChoice {
		return Grade{}, ErrOpenEnded
	}
	return Grade{
		QuestionID:         questionID,
		IsCorrect:          originalIndex == q.CorrectAnswerIndex,
		Explanation:        q.Explanation,
		CorrectAnswerIndex: q.CorrectAnswerIndex,
	}, nil
}

// RecordAnswer maps displayIndex to the original index, grades it and stores
// the answer. Each question accepts one answer.
func (s *Session) RecordAnswer(questionID string, displayIndex int, at time.Time) (Grade, error) {
	original, err := s.OriginalIndex(questionID, displayIndex)
	if err != nil {
		return Grade{}, err
	}
	grade, err := s.Grade(questionID, original)
	if err != nil {
		return Grade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.answers[questionID]; done {
		return Grade{}, fmt.Errorf("%w: %s", ErrAlreadyAnswered, questionID)
	}
	s.answers[questionID] = Answer{
		QuestionID:    questionID,
		DisplayIndex:  displayIndex,
		OriginalIndex: original,
		Correct:       grade.IsCorrect,
		AnsweredAt:    at,
	}
	return grade, nil
}

// Answers returns the recorded answers in session order.
func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Answer, 0, len(s.answers))
	for _, it := range s.items {
		if a, ok := s.answers[it.QuestionID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Result scores the session over its multiple-choice questions. Unanswered
// questions count as incorrect.
func (s *Session) Result(passingScore int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	for _, it := range s.items {
		if s.questions[it.QuestionID].Type != curriculum.MultipleChoice {
			continue
		}
		res.Gradable++
		a, ok := s.answers[it.QuestionID]
		if !ok {
			continue
		}
		res.Answered++
		if a.Correct {
			res.Correct++
		}
	}
	if res.Gradable > 0 {
		res.Score = res.Correct * 100 / res.Gradable
	}
	res.Passed = res.Gradable > 0 && res.Score >= passingScore
	return res
}
