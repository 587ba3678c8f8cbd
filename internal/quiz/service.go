package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// ProgressRecorder receives the outcome of a finished quiz.
type ProgressRecorder interface {
	SetStatus(ctx context.Context, learnerID, moduleSlug string, status curriculum.CompletionStatus) error
}

// ServiceConfig holds dependencies for the quiz service.
type ServiceConfig struct {
	Store         SessionStore
	Events        EventLogger
	Progress      ProgressRecorder
	Select        Selection
	QuestionCount int        // default questions per session
	Rand          *rand.Rand // seeds per-session generators; random when nil
}

// Service manages quiz sessions on behalf of learners.
type Service struct {
	store         SessionStore
	events        EventLogger
	progress      ProgressRecorder
	sel           Selection
	questionCount int
	now           func() time.Time

	mu   sync.Mutex // guards rand
	rand *rand.Rand
}

const defaultQuestionCount = 14

// NewService creates a quiz service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore(0)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	sel := cfg.Select
	if sel == nil {
		sel = SelectFirst
	}
	count := cfg.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{
		store:         store,
		events:        events,
		progress:      cfg.Progress,
		sel:           sel,
		questionCount: count,
		now:           time.Now,
		rand:          r,
	}
}

// Start opens a session over the module's sanitized questions. A
// non-positive count uses the configured default.
func (s *Service) Start(ctx context.Context, learnerID, moduleSlug string, questions []curriculum.QuizQuestion, count int) (*Session, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner id is required")
	}
	if count <= 0 {
		count = s.questionCount
	}

	// Each session gets its own generator so that shuffling never touches
	// shared state after StartSession returns.
	s.mu.Lock()
	r := rand.New(rand.NewPCG(s.rand.Uint64(), s.rand.Uint64()))
	s.mu.Unlock()

	sess := StartSession(questions, count, SessionOptions{
		LearnerID:  learnerID,
		ModuleSlug: moduleSlug,
		Select:     s.sel,
		Rand:       r,
		Now:        s.now,
	})
	if err := s.store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logEvent(ctx, sess, EventSessionStarted, map[string]any{
		"questions": len(sess.items),
		"pool":      len(questions),
	})
	slog.Info("quiz session started",
		"session_id", sess.ID,
		"module", moduleSlug,
		"questions", len(sess.items),
	)
	return sess, nil
}

// Session returns a learner's live session.
func (s *Service) Session(sessionID, learnerID string) (*Session, error) {
	return s.store.Get(sessionID, learnerID)
}

// Answer records the learner's choice at displayIndex and grades it.
func (s *Service) Answer(ctx context.Context, sessionID, learnerID, questionID string, displayIndex int) (Grade, error) {
	sess, err := s.store.Get(sessionID, learnerID)
	if err != nil {
		return Grade{}, err
	}

	grade, err := sess.RecordAnswer(questionID, displayIndex, s.now())
	if err != nil {
		return Grade{}, err
	}

	s.logEvent(ctx, sess, EventAnswerGraded, map[string]any{
		"question_id": questionID,
		"correct":     grade.IsCorrect,
	})
	return grade, nil
}

// Finish closes the session, scores it and reports the outcome to the
// progress collaborator. Only one of several concurrent calls wins; the
// others get ErrSessionNotFound.
func (s *Service) Finish(ctx context.Context, sessionID, learnerID string, passingScore int) (Result, error) {
	sess, err := s.store.Get(sessionID, learnerID)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.Delete(sessionID); err != nil {
		return Result{}, err
	}

	res := sess.Result(passingScore)

	if s.progress != nil {
		status := curriculum.InProgress
		if res.Passed {
			status = curriculum.Completed
		}
		if err := s.progress.SetStatus(ctx, learnerID, sess.ModuleSlug, status); err != nil {
			// Put the session back so the learner can finish again.
			if serr := s.store.Save(sess); serr != nil {
				slog.Warn("failed to restore session", "session_id", sessionID, "error", serr)
			}
			return Result{}, fmt.Errorf("record progress: %w", err)
		}
	}

	s.logEvent(ctx, sess, EventSessionFinished, map[string]any{
		"score":    res.Score,
		"passed":   res.Passed,
		"answered": res.Answered,
	})
	return res, nil
}

func (s *Service) logEvent(ctx context.Context, sess *Session, eventType string, data map[string]any) {
	err := s.events.LogEvent(ctx, Event{
		SessionID:  sess.ID,
		LearnerID:  sess.LearnerID,
		ModuleSlug: sess.ModuleSlug,
		EventType:  eventType,
		Data:       data,
		CreatedAt:  s.now(),
	})
	if err != nil {
		slog.Warn("failed to log quiz event", "type", eventType, "error", err)
	}
}
