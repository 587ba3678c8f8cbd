package quiz_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

type recordedStatus struct {
	learner, module string
	status          curriculum.CompletionStatus
}

type fakeProgress struct {
	mu      sync.Mutex
	records []recordedStatus
	err     error
}

func (f *fakeProgress) SetStatus(_ context.Context, learnerID, moduleSlug string, status curriculum.CompletionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, recordedStatus{learnerID, moduleSlug, status})
	return nil
}

func newTestService(progress quiz.ProgressRecorder, events quiz.EventLogger) *quiz.Service {
	return quiz.NewService(quiz.ServiceConfig{
		Store:         quiz.NewMemoryStore(0),
		Events:        events,
		Progress:      progress,
		QuestionCount: 14,
		Rand:          seeded(42),
	})
}

func answerAllCorrectly(t *testing.T, svc *quiz.Service, sess *quiz.Session) {
	t.Helper()
	for _, it := range sess.Items() {
		q, _ := sess.Question(it.QuestionID)
		display := slices.Index(it.DisplayOrder, q.CorrectAnswerIndex)
		g, err := svc.Answer(context.Background(), sess.ID, sess.LearnerID, it.QuestionID, display)
		if err != nil {
			t.Fatalf("Answer() error = %v", err)
		}
		if !g.IsCorrect {
			t.Fatalf("Answer(%s) graded incorrect", it.QuestionID)
		}
	}
}

func TestService_FullAttempt(t *testing.T) {
	progress := &fakeProgress{}
	events := quiz.NewMemoryEventLogger()
	svc := newTestService(progress, events)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "learner-1", "go-fundamentals", pool(20), 0)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(sess.Items()) != 14 {
		t.Errorf("len(items) = %d, want default 14", len(sess.Items()))
	}

	answerAllCorrectly(t, svc, sess)

	res, err := svc.Finish(ctx, sess.ID, "learner-1", 70)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if res.Score != 100 || !res.Passed {
		t.Errorf("Result = %+v, want 100 passed", res)
	}

	if len(progress.records) != 1 {
		t.Fatalf("progress records = %d, want 1", len(progress.records))
	}
	if got := progress.records[0]; got.status != curriculum.Completed || got.module != "go-fundamentals" {
		t.Errorf("progress record = %+v", got)
	}

	// The session is closed after finishing.
	if _, err := svc.Session(sess.ID, "learner-1"); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("Session() after Finish error = %v, want ErrSessionNotFound", err)
	}

	var types []string
	for _, e := range events.Events() {
		types = append(types, e.EventType)
	}
	if types[0] != quiz.EventSessionStarted || types[len(types)-1] != quiz.EventSessionFinished {
		t.Errorf("event types = %v", types)
	}
	if len(types) != 16 {
		t.Errorf("len(events) = %d, want 16", len(types))
	}
}

func TestService_FailedAttemptRecordsInProgress(t *testing.T) {
	progress := &fakeProgress{}
	svc := newTestService(progress, nil)
	ctx := context.Background()

	sess, _ := svc.Start(ctx, "learner-1", "m", pool(4), 4)
	res, err := svc.Finish(ctx, sess.ID, "learner-1", 50)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if res.Passed {
		t.Error("unanswered session should not pass")
	}
	if progress.records[0].status != curriculum.InProgress {
		t.Errorf("status = %q, want in-progress", progress.records[0].status)
	}
}

func TestService_UnknownQuestionIsError(t *testing.T) {
	svc := newTestService(nil, nil)
	sess, _ := svc.Start(context.Background(), "learner-1", "m", pool(3), 3)

	g, err := svc.Answer(context.Background(), sess.ID, "learner-1", "not-in-session", 0)
	if !errors.Is(err, quiz.ErrUnknownQuestion) {
		t.Fatalf("Answer() error = %v, want ErrUnknownQuestion", err)
	}
	if g.IsCorrect {
		t.Error("unknown question must not produce a grade")
	}
}

func TestService_SessionsAreIsolatedPerLearner(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	a, _ := svc.Start(ctx, "alice", "m", pool(5), 5)
	b, _ := svc.Start(ctx, "bob", "m", pool(5), 5)
	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}

	if _, err := svc.Answer(ctx, a.ID, "bob", "q1", 0); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("cross-learner Answer() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.Finish(ctx, b.ID, "alice", 50); !errors.Is(err, quiz.ErrSessionNotFound) {
		t.Errorf("cross-learner Finish() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.Answer(ctx, a.ID, "alice", "q1", 0); err != nil {
		t.Errorf("own Answer() error = %v", err)
	}
}

func TestService_ProgressError(t *testing.T) {
	svc := newTestService(&fakeProgress{err: errors.New("db down")}, nil)
	sess, _ := svc.Start(context.Background(), "learner-1", "m", pool(2), 2)
	if _, err := svc.Finish(context.Background(), sess.ID, "learner-1", 50); err == nil {
		t.Fatal("Finish() should surface progress errors")
	}
}

func TestService_ProgressErrorKeepsSession(t *testing.T) {
	progress := &fakeProgress{err: errors.New("db down")}
	svc := newTestService(progress, nil)
	ctx := context.Background()
	sess, _ := svc.Start(ctx, "learner-1", "m", pool(2), 2)

	if _, err := svc.Finish(ctx, sess.ID, "learner-1", 50); err == nil {
		t.Fatal("Finish() should surface progress errors")
	}

	progress.mu.Lock()
	progress.err = nil
	progress.mu.Unlock()

	if _, err := svc.Finish(ctx, sess.ID, "learner-1", 50); err != nil {
		t.Fatalf("retried Finish() error = %v", err)
	}
	if len(progress.records) != 1 {
		t.Errorf("progress records = %d, want 1", len(progress.records))
	}
}

func TestService_ConcurrentFinishScoresOnce(t *testing.T) {
	progress := &fakeProgress{}
	events := quiz.NewMemoryEventLogger()
	svc := newTestService(progress, events)
	ctx := context.Background()

	sess, err := svc.Start(ctx, "learner-1", "m", pool(4), 4)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	answerAllCorrectly(t, svc, sess)

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	finished, notFound := 0, 0
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Finish(ctx, sess.ID, "learner-1", 50)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				finished++
			case errors.Is(err, quiz.ErrSessionNotFound):
				notFound++
			default:
				t.Errorf("Finish() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if finished != 1 || notFound != callers-1 {
		t.Errorf("finished = %d, not found = %d, want 1 and %d", finished, notFound, callers-1)
	}
	if len(progress.records) != 1 {
		t.Errorf("progress records = %d, want 1", len(progress.records))
	}
	n := 0
	for _, e := range events.Events() {
		if e.EventType == quiz.EventSessionFinished {
			n++
		}
	}
	if n != 1 {
		t.Errorf("finished events = %d, want 1", n)
	}
}

func TestService_RequiresLearner(t *testing.T) {
	svc := newTestService(nil, nil)
	if _, err := svc.Start(context.Background(), "", "m", pool(2), 2); err == nil {
		t.Fatal("Start() should require a learner id")
	}
}

func TestService_ConcurrentStarts(t *testing.T) {
	svc := newTestService(nil, nil)
	questions := pool(10)

	var wg sync.WaitGroup
	ids := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := svc.Start(context.Background(), "learner", "m", questions, 5)
			if err != nil {
				t.Errorf("Start() error = %v", err)
				return
			}
			for _, it := range sess.Items() {
				q, _ := sess.Question(it.QuestionID)
				if !isPermutation(it.DisplayOrder, len(q.Choices)) {
					t.Errorf("bad permutation %v", it.DisplayOrder)
				}
			}
			ids <- sess.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate session id %s", id)
		}
		seen[id] = true
	}
}
