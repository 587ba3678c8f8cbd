package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/p-n-ai/pai-learn/internal/platform/database/dbtest"
)

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	store := NewMemoryStore(0)
	sess := StartSession(nil, 0, SessionOptions{LearnerID: "learner-1"})

	if err := store.Save(sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(sess.ID, "learner-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != sess {
		t.Error("Get() returned a different session")
	}

	if _, err := store.Get(sess.ID, "learner-2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(other learner) error = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	old := StartSession(nil, 0, SessionOptions{LearnerID: "a", Now: func() time.Time { return now }})
	_ = store.Save(old)

	now = now.Add(2 * time.Hour)
	if _, err := store.Get(old.ID, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(expired) error = %v, want ErrSessionNotFound", err)
	}

	fresh := StartSession(nil, 0, SessionOptions{LearnerID: "a", Now: func() time.Time { return now }})
	_ = store.Save(fresh)
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweeping expired session", store.Len())
	}
}

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := NewMemoryEventLogger()

	err := logger.LogEvent(context.Background(), Event{
		SessionID: "s-1",
		LearnerID: "learner-1",
		EventType: EventAnswerGraded,
		Data:      map[string]any{"correct": true},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}
	if err := logger.LogEvent(context.Background(), Event{SessionID: "s-1"}); err == nil {
		t.Error("LogEvent() should require an event type")
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestPostgresEventLogger_NilPool(t *testing.T) {
	logger := NewPostgresEventLogger(nil)
	err := logger.LogEvent(context.Background(), Event{SessionID: "s-1", EventType: EventSessionStarted})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestPostgresEventLogger_Insert(t *testing.T) {
	db := dbtest.New(t)
	logger := NewPostgresEventLogger(db.Pool)
	ctx := context.Background()

	err := logger.LogEvent(ctx, Event{
		SessionID:  "s-1",
		LearnerID:  "learner-1",
		ModuleSlug: "go-fundamentals",
		EventType:  EventSessionFinished,
		Data:       map[string]any{"score": 80},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	var score int
	err = db.Pool.QueryRow(ctx,
		`SELECT (data->>'score')::int FROM quiz_events WHERE session_id = $1`, "s-1",
	).Scan(&score)
	if err != nil {
		t.Fatalf("query event: %v", err)
	}
	if score != 80 {
		t.Errorf("score = %d, want 80", score)
	}
}
