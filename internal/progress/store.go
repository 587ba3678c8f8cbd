package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// ErrInvalidStatus is returned by SetStatus for malformed updates.
var ErrInvalidStatus = errors.New("invalid progress update")

// Store persists per-learner completion status.
type Store interface {
	// Progress returns the learner's entries keyed by canonical module slug.
	// Unknown learners get an empty map.
	Progress(ctx context.Context, learnerID string) (map[string]curriculum.ProgressEntry, error)
	// SetStatus records a module's status. A completed module never moves
	// back to a lower status.
	SetStatus(ctx context.Context, learnerID, moduleSlug string, status curriculum.CompletionStatus) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	learners map[string]map[string]curriculum.ProgressEntry
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{learners: make(map[string]map[string]curriculum.ProgressEntry)}
}

func (s *MemoryStore) Progress(_ context.Context, learnerID string) (map[string]curriculum.ProgressEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]curriculum.ProgressEntry, len(s.learners[learnerID]))
	for slug, e := range s.learners[learnerID] {
		out[slug] = e
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, learnerID, moduleSlug string, status curriculum.CompletionStatus) error {
	if err := checkSetStatus(learnerID, moduleSlug, status); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.learners[learnerID]
	if !ok {
		entries = make(map[string]curriculum.ProgressEntry)
		s.learners[learnerID] = entries
	}
	if entries[moduleSlug].CompletionStatus == curriculum.Completed {
		return nil
	}
	entries[moduleSlug] = curriculum.ProgressEntry{ModuleSlug: moduleSlug, CompletionStatus: status}
	return nil
}

func checkSetStatus(learnerID, moduleSlug string, status curriculum.CompletionStatus) error {
	if learnerID == "" {
		return fmt.Errorf("%w: learner id is required", ErrInvalidStatus)
	}
	if moduleSlug == "" {
		return fmt.Errorf("%w: module slug is required", ErrInvalidStatus)
	}
	switch status {
	case curriculum.NotStarted, curriculum.InProgress, curriculum.Completed:
		return nil
	default:
		return fmt.Errorf("%w: unknown completion status %q", ErrInvalidStatus, status)
	}
}
