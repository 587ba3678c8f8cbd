// Package content resolves curriculum content through an ordered chain of
// backing stores with response caching.
package content

import (
	"context"
	"errors"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// ErrNotFound is returned by a Provider that has no record for a slug.
var ErrNotFound = errors.New("content not found")

// Provider is a backing store for curriculum content. Slugs passed to a
// Provider are always canonical.
type Provider interface {
	Name() string
	Catalog(ctx context.Context) (curriculum.Catalog, error)
	Module(ctx context.Context, slug string) (curriculum.Module, error)
	Lessons(ctx context.Context, slug string) ([]curriculum.Lesson, error)
	Quiz(ctx context.Context, slug string) ([]curriculum.RawQuestion, error)
}

// ModuleDocument is the per-module payload shared by the HTTP API and the
// static documents.
type ModuleDocument struct {
	Module  curriculum.Module   `json:"module"`
	Lessons []curriculum.Lesson `json:"lessons"`
	Quiz    QuizDocument        `json:"quiz"`
}

// QuizDocument is the unsanitized question pool of a module.
type QuizDocument struct {
	Questions []curriculum.RawQuestion `json:"questions"`
}
