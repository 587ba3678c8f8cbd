package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-learn/internal/content"
	"github.com/p-n-ai/pai-learn/internal/platform/database/dbtest"
)

func TestNewPostgresProvider_NilPool(t *testing.T) {
	if _, err := content.NewPostgresProvider(nil); err == nil {
		t.Fatal("NewPostgresProvider(nil) should return error")
	}
}

func TestPostgresProvider(t *testing.T) {
	db := dbtest.New(t)
	p, err := content.NewPostgresProvider(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresProvider() error = %v", err)
	}
	ctx := context.Background()

	if _, err := p.Catalog(ctx); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Catalog() on empty tables error = %v, want ErrNotFound", err)
	}

	for _, tier := range testCatalog().Tiers {
		if err := p.SaveTier(ctx, tier); err != nil {
			t.Fatalf("SaveTier() error = %v", err)
		}
	}
	if err := p.SaveDocument(ctx, goFundamentals()); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	// Saving twice replaces rather than duplicates.
	if err := p.SaveDocument(ctx, goFundamentals()); err != nil {
		t.Fatalf("second SaveDocument() error = %v", err)
	}

	cat, err := p.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(cat.Tiers) != 2 || cat.Tiers[0].Level != 1 || len(cat.Modules) != 1 {
		t.Errorf("Catalog() = %+v", cat)
	}

	m, err := p.Module(ctx, "go-fundamentals-and-tooling")
	if err != nil || m.ShortSlug != "go-basics" {
		t.Errorf("Module() = %+v, %v", m, err)
	}

	lessons, err := p.Lessons(ctx, "go-fundamentals-and-tooling")
	if err != nil {
		t.Fatalf("Lessons() error = %v", err)
	}
	// The duplicate order 2 collapses onto one row.
	if len(lessons) != 4 || lessons[0].Order != 0 {
		t.Errorf("Lessons() = %+v", lessons)
	}

	questions, err := p.Quiz(ctx, "go-fundamentals-and-tooling")
	if err != nil || len(questions) != 4 || questions[1].ID != "q2" {
		t.Errorf("Quiz() = %+v, %v", questions, err)
	}

	if _, err := p.Module(ctx, "nope"); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Module(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := p.Lessons(ctx, "nope"); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Lessons(nope) error = %v, want ErrNotFound", err)
	}

	if err := p.SaveDocument(ctx, content.ModuleDocument{}); err == nil {
		t.Error("SaveDocument() without slug should fail")
	}
}
