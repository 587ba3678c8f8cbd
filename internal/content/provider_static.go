package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// DefaultCatalogFile is the catalog document name inside a static store.
const DefaultCatalogFile = "catalog.yaml"

// StaticProvider serves content from a tree of static documents:
//
//	catalog.yaml                 tiers and modules
//	modules/<slug>.json          ModuleDocument
//	modules/<slug>.quiz.xlsx     optional extra questions
type StaticProvider struct {
	fsys      fs.FS
	catalog   string
	validator *DocumentValidator
}

// NewStaticProvider creates a provider over fsys. An empty catalogFile uses
// DefaultCatalogFile.
func NewStaticProvider(fsys fs.FS, catalogFile string) (*StaticProvider, error) {
	if fsys == nil {
		return nil, fmt.Errorf("static content filesystem is nil")
	}
	v, err := NewDocumentValidator()
	if err != nil {
		return nil, err
	}
	if catalogFile == "" {
		catalogFile = DefaultCatalogFile
	}
	return &StaticProvider{fsys: fsys, catalog: catalogFile, validator: v}, nil
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Catalog(_ context.Context) (curriculum.Catalog, error) {
	cat, err := curriculum.LoadCatalog(p.fsys, p.catalog)
	if errors.Is(err, fs.ErrNotExist) {
		return curriculum.Catalog{}, fmt.Errorf("static catalog %s: %w", p.catalog, ErrNotFound)
	}
	return cat, err
}

func (p *StaticProvider) Module(_ context.Context, slug string) (curriculum.Module, error) {
	doc, err := p.document(slug)
	if err != nil {
		return curriculum.Module{}, err
	}
	return doc.Module, nil
}

func (p *StaticProvider) Lessons(_ context.Context, slug string) ([]curriculum.Lesson, error) {
	doc, err := p.document(slug)
	if err != nil {
		return nil, err
	}
	return doc.Lessons, nil
}

func (p *StaticProvider) Quiz(_ context.Context, slug string) ([]curriculum.RawQuestion, error) {
	doc, err := p.document(slug)
	if err != nil {
		return nil, err
	}
	questions := doc.Quiz.Questions

	extra, err := p.workbook(slug)
	if err != nil {
		// A broken workbook should not hide the document's own questions.
		slog.Warn("skipping question workbook", "slug", slug, "error", err)
	}
	return append(questions, extra...), nil
}

func (p *StaticProvider) document(slug string) (ModuleDocument, error) {
	name := path.Join("modules", slug+".json")
	if !fs.ValidPath(name) || path.Dir(name) != "modules" {
		return ModuleDocument{}, fmt.Errorf("invalid slug %q: %w", slug, ErrNotFound)
	}

	data, err := fs.ReadFile(p.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return ModuleDocument{}, fmt.Errorf("static document %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return ModuleDocument{}, fmt.Errorf("read %s: %w", name, err)
	}

	if err := p.validator.Validate(data); err != nil {
		return ModuleDocument{}, fmt.Errorf("%s: %w", name, err)
	}

	var doc ModuleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ModuleDocument{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if doc.Module.Slug != slug {
		return ModuleDocument{}, fmt.Errorf("%s: document slug %q does not match", name, doc.Module.Slug)
	}
	return doc, nil
}

func (p *StaticProvider) workbook(slug string) ([]curriculum.RawQuestion, error) {
	name := path.Join("modules", slug+".quiz.xlsx")
	data, err := fs.ReadFile(p.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return ReadQuestionWorkbook(bytes.NewReader(data))
}
