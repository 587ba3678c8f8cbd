package curriculum

import (
	"fmt"
	"strings"
)

// SlugIndex maps short module slugs to canonical slugs and back.
// It is immutable once built and safe for concurrent use.
type SlugIndex struct {
	toShort     map[string]string
	toCanonical map[string]string
}

// NewSlugIndex builds an index from canonical -> short pairs. Every canonical
// slug must have exactly one short slug and vice versa.
func NewSlugIndex(pairs map[string]string) (*SlugIndex, error) {
	idx := &SlugIndex{
		toShort:     make(map[string]string, len(pairs)),
		toCanonical: make(map[string]string, len(pairs)),
	}
	for canonical, short := range pairs {
		canonical = strings.TrimSpace(canonical)
		short = strings.TrimSpace(short)
		if canonical == "" || short == "" {
			return nil, fmt.Errorf("empty slug in pair %q -> %q", canonical, short)
		}
		if prev, ok := idx.toCanonical[short]; ok && prev != canonical {
			return nil, fmt.Errorf("short slug %q maps to both %q and %q", short, prev, canonical)
		}
		// A short slug may not shadow another module's canonical slug.
		if _, ok := pairs[short]; ok && short != canonical {
			return nil, fmt.Errorf("short slug %q collides with a canonical slug", short)
		}
		idx.toShort[canonical] = short
		idx.toCanonical[short] = canonical
	}
	return idx, nil
}

// SlugIndexFromModules builds an index from the modules' own slug pairs.
func SlugIndexFromModules(modules []Module) (*SlugIndex, error) {
	pairs := make(map[string]string, len(modules))
	for _, m := range modules {
		if m.Slug == "" || m.ShortSlug == "" {
			continue
		}
		pairs[m.Slug] = m.ShortSlug
	}
	return NewSlugIndex(pairs)
}

// ShortSlugOf returns the short slug for a canonical slug.
func (x *SlugIndex) ShortSlugOf(canonical string) (string, bool) {
	if x == nil {
		return "", false
	}
	s, ok := x.toShort[canonical]
	return s, ok
}

// CanonicalSlugOf returns the canonical slug for a short slug.
func (x *SlugIndex) CanonicalSlugOf(short string) (string, bool) {
	if x == nil {
		return "", false
	}
	s, ok := x.toCanonical[short]
	return s, ok
}

// Canonical normalizes a short or canonical slug to its canonical form.
// Unknown input is returned unchanged so that it surfaces as a missing module.
func (x *SlugIndex) Canonical(slug string) string {
	slug = strings.TrimSpace(slug)
	if c, ok := x.CanonicalSlugOf(slug); ok {
		return c
	}
	return slug
}

// Short returns the short slug for a canonical slug, or the input itself.
func (x *SlugIndex) Short(slug string) string {
	if s, ok := x.ShortSlugOf(slug); ok {
		return s
	}
	return slug
}

// Len returns the number of indexed modules.
func (x *SlugIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.toShort)
}

// Merge returns a new index holding both sets of pairs. Pairs in other win
// for canonical slugs present in both; a conflicting result is an error.
func (x *SlugIndex) Merge(other *SlugIndex) (*SlugIndex, error) {
	pairs := make(map[string]string, x.Len()+other.Len())
	if x != nil {
		for c, s := range x.toShort {
			pairs[c] = s
		}
	}
	if other != nil {
		for c, s := range other.toShort {
			pairs[c] = s
		}
	}
	return NewSlugIndex(pairs)
}
