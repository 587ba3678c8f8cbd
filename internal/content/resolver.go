package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

const (
	defaultTimeout = 3 * time.Second
	// catalogRetry limits how often an unknown slug may trigger a catalog load.
	catalogRetry = 30 * time.Second
)

// ResolverConfig holds dependencies for a Resolver.
type ResolverConfig struct {
	// Providers are tried in order; the first success wins.
	Providers []Provider
	Cache     Cache
	// Timeout bounds every single provider call.
	Timeout time.Duration
	// Slugs seeds the slug index. Pairs from resolved catalogs are merged in.
	Slugs *curriculum.SlugIndex
}

// Resolver answers content lookups from the provider chain. Lookups never
// fail: a miss in every provider is reported as absent.
type Resolver struct {
	providers []Provider
	cache     Cache
	timeout   time.Duration

	slugs          atomic.Pointer[curriculum.SlugIndex]
	catalogLoaded  atomic.Bool
	catalogAttempt atomic.Int64 // unix nanos of the last lazy catalog load
	excluded       atomic.Pointer[map[string]bool]
	group          singleflight.Group
	now            func() time.Time
}

// NewResolver creates a resolver. A nil cache disables caching.
func NewResolver(cfg ResolverConfig) *Resolver {
	cache := cfg.Cache
	if cache == nil {
		cache = NopCache{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	r := &Resolver{
		providers: cfg.Providers,
		cache:     cache,
		timeout:   timeout,
		now:       time.Now,
	}
	slugs := cfg.Slugs
	if slugs == nil {
		slugs, _ = curriculum.NewSlugIndex(nil)
	}
	r.slugs.Store(slugs)
	return r
}

// Slugs returns the current slug index.
func (r *Resolver) Slugs() *curriculum.SlugIndex {
	return r.slugs.Load()
}

// CanonicalSlug normalizes a short or canonical slug. Unknown slugs trigger
// one catalog load so that short slugs work before the catalog was listed.
func (r *Resolver) CanonicalSlug(ctx context.Context, slug string) string {
	idx := r.slugs.Load()
	if _, ok := idx.ShortSlugOf(slug); ok {
		return slug
	}
	if c, ok := idx.CanonicalSlugOf(slug); ok {
		return c
	}
	if !r.catalogLoaded.Load() {
		now := r.now().UnixNano()
		last := r.catalogAttempt.Load()
		if now-last >= int64(catalogRetry) && r.catalogAttempt.CompareAndSwap(last, now) {
			r.ResolveCatalog(ctx)
			return r.slugs.Load().Canonical(slug)
		}
	}
	return idx.Canonical(slug)
}

// ResolveCatalog returns the validated tier and module listing.
func (r *Resolver) ResolveCatalog(ctx context.Context) (curriculum.Catalog, bool) {
	entry, ok := resolve(ctx, r, "catalog", func(ctx context.Context, p Provider) (catalogEntry, error) {
		cat, err := p.Catalog(ctx)
		if err != nil {
			return catalogEntry{}, err
		}
		valid, _ := curriculum.ValidateModules(cat.Modules)
		return catalogEntry{
			Catalog: curriculum.Catalog{
				Tiers:   curriculum.SortTiers(cat.Tiers),
				Modules: valid,
			},
			Excluded: excludedSlugs(cat.Modules, valid),
		}, nil
	})
	if ok {
		r.mergeSlugs(entry.Catalog.Modules)
		excluded := make(map[string]bool, len(entry.Excluded))
		for _, slug := range entry.Excluded {
			excluded[slug] = true
		}
		r.excluded.Store(&excluded)
		r.catalogLoaded.Store(true)
	}
	return entry.Catalog, ok
}

// catalogEntry is the cached form of a validated catalog. Excluded keeps the
// slugs validation rejected so module lookups can refuse them too.
type catalogEntry struct {
	Catalog  curriculum.Catalog `json:"catalog"`
	Excluded []string           `json:"excluded"`
}

func excludedSlugs(all, valid []curriculum.Module) []string {
	kept := make(map[string]bool, len(valid))
	for _, m := range valid {
		kept[m.Slug] = true
	}
	var out []string
	for _, m := range all {
		if m.Slug != "" && !kept[m.Slug] {
			out = append(out, m.Slug)
		}
	}
	return out
}

func (r *Resolver) isExcluded(slug string) bool {
	excluded := r.excluded.Load()
	return excluded != nil && (*excluded)[slug]
}

// ResolveTier returns the tier with the given level.
func (r *Resolver) ResolveTier(ctx context.Context, level int) (curriculum.Tier, bool) {
	cat, ok := r.ResolveCatalog(ctx)
	if !ok {
		return curriculum.Tier{}, false
	}
	return cat.Tier(level)
}

// ResolveModule returns the module addressed by a canonical or short slug.
func (r *Resolver) ResolveModule(ctx context.Context, slug string) (curriculum.Module, bool) {
	canonical := r.CanonicalSlug(ctx, slug)
	if canonical == "" {
		return curriculum.Module{}, false
	}
	m, ok := resolve(ctx, r, "module:"+canonical, func(ctx context.Context, p Provider) (curriculum.Module, error) {
		m, err := p.Module(ctx, canonical)
		if err != nil {
			return curriculum.Module{}, err
		}
		if m.Slug != canonical {
			return curriculum.Module{}, fmt.Errorf("module slug %q does not match %q", m.Slug, canonical)
		}
		if slices.Contains(m.Prerequisites, m.Slug) {
			return curriculum.Module{}, fmt.Errorf("module %s lists itself as prerequisite: %w", m.Slug, curriculum.ErrCycle)
		}
		return m, nil
	})
	if !ok {
		return curriculum.Module{}, false
	}
	if r.isExcluded(canonical) {
		slog.Debug("module excluded by catalog validation", "module", canonical)
		return curriculum.Module{}, false
	}
	if m.ShortSlug == "" {
		if short, found := r.slugs.Load().ShortSlugOf(canonical); found {
			m.ShortSlug = short
		}
	}
	if m.Status == "" {
		m.Status = curriculum.StatusActive
	}
	return m, true
}

// ResolveLessons returns the module's valid lessons in ascending order.
func (r *Resolver) ResolveLessons(ctx context.Context, slug string) []curriculum.Lesson {
	canonical := r.CanonicalSlug(ctx, slug)
	if canonical == "" {
		return nil
	}
	lessons, _ := resolve(ctx, r, "lessons:"+canonical, func(ctx context.Context, p Provider) ([]curriculum.Lesson, error) {
		lessons, err := p.Lessons(ctx, canonical)
		if err != nil {
			return nil, err
		}
		return curriculum.ValidateLessons(canonical, lessons), nil
	})
	return lessons
}

// ResolveLessonGroups returns navigation groups over the module's lessons.
func (r *Resolver) ResolveLessonGroups(ctx context.Context, slug string) []curriculum.LessonGroup {
	canonical := r.CanonicalSlug(ctx, slug)
	return curriculum.GroupLessons(canonical, r.ResolveLessons(ctx, canonical))
}

// ResolveQuiz returns the module's sanitized question pool.
func (r *Resolver) ResolveQuiz(ctx context.Context, slug string) curriculum.Quiz {
	canonical := r.CanonicalSlug(ctx, slug)
	if canonical == "" {
		return curriculum.Quiz{}
	}
	q, _ := resolve(ctx, r, "quiz:"+canonical, func(ctx context.Context, p Provider) (curriculum.Quiz, error) {
		raw, err := p.Quiz(ctx, canonical)
		if err != nil {
			return curriculum.Quiz{}, err
		}
		return curriculum.Quiz{Questions: quiz.Sanitize(raw)}, nil
	})
	return q
}

func (r *Resolver) mergeSlugs(modules []curriculum.Module) {
	found, err := curriculum.SlugIndexFromModules(modules)
	if err != nil {
		slog.Warn("catalog slug pairs rejected", "error", err)
		return
	}
	for {
		cur := r.slugs.Load()
		merged, err := cur.Merge(found)
		if err != nil {
			slog.Warn("catalog slug pairs conflict with index", "error", err)
			return
		}
		if r.slugs.CompareAndSwap(cur, merged) {
			return
		}
	}
}

// resolve serves key from the cache or walks the provider chain. Concurrent
// lookups of one key share a single chain walk. The walk runs detached from
// the caller so that an abandoned request still fills the cache.
func resolve[T any](ctx context.Context, r *Resolver, key string, fetch func(context.Context, Provider) (T, error)) (T, bool) {
	var zero T

	if data, ok := r.cache.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, true
		}
		slog.Debug("discarding undecodable cache entry", "key", key)
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		v, err := r.walk(detached, key, func(ctx context.Context, p Provider) (any, error) {
			return fetch(ctx, p)
		})
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err == nil {
			r.cache.Set(detached, key, data)
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false
		}
		return res.Val.(T), true
	case <-ctx.Done():
		return zero, false
	}
}

// errUnavailable is returned when every provider failed or missed.
var errUnavailable = errors.New("content unavailable")

func (r *Resolver) walk(ctx context.Context, key string, fetch func(context.Context, Provider) (any, error)) (any, error) {
	for _, p := range r.providers {
		v, err := r.call(ctx, p, fetch)
		if err == nil {
			slog.Debug("content resolved", "key", key, "provider", p.Name())
			return v, nil
		}
		if errors.Is(err, ErrNotFound) {
			slog.Debug("content provider miss", "key", key, "provider", p.Name())
			continue
		}
		slog.Warn("content provider failed, trying next",
			"key", key,
			"provider", p.Name(),
			"error", err,
		)
	}
	return nil, errUnavailable
}

type callResult struct {
	v   any
	err error
}

// call runs one provider call under the per-call timeout. A provider that
// ignores its context is left running and its result is discarded.
func (r *Resolver) call(ctx context.Context, p Provider, fetch func(context.Context, Provider) (any, error)) (any, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		v, err := fetch(callCtx, p)
		done <- callResult{v, err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-callCtx.Done():
		return nil, fmt.Errorf("%s: %w", p.Name(), callCtx.Err())
	}
}
