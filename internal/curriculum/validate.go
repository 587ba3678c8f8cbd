package curriculum

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// ErrCycle reports a module whose prerequisites loop back to itself.
var ErrCycle = errors.New("prerequisite cycle")

// ValidateModules drops modules that break catalog invariants: a missing
// slug, a duplicate slug, a self-prerequisite, or membership in a
// prerequisite cycle. Rejected modules are logged and reported in errs.
func ValidateModules(modules []Module) (valid []Module, errs []error) {
	seen := make(map[string]bool, len(modules))
	candidates := make([]Module, 0, len(modules))
	for _, m := range modules {
		switch {
		case strings.TrimSpace(m.Slug) == "":
			errs = append(errs, fmt.Errorf("module %q: missing slug", m.Title))
			continue
		case seen[m.Slug]:
			errs = append(errs, fmt.Errorf("module %s: duplicate slug", m.Slug))
			continue
		case slices.Contains(m.Prerequisites, m.Slug):
			errs = append(errs, fmt.Errorf("module %s: lists itself as prerequisite: %w", m.Slug, ErrCycle))
			continue
		}
		seen[m.Slug] = true
		candidates = append(candidates, m)
	}

	cyclic := findCycles(candidates)
	for _, m := range candidates {
		if cyclic[m.Slug] {
			errs = append(errs, fmt.Errorf("module %s: %w", m.Slug, ErrCycle))
			continue
		}
		valid = append(valid, m)
	}

	for _, err := range errs {
		slog.Warn("excluding invalid module", "error", err)
	}
	return valid, errs
}

// findCycles returns the slugs of modules that sit on a prerequisite cycle,
// i.e. members of a strongly connected component with more than one module.
// Prerequisites naming unknown modules are ignored here.
func findCycles(modules []Module) map[string]bool {
	edges := make(map[string][]string, len(modules))
	for _, m := range modules {
		edges[m.Slug] = m.Prerequisites
	}

	var (
		counter int
		index   = make(map[string]int, len(modules))
		low     = make(map[string]int, len(modules))
		onStack = make(map[string]bool, len(modules))
		stack   []string
		cyclic  = make(map[string]bool)
	)

	var connect func(slug string)
	connect = func(slug string) {
		counter++
		index[slug], low[slug] = counter, counter
		stack = append(stack, slug)
		onStack[slug] = true

		for _, dep := range edges[slug] {
			if _, known := edges[dep]; !known {
				continue
			}
			if index[dep] == 0 {
				connect(dep)
				low[slug] = min(low[slug], low[dep])
			} else if onStack[dep] {
				low[slug] = min(low[slug], index[dep])
			}
		}

		if low[slug] != index[slug] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == slug {
				break
			}
		}
		if len(component) > 1 {
			for _, s := range component {
				cyclic[s] = true
			}
		}
	}

	for _, m := range modules {
		if index[m.Slug] == 0 {
			connect(m.Slug)
		}
	}
	return cyclic
}

// ValidateLessons drops lessons with a non-positive or duplicate order and
// returns the rest sorted by order. Gaps in the 1..N sequence are logged.
func ValidateLessons(slug string, lessons []Lesson) []Lesson {
	out := make([]Lesson, 0, len(lessons))
	seen := make(map[int]bool, len(lessons))
	for _, l := range lessons {
		if l.Order <= 0 {
			slog.Warn("dropping lesson with invalid order", "module", slug, "lesson", l.ID, "order", l.Order)
			continue
		}
		if seen[l.Order] {
			slog.Warn("dropping lesson with duplicate order", "module", slug, "lesson", l.ID, "order", l.Order)
			continue
		}
		seen[l.Order] = true
		if l.ModuleSlug == "" {
			l.ModuleSlug = slug
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Lesson) int { return a.Order - b.Order })

	for i, l := range out {
		if l.Order != i+1 {
			slog.Warn("lesson order is not dense", "module", slug, "expected", i+1, "got", l.Order)
			break
		}
	}
	return out
}

// GroupLessons derives navigation groups from runs of consecutive lessons
// that share a topic. Lessons must already be sorted by order.
func GroupLessons(slug string, lessons []Lesson) []LessonGroup {
	var groups []LessonGroup
	for _, l := range lessons {
		n := len(groups)
		if n > 0 && groups[n-1].Title == groupTitle(l) {
			groups[n-1].Lessons = append(groups[n-1].Lessons, l)
			continue
		}
		groups = append(groups, LessonGroup{
			ID:      fmt.Sprintf("%s-group-%d", slug, n+1),
			Order:   n + 1,
			Title:   groupTitle(l),
			Lessons: []Lesson{l},
		})
	}
	for i := range groups {
		g := &groups[i]
		first, last := g.Lessons[0].Order, g.Lessons[len(g.Lessons)-1].Order
		if first == last {
			g.Description = fmt.Sprintf("Lesson %d", first)
		} else {
			g.Description = fmt.Sprintf("Lessons %d-%d", first, last)
		}
	}
	return groups
}

func groupTitle(l Lesson) string {
	if t := strings.TrimSpace(l.Topic); t != "" {
		return t
	}
	return "General"
}

// SortTiers returns the tiers ordered by ascending level, dropping duplicate levels.
func SortTiers(tiers []Tier) []Tier {
	out := slices.Clone(tiers)
	slices.SortStableFunc(out, func(a, b Tier) int { return a.Level - b.Level })
	return slices.CompactFunc(out, func(a, b Tier) bool { return a.Level == b.Level })
}
