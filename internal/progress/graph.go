package progress

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
)

// Route points at a lesson a learner should open.
type Route struct {
	ModuleSlug  string `json:"moduleSlug"`
	ShortSlug   string `json:"shortSlug"`
	Tier        int    `json:"tier"`
	LessonOrder int    `json:"lessonOrder"`
	Path        string `json:"path"`
	// Relaxed is set when the module was chosen with prerequisites ignored.
	Relaxed bool `json:"relaxed"`
}

// Input is everything NextUnlockedLesson needs. LessonGroups is keyed by
// canonical module slug and may be nil or partial.
type Input struct {
	Tiers        []curriculum.Tier
	Modules      []curriculum.Module
	LessonGroups map[string][]curriculum.LessonGroup
	Progress     map[string]curriculum.ProgressEntry
}

// NextUnlockedLesson walks tiers by ascending level and modules by ascending
// order and returns the first incomplete module whose prerequisites are all
// completed. When every incomplete module is blocked it falls back to the
// first incomplete module regardless of prerequisites. It reports false when
// every module is completed.
func NextUnlockedLesson(in Input) (Route, bool) {
	ordered := orderedModules(in.Tiers, in.Modules)

	for _, m := range ordered {
		if !in.completed(m.Slug) && in.prerequisitesMet(m) {
			return in.route(m, false), true
		}
	}
	for _, m := range ordered {
		if !in.completed(m.Slug) {
			return in.route(m, true), true
		}
	}
	return Route{}, false
}

// orderedModules groups modules under their tiers, sorted by tier level then
// module order. Modules referencing an unknown tier are skipped.
func orderedModules(tiers []curriculum.Tier, modules []curriculum.Module) []curriculum.Module {
	sorted := curriculum.SortTiers(tiers)
	byTier := make(map[int][]curriculum.Module, len(sorted))
	for _, m := range modules {
		byTier[m.Tier] = append(byTier[m.Tier], m)
	}

	out := make([]curriculum.Module, 0, len(modules))
	for _, t := range sorted {
		ms := byTier[t.Level]
		slices.SortStableFunc(ms, func(a, b curriculum.Module) int {
			return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.Slug, b.Slug))
		})
		out = append(out, ms...)
	}
	return out
}

func (in Input) completed(slug string) bool {
	return in.Progress[slug].CompletionStatus == curriculum.Completed
}

func (in Input) prerequisitesMet(m curriculum.Module) bool {
	for _, p := range m.Prerequisites {
		if !in.completed(p) {
			return false
		}
	}
	return true
}

func (in Input) route(m curriculum.Module, relaxed bool) Route {
	order := FirstLessonOrder(in.LessonGroups[m.Slug])
	short := m.ShortSlug
	if short == "" {
		short = m.Slug
	}
	base := m.Routes.Lessons
	if base == "" {
		base = fmt.Sprintf("/modules/%s/lessons", short)
	}
	return Route{
		ModuleSlug:  m.Slug,
		ShortSlug:   short,
		Tier:        m.Tier,
		LessonOrder: order,
		Path:        fmt.Sprintf("%s/%d", base, order),
		Relaxed:     relaxed,
	}
}

// FirstLessonOrder returns the lowest lesson order in the first group, or 1
// when no group data is available.
func FirstLessonOrder(groups []curriculum.LessonGroup) int {
	if len(groups) == 0 {
		return 1
	}
	first := slices.MinFunc(groups, func(a, b curriculum.LessonGroup) int { return cmp.Compare(a.Order, b.Order) })
	if len(first.Lessons) == 0 {
		return 1
	}
	lowest := first.Lessons[0].Order
	for _, l := range first.Lessons[1:] {
		lowest = min(lowest, l.Order)
	}
	return lowest
}
