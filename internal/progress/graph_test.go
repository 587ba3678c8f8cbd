package progress_test

import (
	"testing"

	"github.com/p-n-ai/pai-learn/internal/curriculum"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

func done(slugs ...string) map[string]curriculum.ProgressEntry {
	out := make(map[string]curriculum.ProgressEntry, len(slugs))
	for _, s := range slugs {
		out[s] = curriculum.ProgressEntry{ModuleSlug: s, CompletionStatus: curriculum.Completed}
	}
	return out
}

func testTiers() []curriculum.Tier {
	// Deliberately out of order.
	return []curriculum.Tier{
		{Level: 2, Title: "Intermediate"},
		{Level: 1, Title: "Foundations"},
	}
}

func testModules() []curriculum.Module {
	return []curriculum.Module{
		{Slug: "concurrency-patterns", ShortSlug: "concurrency", Tier: 2, Order: 1, Prerequisites: []string{"go-fundamentals", "testing-basics"}},
		{Slug: "testing-basics", ShortSlug: "testing", Tier: 1, Order: 2, Prerequisites: []string{"go-fundamentals"}},
		{Slug: "go-fundamentals", ShortSlug: "go", Tier: 1, Order: 1},
	}
}

func TestNextUnlockedLesson(t *testing.T) {
	tests := []struct {
		name     string
		progress map[string]curriculum.ProgressEntry
		want     string
		relaxed  bool
	}{
		{"empty progress picks first module of lowest tier", nil, "go-fundamentals", false},
		{"prerequisite completed unlocks next", done("go-fundamentals"), "testing-basics", false},
		{"moves to next tier", done("go-fundamentals", "testing-basics"), "concurrency-patterns", false},
		{"skips completed modules", done("testing-basics"), "go-fundamentals", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, ok := progress.NextUnlockedLesson(progress.Input{
				Tiers:    testTiers(),
				Modules:  testModules(),
				Progress: tt.progress,
			})
			if !ok {
				t.Fatal("NextUnlockedLesson() reported all complete")
			}
			if route.ModuleSlug != tt.want {
				t.Errorf("ModuleSlug = %q, want %q", route.ModuleSlug, tt.want)
			}
			if route.Relaxed != tt.relaxed {
				t.Errorf("Relaxed = %v, want %v", route.Relaxed, tt.relaxed)
			}
		})
	}
}

func TestNextUnlockedLesson_InProgressIsNotCompleted(t *testing.T) {
	route, ok := progress.NextUnlockedLesson(progress.Input{
		Tiers:   testTiers(),
		Modules: testModules(),
		Progress: map[string]curriculum.ProgressEntry{
			"go-fundamentals": {ModuleSlug: "go-fundamentals", CompletionStatus: curriculum.InProgress},
		},
	})
	if !ok || route.ModuleSlug != "go-fundamentals" {
		t.Errorf("route = %+v, %v; want go-fundamentals", route, ok)
	}
}

func TestNextUnlockedLesson_AllComplete(t *testing.T) {
	_, ok := progress.NextUnlockedLesson(progress.Input{
		Tiers:    testTiers(),
		Modules:  testModules(),
		Progress: done("go-fundamentals", "testing-basics", "concurrency-patterns"),
	})
	if ok {
		t.Error("NextUnlockedLesson() should report nothing when every module is complete")
	}
}

func TestNextUnlockedLesson_RelaxedFallback(t *testing.T) {
	modules := []curriculum.Module{
		{Slug: "a", Tier: 1, Order: 1, Prerequisites: []string{"retired-module"}},
		{Slug: "b", Tier: 1, Order: 2, Prerequisites: []string{"a"}},
	}

	route, ok := progress.NextUnlockedLesson(progress.Input{
		Tiers:   []curriculum.Tier{{Level: 1}},
		Modules: modules,
	})
	if !ok {
		t.Fatal("relaxed pass should still return a module")
	}
	if route.ModuleSlug != "a" || !route.Relaxed {
		t.Errorf("route = %+v, want relaxed route to a", route)
	}
}

func TestNextUnlockedLesson_Paths(t *testing.T) {
	groups := map[string][]curriculum.LessonGroup{
		"go-fundamentals": {
			{ID: "go-fundamentals-group-2", Order: 2, Lessons: []curriculum.Lesson{{Order: 4}, {Order: 5}}},
			{ID: "go-fundamentals-group-1", Order: 1, Lessons: []curriculum.Lesson{{Order: 3}, {Order: 2}}},
		},
	}

	route, _ := progress.NextUnlockedLesson(progress.Input{
		Tiers:        testTiers(),
		Modules:      testModules(),
		LessonGroups: groups,
	})
	if route.LessonOrder != 2 {
		t.Errorf("LessonOrder = %d, want lowest order of first group (2)", route.LessonOrder)
	}
	if route.Path != "/modules/go/lessons/2" {
		t.Errorf("Path = %q, want default path on short slug", route.Path)
	}

	modules := testModules()
	modules[2].Routes.Lessons = "/learn/go"
	route, _ = progress.NextUnlockedLesson(progress.Input{Tiers: testTiers(), Modules: modules})
	if route.LessonOrder != 1 {
		t.Errorf("LessonOrder = %d, want default 1 without group data", route.LessonOrder)
	}
	if route.Path != "/learn/go/1" {
		t.Errorf("Path = %q, want module lessons route", route.Path)
	}
}

func TestNextUnlockedLesson_ShortSlugFallsBackToCanonical(t *testing.T) {
	route, _ := progress.NextUnlockedLesson(progress.Input{
		Tiers:   []curriculum.Tier{{Level: 1}},
		Modules: []curriculum.Module{{Slug: "solo", Tier: 1, Order: 1}},
	})
	if route.ShortSlug != "solo" || route.Path != "/modules/solo/lessons/1" {
		t.Errorf("route = %+v", route)
	}
}

func TestNextUnlockedLesson_OrdersWithinTier(t *testing.T) {
	modules := []curriculum.Module{
		{Slug: "third", Tier: 1, Order: 3},
		{Slug: "first", Tier: 1, Order: 1},
		{Slug: "second", Tier: 1, Order: 2},
	}
	route, _ := progress.NextUnlockedLesson(progress.Input{
		Tiers:    []curriculum.Tier{{Level: 1}},
		Modules:  modules,
		Progress: done("first"),
	})
	if route.ModuleSlug != "second" {
		t.Errorf("ModuleSlug = %q, want second", route.ModuleSlug)
	}
}

func TestFirstLessonOrder_EmptyGroup(t *testing.T) {
	if got := progress.FirstLessonOrder([]curriculum.LessonGroup{{Order: 1}}); got != 1 {
		t.Errorf("FirstLessonOrder() = %d, want 1", got)
	}
	if got := progress.FirstLessonOrder(nil); got != 1 {
		t.Errorf("FirstLessonOrder(nil) = %d, want 1", got)
	}
}
