// Package progress decides what a learner may open and what they should
// study next.
package progress

import "github.com/p-n-ai/pai-learn/internal/curriculum"

// GateResult reports which parts of a module are unlocked.
type GateResult struct {
	LessonsValid bool `json:"lessonsValid"`
	QuizValid    bool `json:"quizValid"`
	Overall      bool `json:"overall"`
}

// CheckThresholds compares resolved content against the module's minimums.
// Nil collections count as empty.
func CheckThresholds(module curriculum.Module, lessons []curriculum.Lesson, quiz curriculum.Quiz) GateResult {
	lessonsValid := len(lessons) >= module.Thresholds.RequiredLessons
	quizValid := len(quiz.Questions) >= module.Thresholds.RequiredQuestions
	return GateResult{
		LessonsValid: lessonsValid,
		QuizValid:    quizValid,
		Overall:      lessonsValid && quizValid,
	}
}
