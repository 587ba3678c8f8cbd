package curriculum

// Tier is a curriculum level. Ordering by Level defines curriculum sequence.
type Tier struct {
	Level              int      `json:"level" yaml:"level"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	LearningObjectives []string `json:"learningObjectives" yaml:"learning_objectives"`
}

// ModuleStatus is the publication state of a module.
type ModuleStatus string

const (
	StatusActive         ModuleStatus = "active"
	StatusContentPending ModuleStatus = "content-pending"
)

// Thresholds are the content minimums a module must meet to unlock features.
type Thresholds struct {
	RequiredLessons   int `json:"requiredLessons" yaml:"required_lessons"`
	RequiredQuestions int `json:"requiredQuestions" yaml:"required_questions"`
	PassingScore      int `json:"passingScore" yaml:"passing_score"` // percent
}

// Routes are the learner-facing paths of a module.
type Routes struct {
	Overview string `json:"overview" yaml:"overview"`
	Lessons  string `json:"lessons" yaml:"lessons"`
	Quiz     string `json:"quiz" yaml:"quiz"`
}

// Module is a unit of the catalog, addressed by its canonical Slug.
type Module struct {
	Slug          string       `json:"slug" yaml:"slug"`
	ShortSlug     string       `json:"shortSlug" yaml:"short_slug"`
	Title         string       `json:"title" yaml:"title"`
	Description   string       `json:"description" yaml:"description"`
	Tier          int          `json:"tier" yaml:"tier"`
	Order         int          `json:"order" yaml:"order"`
	Technologies  []string     `json:"technologies" yaml:"technologies"`
	Prerequisites []string     `json:"prerequisites" yaml:"prerequisites"`
	Thresholds    Thresholds   `json:"thresholds" yaml:"thresholds"`
	Status        ModuleStatus `json:"status" yaml:"status"`
	Routes        Routes       `json:"routes" yaml:"routes"`
}

// Lesson is a single lesson of a module. Order is 1-based and unique within the module.
type Lesson struct {
	ID               string   `json:"id"`
	ModuleSlug       string   `json:"moduleSlug"`
	Order            int      `json:"order"`
	Title            string   `json:"title"`
	Topic            string   `json:"topic"`
	Intro            string   `json:"intro"`
	Objectives       []string `json:"objectives"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}

// LessonGroup is a derived navigation view over consecutive lessons.
type LessonGroup struct {
	ID          string   `json:"id"`
	Order       int      `json:"order"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []Lesson `json:"lessons"`
}

// QuestionType distinguishes auto-gradable questions from free-text ones.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	OpenEnded      QuestionType = "open-ended"
)

// NoAnswer is the CorrectAnswerIndex of an open-ended question.
const NoAnswer = -1

// QuizQuestion is a sanitized question. CorrectAnswerIndex always refers to
// Choices in their original order.
type QuizQuestion struct {
	ID                 string       `json:"id"`
	Question           string       `json:"question"`
	Choices            []string     `json:"choices"`
	CorrectAnswerIndex int          `json:"correctAnswerIndex"`
	Explanation        string       `json:"explanation"`
	Topic              string       `json:"topic"`
	Type               QuestionType `json:"type"`
	EstimatedTime      string       `json:"estimatedTime"`
}

// RawQuestion is a question as delivered by a backing store, before sanitization.
// A nil CorrectAnswerIndex means the source carried no answer key.
type RawQuestion struct {
	ID                 string       `json:"id"`
	Question           string       `json:"question"`
	Choices            []string     `json:"choices"`
	CorrectAnswerIndex *int         `json:"correctAnswerIndex"`
	Explanation        string       `json:"explanation"`
	Topic              string       `json:"topic"`
	Type               QuestionType `json:"type"`
	EstimatedTime      string       `json:"estimatedTime"`
}

// Raw converts a sanitized question back into its raw form.
func (q QuizQuestion) Raw() RawQuestion {
	raw := RawQuestion{
		ID:            q.ID,
		Question:      q.Question,
		Choices:       append([]string(nil), q.Choices...),
		Explanation:   q.Explanation,
		Topic:         q.Topic,
		Type:          q.Type,
		EstimatedTime: q.EstimatedTime,
	}
	if q.CorrectAnswerIndex != NoAnswer {
		idx := q.CorrectAnswerIndex
		raw.CorrectAnswerIndex = &idx
	}
	return raw
}

// Quiz is the question pool of a module.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

// CompletionStatus is a learner's state for one module.
type CompletionStatus string

const (
	NotStarted CompletionStatus = "not-started"
	InProgress CompletionStatus = "in-progress"
	Completed  CompletionStatus = "completed"
)

// ProgressEntry is a learner's completion status for a module.
type ProgressEntry struct {
	ModuleSlug       string           `json:"moduleSlug"`
	CompletionStatus CompletionStatus `json:"completionStatus"`
}
