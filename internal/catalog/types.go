package catalog

import (
	"errors"
	"fmt"
	"slices"
)

// Topic is a sequence of lessons within a subject.
type Topic struct {
	ID          string   `yaml:"id" json:"id"`
	Subject     string   `yaml:"subject" json:"subject"`
	Title       string   `yaml:"title" json:"title"`
	Level       string   `yaml:"level" json:"level"`
	Duration    string   `yaml:"duration" json:"duration"`
	Description string   `yaml:"description" json:"description"`
	Lessons     []Lesson `yaml:"lessons" json:"lessons"`
}

// Lesson is one step of a topic. IDs run 1..n in order.
type Lesson struct {
	ID      int    `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Content string `yaml:"content" json:"content"`
}

// Key returns the topic key used to namespace completion state.
func (t Topic) Key() string {
	return TopicKey(t.Subject, t.ID)
}

// Lesson returns the lesson with the given id.
func (t Topic) Lesson(id int) (Lesson, bool) {
	for _, l := range t.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// Validate checks the lesson numbering.
func (t Topic) Validate() error {
	var errs []error
	if t.ID == "" || t.Subject == "" {
		errs = append(errs, fmt.Errorf("topic needs both id and subject"))
	}
	if len(t.Lessons) == 0 {
		errs = append(errs, fmt.Errorf("topic %s has no lessons", t.Key()))
	}
	for i, l := range t.Lessons {
		if l.ID != i+1 {
			errs = append(errs, fmt.Errorf("topic %s: lesson at position %d has id %d, want %d", t.Key(), i+1, l.ID, i+1))
		}
	}
	return errors.Join(errs...)
}

// Requirement is the lesson count a learner must finish in a topic before a quiz unlocks.
type Requirement struct {
	Subject      string `yaml:"subject" json:"subject"`
	TopicID      string `yaml:"topic_id" json:"topicId"`
	TotalLessons int    `yaml:"total_lessons" json:"totalLessons"`
}

// TopicKey returns the key of the topic the requirement refers to.
func (r Requirement) TopicKey() string {
	return TopicKey(r.Subject, r.TopicID)
}

// Quiz is an immutable catalog entry.
type Quiz struct {
	ID              int         `yaml:"id" json:"id"`
	Title           string      `yaml:"title" json:"title"`
	Instruction     string      `yaml:"instruction" json:"instruction"`
	PassingScore    int         `yaml:"passing_score" json:"passingScore"`
	MaxScore        int         `yaml:"max_score" json:"maxScore"` // display only
	XPReward        int         `yaml:"xp_reward" json:"xpReward"`
	Subject         string      `yaml:"subject" json:"subject,omitempty"`
	Topic           string      `yaml:"topic" json:"topic,omitempty"`
	Duration        string      `yaml:"duration" json:"duration,omitempty"`
	RequiredLessons Requirement `yaml:"required_lessons" json:"requiredLessons"`
	Questions       []Question  `yaml:"questions" json:"questions"`
}

// Question is a single multiple-choice question.
type Question struct {
	ID            int      `yaml:"id" json:"id"`
	Text          string   `yaml:"question_text" json:"questionText"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer string   `yaml:"correct_answer" json:"correctAnswer"`
	Points        int      `yaml:"points" json:"points"`
}

// TotalPoints is the scoring denominator. It is the sum of question points,
// not MaxScore.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, qq := range q.Questions {
		total += qq.Points
	}
	return total
}

// Question returns the question with the given id.
func (q Quiz) Question(id int) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

// Validate checks the scoring rules a quiz must satisfy.
func (q Quiz) Validate() error {
	var errs []error
	if q.PassingScore < 0 || q.PassingScore > 100 {
		errs = append(errs, fmt.Errorf("quiz %d: passing score %d outside 0-100", q.ID, q.PassingScore))
	}
	if q.XPReward < 0 {
		errs = append(errs, fmt.Errorf("quiz %d: negative xp reward", q.ID))
	}
	if q.RequiredLessons.TotalLessons < 0 {
		errs = append(errs, fmt.Errorf("quiz %d: negative required lesson count", q.ID))
	}
	if len(q.Questions) == 0 {
		errs = append(errs, fmt.Errorf("quiz %d has no questions", q.ID))
	}

	seen := make(map[int]bool, len(q.Questions))
	for _, qq := range q.Questions {
		if seen[qq.ID] {
			errs = append(errs, fmt.Errorf("quiz %d: duplicate question id %d", q.ID, qq.ID))
		}
		seen[qq.ID] = true

		if qq.Points <= 0 {
			errs = append(errs, fmt.Errorf("quiz %d question %d: points must be positive", q.ID, qq.ID))
		}
		if len(qq.Options) < 2 {
			errs = append(errs, fmt.Errorf("quiz %d question %d: needs at least 2 options", q.ID, qq.ID))
		}
		opts := slices.Clone(qq.Options)
		slices.Sort(opts)
		if len(slices.Compact(opts)) != len(qq.Options) {
			errs = append(errs, fmt.Errorf("quiz %d question %d: options are not unique", q.ID, qq.ID))
		}
		if !slices.Contains(qq.Options, qq.CorrectAnswer) {
			errs = append(errs, fmt.Errorf("quiz %d question %d: correct answer %q is not an option", q.ID, qq.ID, qq.CorrectAnswer))
		}
	}
	return errors.Join(errs...)
}
