package learning

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/gating"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/report"
)

// Unlock is a milestone or achievement with its current state.
type Unlock struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}

// Dashboard is the home screen summary.
type Dashboard struct {
	User               string             `json:"user,omitempty"`
	OnboardingComplete bool               `json:"onboardingComplete"`
	Stats              progress.UserStats `json:"stats"`
	Milestones         []Unlock           `json:"milestones"`
	Achievements       []Unlock           `json:"achievements"`
	Quiz               quiz.Stats         `json:"quiz"`
}

// Dashboard builds the home screen summary from fresh state.
func (e *Engine) Dashboard(ctx context.Context) Dashboard {
	stats := e.tracker.Load(ctx)
	d := Dashboard{
		OnboardingComplete: e.settings.OnboardingComplete(),
		Stats:              stats,
		Quiz:               e.quizzes.Stats(ctx),
	}
	if u, ok := e.session.User(); ok {
		d.User = u.DisplayName()
	}

	unlockedM := progress.MilestonesFor(stats)
	for _, m := range progress.AllMilestones {
		d.Milestones = append(d.Milestones, Unlock{ID: string(m), Name: m.DisplayName(), Unlocked: slices.Contains(unlockedM, m)})
	}
	unlockedA := progress.AchievementsFor(stats)
	for _, a := range progress.AllAchievements {
		d.Achievements = append(d.Achievements, Unlock{ID: string(a), Name: a.DisplayName(), Unlocked: slices.Contains(unlockedA, a)})
	}
	return d
}

// QuizSummary is a quiz list entry.
type QuizSummary struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Subject      string `json:"subject,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Duration     string `json:"duration,omitempty"`
	PassingScore int    `json:"passingScore"`
	XPReward     int    `json:"xpReward"`
	Questions    int    `json:"questions"`
	Unlocked     bool   `json:"unlocked"`
	LastScore    *int   `json:"lastScore,omitempty"`
}

// QuizList returns every quiz with its lock state and latest score.
func (e *Engine) QuizList(ctx context.Context) []QuizSummary {
	var out []QuizSummary
	for _, q := range e.catalog.Quizzes() {
		s := QuizSummary{
			ID:           q.ID,
			Title:        q.Title,
			Subject:      q.Subject,
			Topic:        q.Topic,
			Duration:     q.Duration,
			PassingScore: q.PassingScore,
			XPReward:     q.XPReward,
			Questions:    len(q.Questions),
			Unlocked:     e.quizzes.IsUnlocked(ctx, q.ID),
		}
		if pct, ok := e.quizzes.LastAttempt(ctx, q.ID); ok {
			s.LastScore = &pct
		}
		out = append(out, s)
	}
	return out
}

// LessonState is a lesson with its gating state.
type LessonState struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Completed  bool   `json:"completed"`
	Accessible bool   `json:"accessible"`
}

// TopicView is a topic page.
type TopicView struct {
	Key          string        `json:"key"`
	Title        string        `json:"title"`
	Subject      string        `json:"subject"`
	Level        string        `json:"level,omitempty"`
	Duration     string        `json:"duration,omitempty"`
	Description  string        `json:"description,omitempty"`
	Lessons      []LessonState `json:"lessons"`
	Completed    int           `json:"completed"`
	ResumeLesson int           `json:"resumeLesson"`
	Current      int           `json:"current,omitempty"`
	Quiz         *QuizSummary  `json:"quiz,omitempty"`
}

// Topic builds the page of one topic.
func (e *Engine) Topic(ctx context.Context, subject, topicID string) (TopicView, error) {
	topic, err := e.catalog.TopicFor(subject, topicID)
	if err != nil {
		return TopicView{}, err
	}
	key := topic.Key()
	completed := e.gating.CompletedLessons(ctx, key)

	v := TopicView{
		Key:         key,
		Title:       topic.Title,
		Subject:     topic.Subject,
		Level:       topic.Level,
		Duration:    topic.Duration,
		Description: topic.Description,
		Completed:   len(completed),
	}
	for _, l := range topic.Lessons {
		v.Lessons = append(v.Lessons, LessonState{
			ID:         l.ID,
			Title:      l.Title,
			Completed:  slices.Contains(completed, l.ID),
			Accessible: gating.Accessible(completed, l.ID),
		})
	}
	if v.ResumeLesson, err = e.gating.ResumeLesson(ctx, key); err != nil {
		return TopicView{}, err
	}
	if cur, ok := e.gating.CurrentLesson(ctx, key); ok {
		v.Current = cur
	}
	if q, ok := e.catalog.QuizForTopic(key); ok {
		for _, s := range e.QuizList(ctx) {
			if s.ID == q.ID {
				v.Quiz = &s
				break
			}
		}
	}
	return v, nil
}

// Lesson returns one lesson if the learner may open it, and remembers it
// as the topic's current lesson.
func (e *Engine) Lesson(ctx context.Context, subject, topicID string, lessonID int) (catalog.Lesson, error) {
	topic, err := e.catalog.TopicFor(subject, topicID)
	if err != nil {
		return catalog.Lesson{}, err
	}
	l, ok := topic.Lesson(lessonID)
	if !ok {
		return catalog.Lesson{}, fmt.Errorf("lesson %d of %s: %w", lessonID, topic.Key(), ErrLessonNotFound)
	}
	if !e.gating.IsLessonAccessible(ctx, topic.Key(), lessonID) {
		return catalog.Lesson{}, fmt.Errorf("lesson %d of %s: %w", lessonID, topic.Key(), gating.ErrLessonLocked)
	}
	e.gating.SetCurrentLesson(ctx, topic.Key(), lessonID)
	return l, nil
}

// Report gathers everything the progress export needs.
func (e *Engine) Report(ctx context.Context) report.Snapshot {
	stats := e.tracker.Load(ctx)
	snap := report.Snapshot{
		GeneratedAt: e.now().UTC().Truncate(time.Second),
		Stats:       stats,
		QuizStats:   e.quizzes.Stats(ctx),
	}
	if u, ok := e.session.User(); ok {
		snap.Learner = u.DisplayName()
	}
	for _, m := range progress.MilestonesFor(stats) {
		snap.Milestones = append(snap.Milestones, m.DisplayName())
	}
	for _, a := range progress.AchievementsFor(stats) {
		snap.Achievements = append(snap.Achievements, a.DisplayName())
	}
	for _, q := range e.QuizList(ctx) {
		row := report.QuizRow{
			ID:           q.ID,
			Title:        q.Title,
			Subject:      q.Subject,
			PassingScore: q.PassingScore,
			Unlocked:     q.Unlocked,
		}
		if q.LastScore != nil {
			row.Attempted = true
			row.LastScore = *q.LastScore
			row.Passed = *q.LastScore >= q.PassingScore
		}
		snap.Quizzes = append(snap.Quizzes, row)
	}
	for _, t := range e.catalog.Topics() {
		snap.Topics = append(snap.Topics, report.TopicRow{
			Key:       t.Key(),
			Title:     t.Title,
			Subject:   t.Subject,
			Completed: e.gating.CompletedCount(ctx, t.Key()),
			Total:     len(t.Lessons),
		})
	}
	return snap
}
