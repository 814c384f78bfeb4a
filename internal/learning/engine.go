// Package learning ties the progress tracker, lesson gating and quiz engine
// together into the operations a learner performs.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/events"
	"github.com/p-n-ai/pai-learn/internal/gating"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
	"github.com/p-n-ai/pai-learn/internal/profile"
	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
	"github.com/p-n-ai/pai-learn/internal/settings"
)

const defaultLessonMinutes = 30

// ErrLessonNotFound is returned for a lesson id the topic does not have.
var ErrLessonNotFound = errors.New("lesson not found")

// EngineConfig holds dependencies for the learning engine.
type EngineConfig struct {
	Catalog       *catalog.Catalog   // default: embedded catalog
	Store         kvstore.Store      // default: in-memory store
	Events        events.Logger      // default: no-op
	Session       *profile.Session   // default: offline session
	Settings      *settings.Settings // default: settings over Store
	QuizTimeLimit time.Duration      // default 30m
	LessonMinutes int                // minutes credited when the caller gives none (default 30)
	Now           func() time.Time
}

// Engine is the learner-facing entry point.
type Engine struct {
	catalog  *catalog.Catalog
	store    kvstore.Store
	events   events.Logger
	session  *profile.Session
	settings *settings.Settings
	tracker  *progress.Tracker
	gating   *gating.Service
	quizzes  *quiz.Engine

	lessonMinutes int
	now           func() time.Time
}

// NewEngine creates a learning engine. All components share one key locker
// so every read-modify-write on a record is serialised.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	cat := cfg.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(); err != nil {
			return nil, fmt.Errorf("loading default catalog: %w", err)
		}
	}
	store := cfg.Store
	if store == nil {
		store = kvstore.NewMemoryStore()
	}
	ev := cfg.Events
	if ev == nil {
		ev = events.NopLogger{}
	}
	session := cfg.Session
	if session == nil {
		session = profile.NewSession(store, nil)
	}
	prefs := cfg.Settings
	if prefs == nil {
		prefs = settings.New(store)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	minutes := cfg.LessonMinutes
	if minutes <= 0 {
		minutes = defaultLessonMinutes
	}

	locker := kvstore.NewKeyLocker()
	tracker := progress.NewTracker(progress.TrackerConfig{Store: store, Locker: locker, Now: now})
	gate := gating.NewService(store, locker, cat)

	return &Engine{
		catalog:  cat,
		store:    store,
		events:   ev,
		session:  session,
		settings: prefs,
		tracker:  tracker,
		gating:   gate,
		quizzes: quiz.NewEngine(quiz.EngineConfig{
			Catalog:   cat,
			Store:     store,
			Locker:    locker,
			XP:        tracker,
			Lessons:   gate,
			Events:    ev,
			UserID:    session.UserID,
			TimeLimit: cfg.QuizTimeLimit,
			Now:       now,
		}),
		lessonMinutes: minutes,
		now:           now,
	}, nil
}

func (e *Engine) Catalog() *catalog.Catalog    { return e.catalog }
func (e *Engine) Tracker() *progress.Tracker   { return e.tracker }
func (e *Engine) Gating() *gating.Service      { return e.gating }
func (e *Engine) Quizzes() *quiz.Engine        { return e.quizzes }
func (e *Engine) Session() *profile.Session    { return e.session }
func (e *Engine) Settings() *settings.Settings { return e.settings }
func (e *Engine) Store() kvstore.Store         { return e.store }

// CheckIn evaluates the daily streak.
func (e *Engine) CheckIn(ctx context.Context) progress.UserStats {
	stats := e.tracker.UpdateStreak(ctx)
	e.logEvent(ctx, events.StreakChecked, map[string]any{
		"streak":         stats.Streak,
		"longest_streak": stats.LongestStreak,
	})
	return stats
}

// LessonOutcome is the result of completing a lesson.
type LessonOutcome struct {
	TopicKey        string                 `json:"topicKey"`
	LessonID        int                    `json:"lessonId"`
	FirstCompletion bool                   `json:"firstCompletion"`
	Completed       []int                  `json:"completed"`
	Stats           progress.UserStats     `json:"stats"`
	Next            gating.Target          `json:"next"`
	QuizID          int                    `json:"quizId,omitempty"`
	QuizUnlocked    bool                   `json:"quizUnlocked"`
	NewMilestones   []progress.Milestone   `json:"newMilestones,omitempty"`
	NewAchievements []progress.Achievement `json:"newAchievements,omitempty"`
}

// CompleteLesson marks a lesson done. Only the first completion of a lesson
// counts toward the learner's stats. minutes <= 0 credits the configured
// default lesson length.
func (e *Engine) CompleteLesson(ctx context.Context, subject, topicID string, lessonID int, minutes float64) (LessonOutcome, error) {
	topic, err := e.catalog.TopicFor(subject, topicID)
	if err != nil {
		return LessonOutcome{}, err
	}
	if _, ok := topic.Lesson(lessonID); !ok {
		return LessonOutcome{}, fmt.Errorf("lesson %d of %s: %w", lessonID, topic.Key(), ErrLessonNotFound)
	}

	key := topic.Key()
	if !e.gating.IsLessonAccessible(ctx, key, lessonID) {
		return LessonOutcome{}, fmt.Errorf("lesson %d of %s: %w", lessonID, key, gating.ErrLessonLocked)
	}
	if minutes <= 0 {
		minutes = float64(e.lessonMinutes)
	}

	before := e.tracker.Load(ctx)
	completed, added := e.gating.MarkLessonCompleted(ctx, key, lessonID)
	e.gating.SetCurrentLesson(ctx, key, lessonID)

	out := LessonOutcome{
		TopicKey:        key,
		LessonID:        lessonID,
		FirstCompletion: added,
		Completed:       completed,
		Next:            gating.NextLessonOrQuiz(lessonID, len(topic.Lessons)),
	}

	if added {
		out.Stats = e.tracker.CompleteLesson(ctx, catalog.SubjectKey(topic.Subject), minutes)
		e.logEvent(ctx, events.LessonCompleted, map[string]any{
			"topic_key": key,
			"lesson_id": lessonID,
			"minutes":   minutes,
		})
	} else {
		out.Stats = e.tracker.Load(ctx)
	}

	if q, ok := e.catalog.QuizForTopic(key); ok {
		out.QuizID = q.ID
		out.QuizUnlocked = e.quizzes.IsUnlocked(ctx, q.ID)
	}

	out.NewMilestones = newlyUnlocked(progress.MilestonesFor(before), progress.MilestonesFor(out.Stats))
	out.NewAchievements = newlyUnlocked(progress.AchievementsFor(before), progress.AchievementsFor(out.Stats))

	slog.Info("lesson completed",
		"topic_key", key,
		"lesson_id", lessonID,
		"first", added,
		"quiz_unlocked", out.QuizUnlocked,
	)
	return out, nil
}

// StartQuiz opens a timed attempt.
func (e *Engine) StartQuiz(ctx context.Context, quizID int) (*quiz.Attempt, error) {
	return e.quizzes.Start(ctx, quizID)
}

// SubmitQuiz scores an untimed submission. Locked quizzes are rejected.
func (e *Engine) SubmitQuiz(ctx context.Context, quizID int, answers map[int]string) (quiz.Result, error) {
	if _, err := e.catalog.Quiz(quizID); err != nil {
		return quiz.Result{}, err
	}
	if !e.quizzes.IsUnlocked(ctx, quizID) {
		return quiz.Result{}, fmt.Errorf("quiz %d: %w", quizID, quiz.ErrQuizLocked)
	}
	return e.quizzes.Submit(ctx, quizID, answers)
}

// EarnCertificate records a certificate.
func (e *Engine) EarnCertificate(ctx context.Context) progress.UserStats {
	stats := e.tracker.EarnCertificate(ctx)
	e.logEvent(ctx, events.CertificateEarned, map[string]any{"total": stats.CertificatesEarned})
	return stats
}

// Reset wipes every piece of learner progress.
func (e *Engine) Reset(ctx context.Context) error {
	return errors.Join(
		e.tracker.Reset(ctx),
		e.gating.Reset(ctx),
		e.quizzes.Reset(ctx),
	)
}

func (e *Engine) logEvent(ctx context.Context, eventType string, data map[string]any) {
	err := e.events.LogEvent(ctx, events.Event{
		UserID:    e.session.UserID(),
		Type:      eventType,
		Data:      data,
		CreatedAt: e.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}

func newlyUnlocked[T comparable](before, after []T) []T {
	var out []T
	for _, v := range after {
		if !slices.Contains(before, v) {
			out = append(out, v)
		}
	}
	return out
}
