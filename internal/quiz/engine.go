// Package quiz scores quiz submissions, records attempts and gates quizzes
// behind lesson completion.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/events"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

// ProgressKey stores the latest percentage per quiz id, e.g. {"1":"75%"}.
const ProgressKey = "quiz-progress"

// DisplayPassThreshold is the fixed percentage the aggregate pass rate
// counts as a pass, independent of each quiz's PassingScore.
const DisplayPassThreshold = 70

// DefaultTimeLimit is the attempt budget when none is configured.
const DefaultTimeLimit = 30 * time.Minute

// ErrQuizLocked is returned when the required lessons are not complete.
var ErrQuizLocked = errors.New("quiz is locked")

// XPAwarder credits experience points. progress.Tracker implements it.
type XPAwarder interface {
	AddXP(ctx context.Context, amount int) progress.UserStats
}

// LessonCounter reports how many lessons of a topic are complete.
// gating.Service implements it.
type LessonCounter interface {
	CompletedCount(ctx context.Context, topicKey string) int
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	Catalog   *catalog.Catalog
	Store     kvstore.Store
	Locker    *kvstore.KeyLocker
	XP        XPAwarder
	Lessons   LessonCounter
	Events    events.Logger
	UserID    func() string
	TimeLimit time.Duration
	Now       func() time.Time
}

// Engine scores quizzes against the catalog.
type Engine struct {
	catalog   *catalog.Catalog
	store     kvstore.Store
	locker    *kvstore.KeyLocker
	xp        XPAwarder
	lessons   LessonCounter
	events    events.Logger
	userID    func() string
	timeLimit time.Duration
	now       func() time.Time
}

// NewEngine creates a quiz engine.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		locker:    cfg.Locker,
		xp:        cfg.XP,
		lessons:   cfg.Lessons,
		events:    cfg.Events,
		userID:    cfg.UserID,
		timeLimit: cfg.TimeLimit,
		now:       cfg.Now,
	}
	if e.locker == nil {
		e.locker = kvstore.NewKeyLocker()
	}
	if e.events == nil {
		e.events = events.NopLogger{}
	}
	if e.userID == nil {
		e.userID = func() string { return "" }
	}
	if e.timeLimit <= 0 {
		e.timeLimit = DefaultTimeLimit
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Result is the outcome of one submission.
type Result struct {
	QuizID      int  `json:"quizId"`
	Points      int  `json:"points"`
	TotalPoints int  `json:"totalPoints"`
	Percentage  int  `json:"percentage"`
	Passed      bool `json:"passed"`
	XPAwarded   int  `json:"xpAwarded"`
	TimedOut    bool `json:"timedOut,omitempty"`
}

// Stats aggregates the stored attempts.
type Stats struct {
	Attempted int `json:"attempted"`
	Passed    int `json:"passed"`
	PassRate  int `json:"passRate"`
}

// FindQuiz looks a quiz up in the catalog.
func (e *Engine) FindQuiz(id int) (catalog.Quiz, error) {
	return e.catalog.Quiz(id)
}

// TotalPoints returns the scoring denominator of a quiz.
func (e *Engine) TotalPoints(id int) (int, error) {
	q, err := e.catalog.Quiz(id)
	if err != nil {
		return 0, err
	}
	return q.TotalPoints(), nil
}

// IsUnlocked reports whether enough lessons of the required topic are
// complete. Only the count matters, not which lessons. Unknown quizzes are
// locked.
func (e *Engine) IsUnlocked(ctx context.Context, id int) bool {
	q, err := e.catalog.Quiz(id)
	if err != nil {
		return false
	}
	req := q.RequiredLessons
	return e.lessons.CompletedCount(ctx, req.TopicKey()) >= req.TotalLessons
}

// UnlockedQuizzes returns the unlocked quizzes ordered by id.
func (e *Engine) UnlockedQuizzes(ctx context.Context) []catalog.Quiz {
	var out []catalog.Quiz
	for _, q := range e.catalog.Quizzes() {
		if e.IsUnlocked(ctx, q.ID) {
			out = append(out, q)
		}
	}
	return out
}

// Submit scores answers (question id to chosen option), overwrites the
// stored attempt and awards the quiz's XP when it is passed.
func (e *Engine) Submit(ctx context.Context, id int, answers map[int]string) (Result, error) {
	q, err := e.catalog.Quiz(id)
	if err != nil {
		return Result{}, err
	}

	points, total := Score(q, answers)
	res := Result{
		QuizID:      id,
		Points:      points,
		TotalPoints: total,
		Percentage:  Percentage(points, total),
	}
	res.Passed = res.Percentage >= q.PassingScore

	e.recordAttempt(ctx, id, res.Percentage)

	if res.Passed && q.XPReward > 0 {
		e.xp.AddXP(ctx, q.XPReward)
		res.XPAwarded = q.XPReward
		e.logEvent(ctx, events.XPAwarded, map[string]any{"quiz_id": id, "amount": q.XPReward})
	}

	e.logEvent(ctx, events.QuizSubmitted, map[string]any{
		"quiz_id":    id,
		"percentage": res.Percentage,
		"passed":     res.Passed,
	})
	slog.Info("quiz submitted", "quiz_id", id, "percentage", res.Percentage, "passed", res.Passed)
	return res, nil
}

func (e *Engine) recordAttempt(ctx context.Context, id, percentage int) {
	unlock := e.locker.Lock(ProgressKey)
	defer unlock()

	attempts := e.Attempts(ctx)
	attempts[strconv.Itoa(id)] = fmt.Sprintf("%d%%", percentage)
	if err := kvstore.SetJSON(ctx, e.store, ProgressKey, attempts); err != nil {
		slog.Error("failed to save quiz progress", "quiz_id", id, "error", err)
	}
}

// Attempts returns the stored quiz id to percentage-string mapping.
func (e *Engine) Attempts(ctx context.Context) map[string]string {
	attempts := map[string]string{}
	if _, err := kvstore.GetJSON(ctx, e.store, ProgressKey, &attempts); err != nil {
		slog.Warn("failed to load quiz progress", "error", err)
		return map[string]string{}
	}
	if attempts == nil {
		return map[string]string{}
	}
	return attempts
}

// LastAttempt returns the stored percentage of a quiz's latest attempt.
func (e *Engine) LastAttempt(ctx context.Context, id int) (int, bool) {
	raw, ok := e.Attempts(ctx)[strconv.Itoa(id)]
	if !ok {
		return 0, false
	}
	return ParsePercentage(raw)
}

// Stats counts attempts and the share scoring at least DisplayPassThreshold.
// An unreadable score counts as attempted but not passed.
func (e *Engine) Stats(ctx context.Context) Stats {
	attempts := e.Attempts(ctx)
	s := Stats{Attempted: len(attempts)}
	for _, raw := range attempts {
		if pct, ok := ParsePercentage(raw); ok && pct >= DisplayPassThreshold {
			s.Passed++
		}
	}
	if s.Attempted > 0 {
		s.PassRate = Percentage(s.Passed, s.Attempted)
	}
	return s
}

// Reset forgets every stored attempt.
func (e *Engine) Reset(ctx context.Context) error {
	unlock := e.locker.Lock(ProgressKey)
	defer unlock()
	return e.store.Remove(ctx, ProgressKey)
}

// ParsePercentage reads "75%" (or "75") into 75.
func ParsePercentage(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (e *Engine) logEvent(ctx context.Context, eventType string, data map[string]any) {
	err := e.events.LogEvent(ctx, events.Event{
		UserID:    e.userID(),
		Type:      eventType,
		Data:      data,
		CreatedAt: e.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "error", err)
	}
}
