package quiz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/events"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
	"github.com/p-n-ai/pai-learn/internal/progress"
)

type fakeXP struct {
	mu    sync.Mutex
	calls []int
}

func (f *fakeXP) AddXP(_ context.Context, amount int) progress.UserStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, amount)
	return progress.UserStats{}
}

func (f *fakeXP) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeLessons map[string]int

func (f fakeLessons) CompletedCount(_ context.Context, topicKey string) int { return f[topicKey] }

// eightyPointQuiz has four 20-point questions.
func eightyPointQuiz() catalog.Quiz {
	q := catalog.Quiz{
		ID:              10,
		Title:           "Fractions",
		PassingScore:    75,
		MaxScore:        100,
		XPReward:        30,
		RequiredLessons: catalog.Requirement{Subject: "mathematics", TopicID: "9", TotalLessons: 2},
	}
	for i, ans := range []string{"1/2", "3/4", "2/3", "1/5"} {
		q.Questions = append(q.Questions, catalog.Question{
			ID:            i + 1,
			Text:          "Pick the fraction",
			Options:       []string{"1/2", "3/4", "2/3", "1/5"},
			CorrectAnswer: ans,
			Points:        20,
		})
	}
	return q
}

type fixture struct {
	engine  *Engine
	store   *kvstore.MemoryStore
	xp      *fakeXP
	lessons fakeLessons
	events  *events.MemoryLogger
}

func newFixture(t *testing.T, timeLimit time.Duration) *fixture {
	t.Helper()
	def, err := catalog.Default()
	require.NoError(t, err)
	cat, err := catalog.New(def.Topics(), append(def.Quizzes(), eightyPointQuiz()))
	require.NoError(t, err)

	f := &fixture{
		store:   kvstore.NewMemoryStore(),
		xp:      &fakeXP{},
		lessons: fakeLessons{},
		events:  events.NewMemoryLogger(),
	}
	f.engine = NewEngine(EngineConfig{
		Catalog:   cat,
		Store:     f.store,
		XP:        f.xp,
		Lessons:   f.lessons,
		Events:    f.events,
		UserID:    func() string { return "learner-1" },
		TimeLimit: timeLimit,
	})
	return f
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		awarded, total, want int
	}{
		{60, 80, 75},
		{0, 100, 0},
		{100, 100, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13}, // 12.5 rounds half up
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.awarded, tt.total), "Percentage(%d, %d)", tt.awarded, tt.total)
	}
}

func TestScore(t *testing.T) {
	q := eightyPointQuiz()

	awarded, total := Score(q, map[int]string{1: "1/2", 2: "3/4", 3: "2/3", 4: "1/2", 99: "1/2"})
	assert.Equal(t, 60, awarded)
	assert.Equal(t, 80, total)

	awarded, _ = Score(q, map[int]string{1: " 1/2"})
	assert.Equal(t, 0, awarded, "match is exact")

	awarded, _ = Score(q, nil)
	assert.Equal(t, 0, awarded)
}

func TestTotalPoints(t *testing.T) {
	f := newFixture(t, 0)

	total, err := f.engine.TotalPoints(10)
	require.NoError(t, err)
	assert.Equal(t, 80, total)

	_, err = f.engine.TotalPoints(404)
	assert.ErrorIs(t, err, catalog.ErrQuizNotFound)
}

func TestSubmit_PassAwardsXPOnce(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, 10, map[int]string{1: "1/2", 2: "3/4", 3: "2/3"})
	require.NoError(t, err)
	assert.Equal(t, 75, res.Percentage)
	assert.True(t, res.Passed)
	assert.Equal(t, 30, res.XPAwarded)
	assert.Equal(t, []int{30}, f.xp.calls)

	raw, found, err := f.store.Get(ctx, ProgressKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"10":"75%"}`, raw)

	assert.Len(t, f.events.OfType(events.QuizSubmitted), 1)
	assert.Len(t, f.events.OfType(events.XPAwarded), 1)
	assert.Equal(t, "learner-1", f.events.Events()[0].UserID)
}

func TestSubmit_FailAwardsNothing(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	res, err := f.engine.Submit(ctx, 10, map[int]string{1: "1/2", 2: "3/4"})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Percentage)
	assert.False(t, res.Passed)
	assert.Zero(t, res.XPAwarded)
	assert.Empty(t, f.xp.calls)
	assert.Empty(t, f.events.OfType(events.XPAwarded))
}

func TestSubmit_OverwritesPreviousAttempt(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, 1, map[int]string{1: "15", 2: "Mean", 3: "7", 4: "Median"})
	require.NoError(t, err)
	_, err = f.engine.Submit(ctx, 1, map[int]string{1: "15"})
	require.NoError(t, err)

	pct, ok := f.engine.LastAttempt(ctx, 1)
	assert.True(t, ok)
	assert.Equal(t, 25, pct)
	assert.Len(t, f.engine.Attempts(ctx), 1)
	assert.Equal(t, 50, f.xp.total(), "first attempt passed, second did not")
}

func TestSubmit_UnknownQuiz(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.engine.Submit(context.Background(), 404, map[int]string{1: "x"})
	assert.ErrorIs(t, err, catalog.ErrQuizNotFound)
	assert.Equal(t, 0, f.store.Len())
}

func TestIsUnlocked_CountsOnly(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	assert.False(t, f.engine.IsUnlocked(ctx, 1))

	f.lessons["mathematics-1"] = 2
	assert.False(t, f.engine.IsUnlocked(ctx, 1))

	f.lessons["mathematics-1"] = 3
	assert.True(t, f.engine.IsUnlocked(ctx, 1))

	f.lessons["mathematics-1"] = 4
	assert.True(t, f.engine.IsUnlocked(ctx, 1))

	assert.False(t, f.engine.IsUnlocked(ctx, 404))
}

func TestUnlockedQuizzes(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	assert.Empty(t, f.engine.UnlockedQuizzes(ctx))

	f.lessons["english-1"] = 2
	unlocked := f.engine.UnlockedQuizzes(ctx)
	require.Len(t, unlocked, 1)
	assert.Equal(t, 3, unlocked[0].ID)
}

func TestStats(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	assert.Equal(t, Stats{}, f.engine.Stats(ctx))

	require.NoError(t, kvstore.SetJSON(ctx, f.store, ProgressKey, map[string]string{
		"1": "100%",
		"2": "60%", // passes quiz 2 (60) but not the display threshold
		"3": "70%",
	}))
	assert.Equal(t, Stats{Attempted: 3, Passed: 2, PassRate: 67}, f.engine.Stats(ctx))

	require.NoError(t, kvstore.SetJSON(ctx, f.store, ProgressKey, map[string]string{
		"1": "garbage",
		"2": "90%",
	}))
	assert.Equal(t, Stats{Attempted: 2, Passed: 1, PassRate: 50}, f.engine.Stats(ctx))
}

func TestParsePercentage(t *testing.T) {
	n, ok := ParsePercentage("75%")
	assert.True(t, ok)
	assert.Equal(t, 75, n)

	n, ok = ParsePercentage("40")
	assert.True(t, ok)
	assert.Equal(t, 40, n)

	_, ok = ParsePercentage("n/a")
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	_, err := f.engine.Submit(ctx, 3, map[int]string{1: "Paris"})
	require.NoError(t, err)
	require.NoError(t, f.engine.Reset(ctx))
	assert.Empty(t, f.engine.Attempts(ctx))
}

func TestConcurrentSubmitsKeepEveryQuiz(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []int{1, 2, 3, 10} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.Submit(ctx, id, nil)
		}()
	}
	wg.Wait()

	assert.Len(t, f.engine.Attempts(ctx), 4)
}
