package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/kvstore"
)

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	Store  kvstore.Store
	Locker *kvstore.KeyLocker // shared with other components writing the same store
	Now    func() time.Time
}

// Tracker owns the UserStats record and is the only writer of XP.
//
// Store failures never reach the caller: a failed read proceeds from the
// default record and a failed write keeps the in-memory result.
type Tracker struct {
	store  kvstore.Store
	locker *kvstore.KeyLocker
	now    func() time.Time
}

// NewTracker creates a tracker.
func NewTracker(cfg TrackerConfig) *Tracker {
	t := &Tracker{
		store:  cfg.Store,
		locker: cfg.Locker,
		now:    cfg.Now,
	}
	if t.locker == nil {
		t.locker = kvstore.NewKeyLocker()
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// Load returns the stored record or the default one.
func (t *Tracker) Load(ctx context.Context) UserStats {
	s, _ := t.load(ctx)
	return s
}

// load reports readable == false when the store itself failed. A corrupt
// record counts as readable so the next write replaces it.
func (t *Tracker) load(ctx context.Context) (UserStats, bool) {
	var s UserStats
	found, err := kvstore.GetJSON(ctx, t.store, StatsKey, &s)
	switch {
	case errors.Is(err, kvstore.ErrCorrupt):
		slog.Warn("stored user stats are corrupt, using defaults", "error", err)
		return DefaultStats(t.now()), true
	case err != nil:
		slog.Warn("failed to load user stats, using defaults", "error", err)
		return DefaultStats(t.now()), false
	case !found:
		return DefaultStats(t.now()), true
	}
	return s.Clone(), true
}

// UpdateStreak evaluates the daily streak. Calling it again on the same
// calendar day changes nothing.
func (t *Tracker) UpdateStreak(ctx context.Context) UserStats {
	now := t.now()
	return t.mutate(ctx, func(s *UserStats) { s.applyStreak(now) })
}

// AddXP adds amount to the XP total.
func (t *Tracker) AddXP(ctx context.Context, amount int) UserStats {
	if amount < 0 {
		slog.Warn("negative xp amount", "amount", amount)
	}
	return t.mutate(ctx, func(s *UserStats) { s.applyXP(amount) })
}

// CompleteLesson records one finished lesson of subject that took minutes.
func (t *Tracker) CompleteLesson(ctx context.Context, subject string, minutes float64) UserStats {
	return t.mutate(ctx, func(s *UserStats) { s.applyLesson(subject, minutes) })
}

// EarnCertificate increments the certificate count.
func (t *Tracker) EarnCertificate(ctx context.Context) UserStats {
	return t.mutate(ctx, func(s *UserStats) { s.CertificatesEarned++ })
}

// UnlockedMilestones derives milestones from freshly loaded stats.
func (t *Tracker) UnlockedMilestones(ctx context.Context) []Milestone {
	return MilestonesFor(t.Load(ctx))
}

// UnlockedAchievements derives achievements from freshly loaded stats.
func (t *Tracker) UnlockedAchievements(ctx context.Context) []Achievement {
	return AchievementsFor(t.Load(ctx))
}

// Reset deletes the stats record and the retired XP counter.
func (t *Tracker) Reset(ctx context.Context) error {
	unlock := t.locker.Lock(StatsKey)
	defer unlock()

	return errors.Join(
		t.store.Remove(ctx, StatsKey),
		t.store.Remove(ctx, LegacyXPKey),
	)
}

// mutate applies fn under the record lock. When the stored record could not
// be read, the result is returned but not saved, so a transient read failure
// never overwrites real progress with defaults.
func (t *Tracker) mutate(ctx context.Context, fn func(*UserStats)) UserStats {
	unlock := t.locker.Lock(StatsKey)
	defer unlock()

	s, readable := t.load(ctx)
	fn(&s)
	if !readable {
		slog.Warn("user stats unreadable, change kept in memory only")
		return s
	}
	if err := kvstore.SetJSON(ctx, t.store, StatsKey, s); err != nil {
		slog.Error("failed to save user stats", "error", err)
	}
	return s
}
