// Package settings holds device-level preferences such as whether the
// onboarding walkthrough has been seen.
package settings

import (
	"context"
	"log/slog"
	"sync"

	"github.com/p-n-ai/pai-learn/internal/kvstore"
)

// OnboardingKey stores "true" once onboarding has been completed.
const OnboardingKey = "hasSeenOnboarding"

// Settings caches preferences in memory and persists them to the store.
type Settings struct {
	store kvstore.Store

	mu             sync.RWMutex
	seenOnboarding bool
}

// New creates settings backed by store. Call Load to read persisted values.
func New(store kvstore.Store) *Settings {
	return &Settings{store: store}
}

// Load reads persisted values. A read failure leaves the defaults in place.
func (s *Settings) Load(ctx context.Context) {
	v, found, err := s.store.Get(ctx, OnboardingKey)
	if err != nil {
		slog.Warn("failed to load onboarding flag", "error", err)
		return
	}
	s.mu.Lock()
	s.seenOnboarding = found && v == "true"
	s.mu.Unlock()
}

// OnboardingComplete reports whether onboarding has been seen.
func (s *Settings) OnboardingComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seenOnboarding
}

// CompleteOnboarding marks onboarding as seen.
func (s *Settings) CompleteOnboarding(ctx context.Context) error {
	if err := s.store.Set(ctx, OnboardingKey, "true"); err != nil {
		return err
	}
	s.mu.Lock()
	s.seenOnboarding = true
	s.mu.Unlock()
	return nil
}

// ResetOnboarding shows onboarding again on the next start.
func (s *Settings) ResetOnboarding(ctx context.Context) error {
	if err := s.store.Remove(ctx, OnboardingKey); err != nil {
		return err
	}
	s.mu.Lock()
	s.seenOnboarding = false
	s.mu.Unlock()
	return nil
}
