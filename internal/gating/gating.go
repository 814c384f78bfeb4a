// Package gating records lesson completion per topic and decides which
// lessons a learner may open.
package gating

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/kvstore"
)

// ErrLessonLocked is returned when a lesson's predecessor is not complete.
var ErrLessonLocked = errors.New("lesson is locked")

// CompletedKey is the store key of a topic's completed-lesson set.
func CompletedKey(topicKey string) string { return "completed-" + topicKey }

// CurrentKey is the store key of a topic's last viewed lesson.
func CurrentKey(topicKey string) string { return "current-" + topicKey }

// TopicsKey is the store key listing every topic key with saved progress.
const TopicsKey = "progress-topics"

// Accessible reports whether lessonID may be opened given the completed set.
// Lesson 1 is always open; lesson n needs lesson n-1.
func Accessible(completed []int, lessonID int) bool {
	if lessonID <= 1 {
		return true
	}
	return slices.Contains(completed, lessonID-1)
}

// TargetKind says where navigation goes after a lesson.
type TargetKind string

const (
	TargetLesson TargetKind = "lesson"
	TargetQuiz   TargetKind = "quiz"
)

// Target is the navigation destination after finishing a lesson.
type Target struct {
	Kind     TargetKind `json:"kind"`
	LessonID int        `json:"lessonId,omitempty"`
}

// NextLessonOrQuiz returns lessonID+1 while lessons remain, otherwise the
// topic's quiz.
func NextLessonOrQuiz(lessonID, topicLength int) Target {
	if lessonID < topicLength {
		return Target{Kind: TargetLesson, LessonID: lessonID + 1}
	}
	return Target{Kind: TargetQuiz}
}

// Service reads and writes per-topic completion state.
type Service struct {
	store   kvstore.Store
	locker  *kvstore.KeyLocker
	catalog *catalog.Catalog
}

// NewService creates a gating service. locker may be shared with the other
// components that write to store.
func NewService(store kvstore.Store, locker *kvstore.KeyLocker, cat *catalog.Catalog) *Service {
	if locker == nil {
		locker = kvstore.NewKeyLocker()
	}
	return &Service{store: store, locker: locker, catalog: cat}
}

// CompletedLessons returns the completed set in insertion order. Read
// failures yield an empty set.
func (s *Service) CompletedLessons(ctx context.Context, topicKey string) []int {
	var ids []int
	if _, err := kvstore.GetJSON(ctx, s.store, CompletedKey(topicKey), &ids); err != nil {
		slog.Warn("failed to load completed lessons", "topic_key", topicKey, "error", err)
		return []int{}
	}
	if ids == nil {
		return []int{}
	}
	return ids
}

// CompletedCount is the cardinality of the completed set.
func (s *Service) CompletedCount(ctx context.Context, topicKey string) int {
	return len(s.CompletedLessons(ctx, topicKey))
}

// IsLessonCompleted reports whether lessonID is in the completed set.
func (s *Service) IsLessonCompleted(ctx context.Context, topicKey string, lessonID int) bool {
	return slices.Contains(s.CompletedLessons(ctx, topicKey), lessonID)
}

// IsLessonAccessible applies Accessible to the stored set.
func (s *Service) IsLessonAccessible(ctx context.Context, topicKey string, lessonID int) bool {
	return Accessible(s.CompletedLessons(ctx, topicKey), lessonID)
}

// MarkLessonCompleted adds lessonID to the completed set. added is false
// when it was already there. A failed write is logged and the updated set is
// still returned.
func (s *Service) MarkLessonCompleted(ctx context.Context, topicKey string, lessonID int) (completed []int, added bool) {
	key := CompletedKey(topicKey)
	unlock := s.locker.Lock(key)
	defer unlock()

	completed = s.CompletedLessons(ctx, topicKey)
	if !slices.Contains(completed, lessonID) {
		completed = append(completed, lessonID)
		added = true
	}
	if err := kvstore.SetJSON(ctx, s.store, key, completed); err != nil {
		slog.Error("failed to save completed lessons", "topic_key", topicKey, "error", err)
	}
	s.remember(ctx, topicKey)
	return completed, added
}

// SetCurrentLesson remembers the last lesson viewed in a topic.
func (s *Service) SetCurrentLesson(ctx context.Context, topicKey string, lessonID int) {
	if err := kvstore.SetJSON(ctx, s.store, CurrentKey(topicKey), lessonID); err != nil {
		slog.Error("failed to save current lesson", "topic_key", topicKey, "error", err)
	}
	s.remember(ctx, topicKey)
}

// remember adds topicKey to the TopicsKey index.
func (s *Service) remember(ctx context.Context, topicKey string) {
	unlock := s.locker.Lock(TopicsKey)
	defer unlock()

	keys, err := s.trackedTopics(ctx)
	if err != nil || slices.Contains(keys, topicKey) {
		return
	}
	if err := kvstore.SetJSON(ctx, s.store, TopicsKey, append(keys, topicKey)); err != nil {
		slog.Error("failed to save topic index", "topic_key", topicKey, "error", err)
	}
}

func (s *Service) trackedTopics(ctx context.Context) ([]string, error) {
	var keys []string
	if _, err := kvstore.GetJSON(ctx, s.store, TopicsKey, &keys); err != nil {
		slog.Warn("failed to load topic index", "error", err)
		if errors.Is(err, kvstore.ErrCorrupt) {
			return nil, nil
		}
		return nil, err
	}
	return keys, nil
}

// CurrentLesson returns the last lesson viewed, if any.
func (s *Service) CurrentLesson(ctx context.Context, topicKey string) (int, bool) {
	var id int
	found, err := kvstore.GetJSON(ctx, s.store, CurrentKey(topicKey), &id)
	if err != nil {
		slog.Warn("failed to load current lesson", "topic_key", topicKey, "error", err)
		return 0, false
	}
	return id, found
}

// ResumeLesson picks the lesson a learner continues with: one past the number
// completed, starting over at 1 once every lesson is done.
func (s *Service) ResumeLesson(ctx context.Context, topicKey string) (int, error) {
	topic, err := s.catalog.Topic(topicKey)
	if err != nil {
		return 0, err
	}
	next := s.CompletedCount(ctx, topicKey) + 1
	if next > len(topic.Lessons) {
		next = 1
	}
	return next, nil
}

// Next resolves the navigation target after lessonID using the topic length
// from the catalog.
func (s *Service) Next(topicKey string, lessonID int) (Target, error) {
	topic, err := s.catalog.Topic(topicKey)
	if err != nil {
		return Target{}, err
	}
	return NextLessonOrQuiz(lessonID, len(topic.Lessons)), nil
}

// Reset removes completion and current-lesson state for every catalog topic
// and every topic recorded in the TopicsKey index, including topics no longer
// in the catalog.
func (s *Service) Reset(ctx context.Context) error {
	unlockIndex := s.locker.Lock(TopicsKey)
	keys, _ := s.trackedTopics(ctx)
	unlockIndex()

	for _, t := range s.catalog.Topics() {
		if !slices.Contains(keys, t.Key()) {
			keys = append(keys, t.Key())
		}
	}

	var errs []error
	for _, topicKey := range keys {
		key := CompletedKey(topicKey)
		unlock := s.locker.Lock(key)
		errs = append(errs,
			s.store.Remove(ctx, key),
			s.store.Remove(ctx, CurrentKey(topicKey)),
		)
		unlock()
	}
	unlockIndex = s.locker.Lock(TopicsKey)
	errs = append(errs, s.store.Remove(ctx, TopicsKey))
	unlockIndex()
	return errors.Join(errs...)
}
