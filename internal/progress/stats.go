// Package progress tracks cumulative learner statistics: streaks, XP, lesson
// counts and the milestones and achievements derived from them.
package progress

import (
	"maps"
	"time"
)

// Storage keys.
const (
	StatsKey = "user-stats"
	// LegacyXPKey held a second XP counter in earlier releases. It is no
	// longer read or written; Reset removes it.
	LegacyXPKey = "user-xp"
)

// Thresholds.
const (
	ReaderLessons           = 5
	SubjectCompletedLessons = 10
)

const dateLayout = "2006-01-02"

// UserStats is the single persisted progress record.
type UserStats struct {
	Streak                 int            `json:"streak"`
	LongestStreak          int            `json:"longestStreak"`
	LastLoginDate          string         `json:"lastLoginDate"`
	TotalXP                int            `json:"totalXP"`
	HoursLearned           float64        `json:"hoursLearned"`
	LessonsCompleted       int            `json:"lessonsCompleted"`
	CertificatesEarned     int            `json:"certificatesEarned"`
	SubjectsCompleted      int            `json:"subjectsCompleted"`
	MaxLessonsInOneSubject int            `json:"maxLessonsInOneSubject"`
	IsReader               bool           `json:"isReader"`
	SubjectLessons         map[string]int `json:"subjectLessons"`
}

// DefaultStats returns the record of a learner with no history.
func DefaultStats(now time.Time) UserStats {
	return UserStats{
		LastLoginDate:  now.UTC().Format(dateLayout),
		SubjectLessons: map[string]int{},
	}
}

// Clone returns a deep copy.
func (s UserStats) Clone() UserStats {
	s.SubjectLessons = maps.Clone(s.SubjectLessons)
	if s.SubjectLessons == nil {
		s.SubjectLessons = map[string]int{}
	}
	return s
}

// applyStreak moves the streak forward to the UTC calendar day of now.
func (s *UserStats) applyStreak(now time.Time) {
	now = now.UTC()
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	switch s.LastLoginDate {
	case today:
	case yesterday:
		s.Streak++
	default:
		s.Streak = 1
	}
	s.LongestStreak = max(s.LongestStreak, s.Streak)
	s.LastLoginDate = today
}

// applyXP adds amount, never letting the total drop below zero.
func (s *UserStats) applyXP(amount int) {
	s.TotalXP = max(0, s.TotalXP+amount)
}

// applyLesson records one completed lesson in subject.
func (s *UserStats) applyLesson(subject string, minutes float64) {
	s.LessonsCompleted++
	if minutes > 0 {
		s.HoursLearned += minutes / 60
	}

	if s.SubjectLessons == nil {
		s.SubjectLessons = map[string]int{}
	}
	s.SubjectLessons[subject]++
	n := s.SubjectLessons[subject]

	s.MaxLessonsInOneSubject = max(s.MaxLessonsInOneSubject, n)
	if n == SubjectCompletedLessons {
		s.SubjectsCompleted++
	}
	if s.LessonsCompleted >= ReaderLessons {
		s.IsReader = true
	}
}
