package progress

// Milestone identifies an early-journey unlock.
type Milestone string

const (
	BeginnerExplorer  Milestone = "beginner-explorer"
	ConsistencyChamp  Milestone = "consistency-champ"
	SubjectSpecialist Milestone = "subject-specialist"
)

// Achievement identifies a long-term unlock.
type Achievement string

const (
	KnowledgeSeeker  Achievement = "knowledge-seeker"
	CertifiedScholar Achievement = "certified-scholar"
	LifelongLearner  Achievement = "lifelong-learner"
)

// Unlock thresholds.
const (
	ConsistencyStreakDays    = 45
	SpecialistSubjectLessons = 5
	KnowledgeSeekerLessons   = 10
	ScholarCertificates      = 3
	LifelongSubjects         = 3
)

// AllMilestones lists milestones in display order.
var AllMilestones = []Milestone{BeginnerExplorer, ConsistencyChamp, SubjectSpecialist}

// AllAchievements lists achievements in display order.
var AllAchievements = []Achievement{KnowledgeSeeker, CertifiedScholar, LifelongLearner}

// DisplayName returns the label shown to learners.
func (m Milestone) DisplayName() string {
	switch m {
	case BeginnerExplorer:
		return "Beginner Explorer (First Lesson Completed)"
	case ConsistencyChamp:
		return "Consistency Champ (45-Day Learning Streak)"
	case SubjectSpecialist:
		return "Subject Specialist (Completed 5 Lessons in One Subject)"
	}
	return string(m)
}

// DisplayName returns the label shown to learners.
func (a Achievement) DisplayName() string {
	switch a {
	case KnowledgeSeeker:
		return "Knowledge Seeker (Completed 10 Lessons)"
	case CertifiedScholar:
		return "Certified Scholar (Earned 3 Certificates)"
	case LifelongLearner:
		return "Lifelong Learner (Completed 3 Full Subjects)"
	}
	return string(a)
}

// MilestonesFor derives the unlocked milestones from stats.
func MilestonesFor(s UserStats) []Milestone {
	var out []Milestone
	if s.LessonsCompleted >= 1 {
		out = append(out, BeginnerExplorer)
	}
	if s.LongestStreak >= ConsistencyStreakDays {
		out = append(out, ConsistencyChamp)
	}
	if s.MaxLessonsInOneSubject >= SpecialistSubjectLessons {
		out = append(out, SubjectSpecialist)
	}
	return out
}

// AchievementsFor derives the unlocked achievements from stats.
func AchievementsFor(s UserStats) []Achievement {
	var out []Achievement
	if s.LessonsCompleted >= KnowledgeSeekerLessons {
		out = append(out, KnowledgeSeeker)
	}
	if s.CertificatesEarned >= ScholarCertificates {
		out = append(out, CertifiedScholar)
	}
	if s.SubjectsCompleted >= LifelongSubjects {
		out = append(out, LifelongLearner)
	}
	return out
}
