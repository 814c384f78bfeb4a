// Package report exports learner progress as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/progress"
	"github.com/p-n-ai/pai-learn/internal/quiz"
)

// Sheet names.
const (
	SheetSummary = "Summary"
	SheetQuizzes = "Quizzes"
	SheetTopics  = "Topics"
)

// Snapshot is the progress state written to a workbook.
type Snapshot struct {
	GeneratedAt  time.Time
	Learner      string
	Stats        progress.UserStats
	QuizStats    quiz.Stats
	Milestones   []string
	Achievements []string
	Quizzes      []QuizRow
	Topics       []TopicRow
}

// QuizRow is one line of the Quizzes sheet.
type QuizRow struct {
	ID           int
	Title        string
	Subject      string
	PassingScore int
	Unlocked     bool
	Attempted    bool
	LastScore    int
	Passed       bool
}

// TopicRow is one line of the Topics sheet.
type TopicRow struct {
	Key       string
	Title     string
	Subject   string
	Completed int
	Total     int
}

// WriteXLSX renders snap as an .xlsx workbook into w.
func WriteXLSX(w io.Writer, snap Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetQuizzes, SheetTopics} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, header, snap); err != nil {
		return err
	}
	if err := writeQuizzes(f, header, snap.Quizzes); err != nil {
		return err
	}
	if err := writeTopics(f, header, snap.Topics); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, header int, snap Snapshot) error {
	s := snap.Stats
	rows := [][]any{
		{"Field", "Value"},
		{"Generated", snap.GeneratedAt.Format(time.RFC3339)},
		{"Learner", snap.Learner},
		{"Streak", s.Streak},
		{"Longest streak", s.LongestStreak},
		{"Last check-in", s.LastLoginDate},
		{"Total XP", s.TotalXP},
		{"Hours learned", s.HoursLearned},
		{"Lessons completed", s.LessonsCompleted},
		{"Certificates earned", s.CertificatesEarned},
		{"Subjects completed", s.SubjectsCompleted},
		{"Reader", s.IsReader},
		{"Quizzes attempted", snap.QuizStats.Attempted},
		{"Quiz pass rate (%)", snap.QuizStats.PassRate},
		{"Milestones", strings.Join(snap.Milestones, "; ")},
		{"Achievements", strings.Join(snap.Achievements, "; ")},
	}

	subjects := make([]string, 0, len(s.SubjectLessons))
	for subj := range s.SubjectLessons {
		subjects = append(subjects, subj)
	}
	sort.Strings(subjects)
	for _, subj := range subjects {
		rows = append(rows, []any{"Lessons: " + subj, s.SubjectLessons[subj]})
	}

	if err := writeRows(f, SheetSummary, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSummary, "A", "B", 28); err != nil {
		return err
	}
	return f.SetCellStyle(SheetSummary, "A1", "B1", header)
}

func writeQuizzes(f *excelize.File, header int, quizzes []QuizRow) error {
	rows := [][]any{{"ID", "Title", "Subject", "Passing score", "Unlocked", "Last score", "Passed"}}
	for _, q := range quizzes {
		last := any("")
		if q.Attempted {
			last = fmt.Sprintf("%d%%", q.LastScore)
		}
		rows = append(rows, []any{q.ID, q.Title, q.Subject, q.PassingScore, yesNo(q.Unlocked), last, yesNo(q.Attempted && q.Passed)})
	}
	if err := writeRows(f, SheetQuizzes, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetQuizzes, "B", "B", 32); err != nil {
		return err
	}
	return f.SetCellStyle(SheetQuizzes, "A1", "G1", header)
}

func writeTopics(f *excelize.File, header int, topics []TopicRow) error {
	rows := [][]any{{"Topic", "Title", "Subject", "Completed", "Lessons", "Progress (%)"}}
	for _, t := range topics {
		rows = append(rows, []any{t.Key, t.Title, t.Subject, t.Completed, t.Total, quiz.Percentage(min(t.Completed, t.Total), t.Total)})
	}
	if err := writeRows(f, SheetTopics, rows); err != nil {
		return err
	}
	return f.SetCellStyle(SheetTopics, "A1", "F1", header)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
