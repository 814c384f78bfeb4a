package quiz

import (
	"math"

	"github.com/p-n-ai/pai-learn/internal/catalog"
)

// Score awards each question's points when the chosen option matches the
// correct answer exactly. Answers to unknown question ids are ignored.
func Score(q catalog.Quiz, answers map[int]string) (awarded, total int) {
	for _, qq := range q.Questions {
		total += qq.Points
		if got, ok := answers[qq.ID]; ok && got == qq.CorrectAnswer {
			awarded += qq.Points
		}
	}
	return awarded, total
}

// Percentage rounds 100*awarded/total half up. A quiz worth no points scores 0.
func Percentage(awarded, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*float64(awarded)/float64(total) + 0.5))
}
