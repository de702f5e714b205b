package quiz

import (
	"math"

	"course-portal/internal/models"

	"github.com/google/uuid"
)

// Score is the rounded percentage of correct answers; 0 for an empty set.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// CountCorrect counts questions whose selection equals the stored
// correct index. Questions without a selection never count.
func CountCorrect(questions []models.Question, answers map[uuid.UUID]int) int {
	n := 0
	for _, q := range questions {
		if sel, ok := answers[q.ID]; ok && sel == q.CorrectIndex {
			n++
		}
	}
	return n
}
