package quiz

import (
	"math/rand"
	"sort"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
)

// ErrNoQuestions means the filters matched nothing. Callers show it as
// an empty state the student can retry with other filters.
var ErrNoQuestions = apperr.NotFound("no questions match these filters")

// InScope reports whether q belongs to the attempt described by f.
// Archived questions are never in scope.
func InScope(q models.Question, f Filters) bool {
	if q.IsArchived || q.CourseID != f.CourseID {
		return false
	}
	if f.Group == GroupAll {
		return true
	}
	if q.LectureID == nil {
		return f.IncludeGeneral
	}
	for _, id := range f.SelectedIDs() {
		if id == *q.LectureID {
			return true
		}
	}
	return false
}

// LectureRanks maps grouping ids to their display position: lectures by
// order key, then formatives by number.
func LectureRanks(lectures []models.Lecture) map[uuid.UUID]int {
	sorted := make([]models.Lecture, len(lectures))
	copy(sorted, lectures)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.IsFormative() != b.IsFormative() {
			return !a.IsFormative()
		}
		return a.Number() < b.Number()
	})
	ranks := make(map[uuid.UUID]int, len(sorted))
	for i, l := range sorted {
		ranks[l.ID] = i
	}
	return ranks
}

// Select filters the course's questions to f's scope, orders them,
// truncates to f.Count and optionally shuffles. Questions are ordered by
// creation time; whole-course attempts order by lecture position first,
// with general questions leading.
func Select(all []models.Question, f Filters, ranks map[uuid.UUID]int, rng *rand.Rand) ([]models.Question, error) {
	var picked []models.Question
	for _, q := range all {
		if InScope(q, f) {
			picked = append(picked, q)
		}
	}
	if len(picked) == 0 {
		return nil, ErrNoQuestions
	}

	rank := func(q models.Question) int {
		if q.LectureID == nil {
			return -1
		}
		if r, ok := ranks[*q.LectureID]; ok {
			return r
		}
		return len(ranks)
	}
	sort.SliceStable(picked, func(i, j int) bool {
		a, b := picked[i], picked[j]
		if f.Group == GroupAll {
			if ra, rb := rank(a), rank(b); ra != rb {
				return ra < rb
			}
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if f.Count > 0 && len(picked) > f.Count {
		picked = picked[:f.Count]
	}
	if f.Shuffle && rng != nil {
		rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	}
	return picked, nil
}
