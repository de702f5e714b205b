package quiz

import (
	"context"
	"math"
	"sort"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
)

type ResultFilter string

const (
	FilterAll        ResultFilter = "all"
	FilterWrong      ResultFilter = "wrong"
	FilterUnanswered ResultFilter = "unanswered"
)

func ParseResultFilter(raw string) (ResultFilter, error) {
	switch f := ResultFilter(raw); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterWrong, FilterUnanswered:
		return f, nil
	}
	return "", apperr.Invalid("filter", "must be all, wrong or unanswered")
}

type ResultItem struct {
	Index    int                `json:"index"`
	Question models.QuestionDTO `json:"question"`
	Selected *int               `json:"selected"`
	Correct  bool               `json:"correct"`
}

func (it ResultItem) matches(f ResultFilter) bool {
	switch f {
	case FilterUnanswered:
		return it.Selected == nil
	case FilterWrong:
		return it.Selected != nil && !it.Correct
	}
	return true
}

type ResultsView struct {
	Quiz    *models.Quiz `json:"quiz"`
	Filter  ResultFilter `json:"filter"`
	Items   []ResultItem `json:"items"`
	Total   int          `json:"total"`
	Correct int          `json:"correct"`
	Percent int          `json:"percent"`
}

// BuildResults pairs an attempt's ordered questions with its answers.
// The stored correct count wins once the attempt is submitted.
func BuildResults(q *models.Quiz, items []models.QuizQuestion, answers []models.QuizAnswer, f ResultFilter) *ResultsView {
	sel := selections(answers)
	view := &ResultsView{Quiz: q, Filter: f, Total: len(items)}

	computed := 0
	for i, it := range items {
		if it.Question == nil {
			continue
		}
		ri := ResultItem{Index: i, Question: it.Question.ToDTO(true), Selected: sel[it.QuestionID]}
		ri.Correct = ri.Selected != nil && *ri.Selected == it.Question.CorrectIndex
		if ri.Correct {
			computed++
		}
		if ri.matches(f) {
			view.Items = append(view.Items, ri)
		}
	}

	view.Correct = computed
	if q.SubmittedAt != nil {
		view.Correct = q.CorrectCount
	}
	view.Percent = Score(view.Correct, view.Total)
	return view
}

func (s *Service) Results(ctx context.Context, userID, quizID uuid.UUID, f ResultFilter) (*ResultsView, error) {
	q, err := s.ownAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.AttemptItems(ctx, quizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AttemptAnswers(ctx, quizID)
	if err != nil {
		return nil, err
	}
	return BuildResults(q, items, answers, f), nil
}

type Stats struct {
	Count int `json:"count"`
	Avg   int `json:"avg"`
	Best  int `json:"best"`
	Last  int `json:"last"`
}

type HistoryView struct {
	Attempts []models.Quiz `json:"attempts"`
	Stats    Stats         `json:"stats"`
	Chart    []int         `json:"chart"`
}

// BuildHistory summarizes attempts given newest first. The chart runs
// oldest to newest.
func BuildHistory(attempts []models.Quiz) *HistoryView {
	view := &HistoryView{Attempts: attempts, Chart: []int{}}
	if len(attempts) == 0 {
		return view
	}

	sum, best := 0, math.MinInt
	for _, a := range attempts {
		sum += a.Score
		if a.Score > best {
			best = a.Score
		}
	}
	view.Stats = Stats{
		Count: len(attempts),
		Avg:   int(math.Round(float64(sum) / float64(len(attempts)))),
		Best:  best,
		Last:  attempts[0].Score,
	}

	sorted := make([]models.Quiz, len(attempts))
	copy(sorted, attempts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartedAt.Before(sorted[j].StartedAt) })
	for _, a := range sorted {
		view.Chart = append(view.Chart, a.Score)
	}
	return view
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) (*HistoryView, error) {
	attempts, err := s.store.ListAttempts(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return BuildHistory(attempts), nil
}
