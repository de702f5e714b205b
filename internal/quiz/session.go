package quiz

import (
	"fmt"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrSubmitted is returned for any change after submission.
var ErrSubmitted = errors.Wrap(apperr.ErrValidation, "attempt already submitted")

// IncompleteError refuses a submission with unanswered questions.
type IncompleteError struct {
	Missing int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%d question(s) still unanswered", e.Missing)
}

func (e *IncompleteError) Is(target error) bool {
	return target == apperr.ErrValidation
}

// Result is the outcome of a scored attempt.
type Result struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Score   int `json:"score"`
}

// Session is one student's pass over an ordered question set.
// The submitted flag only ever moves from false to true.
type Session struct {
	mode      models.QuizMode
	questions []models.Question
	index     int
	answers   map[uuid.UUID]int
	revealed  map[uuid.UUID]bool
	submitted bool
	result    Result
}

func NewSession(mode models.QuizMode, questions []models.Question) *Session {
	return &Session{
		mode:      mode,
		questions: questions,
		answers:   make(map[uuid.UUID]int, len(questions)),
		revealed:  make(map[uuid.UUID]bool),
	}
}

func (s *Session) Len() int   { return len(s.questions) }
func (s *Session) Index() int { return s.index }

func (s *Session) Current() (models.Question, bool) {
	if len(s.questions) == 0 {
		return models.Question{}, false
	}
	return s.questions[s.index], true
}

// Goto moves to i, clamped into the question range.
func (s *Session) Goto(i int) {
	if len(s.questions) == 0 {
		s.index = 0
		return
	}
	s.index = clamp(i, 0, len(s.questions)-1)
}

func (s *Session) Next() { s.Goto(s.index + 1) }
func (s *Session) Prev() { s.Goto(s.index - 1) }

func (s *Session) find(id uuid.UUID) (models.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

// Answer records choice for a question, replacing any earlier one.
// Practice mode reveals that question's feedback right away.
func (s *Session) Answer(questionID uuid.UUID, choice int) error {
	if s.submitted {
		return ErrSubmitted
	}
	q, ok := s.find(questionID)
	if !ok {
		return apperr.Invalid("question_id", "question is not part of this attempt")
	}
	if choice < 0 || choice >= len(q.Choices) {
		return apperr.Invalid("choice", "out of range")
	}
	s.answers[questionID] = choice
	if s.mode == models.ModePractice {
		s.revealed[questionID] = true
	}
	return nil
}

// Choose answers the current question.
func (s *Session) Choose(choice int) error {
	q, ok := s.Current()
	if !ok {
		return apperr.Invalid("question_id", "no question selected")
	}
	return s.Answer(q.ID, choice)
}

func (s *Session) Selection(questionID uuid.UUID) (int, bool) {
	v, ok := s.answers[questionID]
	return v, ok
}

// Revealed reports whether correctness may be shown for a question.
func (s *Session) Revealed(questionID uuid.UUID) bool {
	return s.submitted || (s.mode == models.ModePractice && s.revealed[questionID])
}

func (s *Session) Unanswered() int {
	n := 0
	for _, q := range s.questions {
		if _, ok := s.answers[q.ID]; !ok {
			n++
		}
	}
	return n
}

// Correct is the running count of correct selections.
func (s *Session) Correct() int {
	return CountCorrect(s.questions, s.answers)
}

// Submit scores the session. It refuses while any question is unanswered.
func (s *Session) Submit() (Result, error) {
	if s.submitted {
		return s.result, ErrSubmitted
	}
	if len(s.questions) == 0 {
		return Result{}, ErrNoQuestions
	}
	if missing := s.Unanswered(); missing > 0 {
		return Result{}, &IncompleteError{Missing: missing}
	}
	correct := s.Correct()
	s.result = Result{
		Total:   len(s.questions),
		Correct: correct,
		Score:   Score(correct, len(s.questions)),
	}
	s.submitted = true
	return s.result, nil
}

func (s *Session) Submitted() bool { return s.submitted }

// Answers returns a copy of the selection map.
func (s *Session) Answers() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

func (s *Session) Questions() []models.Question { return s.questions }
