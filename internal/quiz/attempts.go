package quiz

import (
	"context"
	"strconv"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const letters = "ABCDEF"

// Letter labels a choice index; past F it falls back to the 1-based number.
func Letter(i int) string {
	if i >= 0 && i < len(letters) {
		return letters[i : i+1]
	}
	return strconv.Itoa(i + 1)
}

// Feedback is shown right after a practice-mode answer.
type Feedback struct {
	Correct       bool    `json:"correct"`
	CorrectIndex  int     `json:"correct_index"`
	CorrectLetter string  `json:"correct_letter"`
	Explanation   *string `json:"explanation,omitempty"`
}

func feedbackFor(q models.Question, selected int) *Feedback {
	return &Feedback{
		Correct:       selected == q.CorrectIndex,
		CorrectIndex:  q.CorrectIndex,
		CorrectLetter: Letter(q.CorrectIndex),
		Explanation:   q.Explanation,
	}
}

type AttemptItem struct {
	Index    int                `json:"index"`
	Question models.QuestionDTO `json:"question"`
	Selected *int               `json:"selected"`
	Feedback *Feedback          `json:"feedback,omitempty"`
}

type AttemptView struct {
	Quiz     *models.Quiz  `json:"quiz"`
	Items    []AttemptItem `json:"items"`
	Answered int           `json:"answered"`
	Total    int           `json:"total"`
	Position int           `json:"position"`
}

// StartAttempt creates an open persisted attempt with its question order.
func (s *Service) StartAttempt(ctx context.Context, userID uuid.UUID, f Filters) (*models.Quiz, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	picked, lectures, err := s.selectQuestions(ctx, f)
	if err != nil {
		return nil, err
	}

	label := selectionLabel(f, lectures)
	q := &models.Quiz{
		UserID:         userID,
		CourseID:       f.CourseID,
		LectureID:      f.SingleLectureID(),
		Mode:           f.Mode,
		Selection:      &label,
		TotalQuestions: len(picked),
		StartedAt:      s.now(),
	}
	ids := make([]uuid.UUID, len(picked))
	for i, p := range picked {
		ids[i] = p.ID
	}
	if err := s.store.StartAttempt(ctx, q, ids); err != nil {
		return nil, err
	}
	glog.V(2).Infof("user %s started attempt %s with %d questions", userID, q.ID, len(ids))
	return q, nil
}

func selections(answers []models.QuizAnswer) map[uuid.UUID]*int {
	out := make(map[uuid.UUID]*int, len(answers))
	for _, a := range answers {
		out[a.QuestionID] = a.SelectedIndex
	}
	return out
}

// LoadAttempt returns an open attempt for answering. A submitted attempt
// yields ErrSubmitted so the caller can send the student to its results.
func (s *Service) LoadAttempt(ctx context.Context, userID, quizID uuid.UUID) (*AttemptView, error) {
	q, err := s.ownAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if q.SubmittedAt != nil {
		return nil, ErrSubmitted
	}
	items, err := s.store.AttemptItems(ctx, quizID)
	if err != nil {
		return nil, err
	}
	answers, err := s.store.AttemptAnswers(ctx, quizID)
	if err != nil {
		return nil, err
	}
	sel := selections(answers)
	practice := q.Mode == models.ModePractice

	view := &AttemptView{Quiz: q, Total: len(items)}
	for i, it := range items {
		if it.Question == nil {
			continue
		}
		item := AttemptItem{Index: i, Selected: sel[it.QuestionID]}
		answered := item.Selected != nil
		item.Question = it.Question.ToDTO(practice && answered)
		if answered {
			view.Answered++
			if practice {
				item.Feedback = feedbackFor(*it.Question, *item.Selected)
			}
		}
		view.Items = append(view.Items, item)
	}

	if s.positions != nil {
		pos, err := s.positions.GetPosition(ctx, quizID, userID)
		if err != nil {
			glog.V(2).Infof("no saved position for attempt %s: %v", quizID, err)
		}
		if len(items) > 0 {
			view.Position = clamp(pos, 0, len(items)-1)
		}
	}
	return view, nil
}

func (s *Service) openAttempt(ctx context.Context, userID, quizID uuid.UUID) (*models.Quiz, []models.QuizQuestion, error) {
	q, err := s.ownAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, nil, err
	}
	if q.SubmittedAt != nil {
		return nil, nil, ErrSubmitted
	}
	items, err := s.store.AttemptItems(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	return q, items, nil
}

type AnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id"`
	Choice     int       `json:"choice"`
}

// Answer stores one selection immediately, replacing any earlier one.
// Practice attempts get feedback back; exam attempts get nil.
func (s *Service) Answer(ctx context.Context, userID, quizID uuid.UUID, req AnswerRequest) (*Feedback, error) {
	q, items, err := s.openAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	var question *models.Question
	for _, it := range items {
		if it.QuestionID == req.QuestionID {
			question = it.Question
			break
		}
	}
	if question == nil {
		return nil, apperr.Invalid("question_id", "question is not part of this attempt")
	}
	if req.Choice < 0 || req.Choice >= len(question.Choices) {
		return nil, apperr.Invalid("choice", "out of range")
	}

	choice := req.Choice
	row := models.QuizAnswer{
		QuizID:        quizID,
		QuestionID:    req.QuestionID,
		SelectedIndex: &choice,
		IsCorrect:     choice == question.CorrectIndex,
		AnsweredAt:    s.now(),
	}
	if err := s.store.UpsertAnswers(ctx, []models.QuizAnswer{row}); err != nil {
		return nil, err
	}

	s.notify(quizID, "answer_saved", map[string]interface{}{
		"question_id":    req.QuestionID,
		"selected_index": choice,
	})
	if q.Mode != models.ModePractice {
		return nil, nil
	}
	return feedbackFor(*question, choice), nil
}

// SavePosition remembers the question index for resuming later.
func (s *Service) SavePosition(ctx context.Context, userID, quizID uuid.UUID, index int) error {
	_, items, err := s.openAttempt(ctx, userID, quizID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return apperr.Invalid("index", "out of range")
	}
	if s.positions == nil {
		return nil
	}
	return s.positions.SetPosition(ctx, quizID, userID, index)
}

// SubmitAttempt scores a persisted attempt. Questions without an answer
// row refuse the submission unless fillBlanks is set, in which case blank
// rows are written first; blanks count toward the total only.
func (s *Service) SubmitAttempt(ctx context.Context, userID, quizID uuid.UUID, fillBlanks bool) (Result, error) {
	_, items, err := s.openAttempt(ctx, userID, quizID)
	if err != nil {
		return Result{}, err
	}
	answers, err := s.store.AttemptAnswers(ctx, quizID)
	if err != nil {
		return Result{}, err
	}
	sel := make(map[uuid.UUID]*int, len(answers))
	for _, a := range answers {
		sel[a.QuestionID] = a.SelectedIndex
	}

	var blanks []models.QuizAnswer
	now := s.now()
	for _, it := range items {
		if _, ok := sel[it.QuestionID]; !ok {
			blanks = append(blanks, models.QuizAnswer{QuizID: quizID, QuestionID: it.QuestionID, AnsweredAt: now})
		}
	}
	if len(blanks) > 0 && !fillBlanks {
		return Result{}, &IncompleteError{Missing: len(blanks)}
	}
	if err := s.store.UpsertAnswers(ctx, blanks); err != nil {
		glog.Warningf("blank answers not recorded for attempt %s: %v", quizID, err)
	}

	correct := 0
	for _, it := range items {
		if it.Question == nil {
			continue
		}
		if v := sel[it.QuestionID]; v != nil && *v == it.Question.CorrectIndex {
			correct++
		}
	}
	res := Result{Total: len(items), Correct: correct, Score: Score(correct, len(items))}
	if err := s.store.MarkSubmitted(ctx, quizID, res, now); err != nil {
		return Result{}, errors.Wrap(err, "submit attempt")
	}

	if s.positions != nil {
		if err := s.positions.ClearPosition(ctx, quizID, userID); err != nil {
			glog.V(2).Infof("could not clear position for attempt %s: %v", quizID, err)
		}
	}
	s.notify(quizID, "quiz_submitted", res)
	glog.V(2).Infof("attempt %s submitted: %d/%d", quizID, res.Correct, res.Total)
	return res, nil
}
