package quiz

import (
	"context"
	"time"

	"course-portal/internal/models"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// AttemptWriter is the history side of a finished batched attempt.
type AttemptWriter interface {
	CreateAttempt(ctx context.Context, q *models.Quiz) error
	CreateOrder(ctx context.Context, rows []models.QuizQuestion) error
	CreateAnswers(ctx context.Context, rows []models.QuizAnswer) error
}

// Bridge records finished attempts without ever failing the caller.
type Bridge struct {
	writer AttemptWriter
	now    func() time.Time
}

func NewBridge(writer AttemptWriter) *Bridge {
	return &Bridge{writer: writer, now: time.Now}
}

// Attempt is everything needed to record a scored session.
type Attempt struct {
	UserID    uuid.UUID
	Filters   Filters
	Selection string
	Session   *Session
	Result    Result
}

// Record writes the attempt, then its question order, then its answers.
// Every failure is logged and swallowed; the returned id is uuid.Nil when
// the attempt row itself could not be written.
func (b *Bridge) Record(ctx context.Context, a Attempt) uuid.UUID {
	now := b.now()
	selection := a.Selection
	row := &models.Quiz{
		UserID:         a.UserID,
		CourseID:       a.Filters.CourseID,
		LectureID:      a.Filters.SingleLectureID(),
		Mode:           a.Filters.Mode,
		Selection:      &selection,
		TotalQuestions: a.Result.Total,
		CorrectCount:   a.Result.Correct,
		Score:          a.Result.Score,
		StartedAt:      now,
		SubmittedAt:    &now,
	}
	if err := b.writer.CreateAttempt(ctx, row); err != nil {
		glog.Warningf("quiz history not recorded for user %s: %v", a.UserID, err)
		return uuid.Nil
	}

	questions := a.Session.Questions()
	order := make([]models.QuizQuestion, len(questions))
	for i, q := range questions {
		order[i] = models.QuizQuestion{QuizID: row.ID, QuestionID: q.ID, OrderIndex: i}
	}
	if err := b.writer.CreateOrder(ctx, order); err != nil {
		glog.Warningf("question order not recorded for quiz %s: %v", row.ID, err)
	}

	answers := make([]models.QuizAnswer, 0, len(questions))
	for _, q := range questions {
		sel, ok := a.Session.Selection(q.ID)
		ans := models.QuizAnswer{QuizID: row.ID, QuestionID: q.ID, AnsweredAt: now}
		if ok {
			ans.SelectedIndex = &sel
			ans.IsCorrect = sel == q.CorrectIndex
		}
		answers = append(answers, ans)
	}
	if err := b.writer.CreateAnswers(ctx, answers); err != nil {
		glog.Warningf("answers not recorded for quiz %s: %v", row.ID, err)
	}
	return row.ID
}
