// backend/internal/quiz/service.go
package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/course"
	"course-portal/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	AttemptWriter
	CourseQuestions(ctx context.Context, courseID uuid.UUID) ([]models.Question, error)
	QuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Question, error)
	StartAttempt(ctx context.Context, q *models.Quiz, questionIDs []uuid.UUID) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	AttemptItems(ctx context.Context, quizID uuid.UUID) ([]models.QuizQuestion, error)
	AttemptAnswers(ctx context.Context, quizID uuid.UUID) ([]models.QuizAnswer, error)
	UpsertAnswers(ctx context.Context, rows []models.QuizAnswer) error
	MarkSubmitted(ctx context.Context, quizID uuid.UUID, res Result, at time.Time) error
	ListAttempts(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) ([]models.Quiz, error)
}

type LectureSource interface {
	ListLectures(ctx context.Context, courseID uuid.UUID) ([]models.Lecture, error)
}

// PositionStore remembers where a student left an open attempt.
type PositionStore interface {
	SetPosition(ctx context.Context, quizID, userID uuid.UUID, index int) error
	GetPosition(ctx context.Context, quizID, userID uuid.UUID) (int, error)
	ClearPosition(ctx context.Context, quizID, userID uuid.UUID) error
}

// Notifier pushes attempt events to open views.
type Notifier interface {
	BroadcastMessage(room string, messageType string, data interface{})
}

type Service struct {
	store     Store
	lectures  LectureSource
	positions PositionStore
	notifier  Notifier
	bridge    *Bridge
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(store Store, lectures LectureSource, positions PositionStore, notifier Notifier) *Service {
	return &Service{
		store:     store,
		lectures:  lectures,
		positions: positions,
		notifier:  notifier,
		bridge:    NewBridge(store),
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartResult is a fresh batched session.
type StartResult struct {
	Questions []models.QuestionDTO `json:"questions"`
	Selection string               `json:"selection"`
	Filters   Filters              `json:"filters"`
	Query     string               `json:"query"`
}

func (s *Service) selectQuestions(ctx context.Context, f Filters) ([]models.Question, []models.Lecture, error) {
	all, err := s.store.CourseQuestions(ctx, f.CourseID)
	if err != nil {
		return nil, nil, err
	}
	lectures, err := s.lectures.ListLectures(ctx, f.CourseID)
	if err != nil {
		return nil, nil, err
	}
	s.rngMu.Lock()
	picked, err := Select(all, f, LectureRanks(lectures), s.rng)
	s.rngMu.Unlock()
	return picked, lectures, err
}

func selectionLabel(f Filters, lectures []models.Lecture) string {
	byID := make(map[uuid.UUID]models.Lecture, len(lectures))
	for _, l := range lectures {
		byID[l.ID] = l
	}
	return f.SelectionLabel(func(id uuid.UUID) string {
		l, ok := byID[id]
		if !ok {
			return id.String()
		}
		if l.IsFormative() {
			return course.FormativeTitle(l.Number())
		}
		return l.Title
	})
}

// Start builds a batched session. Practice sessions carry the answer key
// so feedback can be shown per question; exam sessions do not.
func (s *Service) Start(ctx context.Context, f Filters) (*StartResult, error) {
	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	picked, lectures, err := s.selectQuestions(ctx, f)
	if err != nil {
		return nil, err
	}

	reveal := f.Mode == models.ModePractice
	dtos := make([]models.QuestionDTO, len(picked))
	for i, q := range picked {
		dtos[i] = q.ToDTO(reveal)
	}
	return &StartResult{
		Questions: dtos,
		Selection: selectionLabel(f, lectures),
		Filters:   f,
		Query:     f.Encode().Encode(),
	}, nil
}

type SubmitRequest struct {
	Filters     Filters           `json:"filters"`
	QuestionIDs []uuid.UUID       `json:"question_ids"`
	Answers     map[uuid.UUID]int `json:"answers"`
}

type ReviewItem struct {
	Question models.QuestionDTO `json:"question"`
	Selected int                `json:"selected"`
	Correct  bool               `json:"correct"`
}

type SubmitResult struct {
	Result
	QuizID *uuid.UUID   `json:"quiz_id,omitempty"`
	Review []ReviewItem `json:"review"`
}

// Submit scores a batched session and records it best-effort. The score
// is returned whether or not history was written.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	f := req.Filters.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(req.QuestionIDs) == 0 {
		return nil, apperr.Invalid("question_ids", "is required")
	}
	seen := make(map[uuid.UUID]bool, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		if seen[id] {
			return nil, apperr.Invalid("question_ids", "question "+id.String()+" is listed twice")
		}
		seen[id] = true
	}

	found, err := s.store.QuestionsByIDs(ctx, req.QuestionIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	ordered := make([]models.Question, 0, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			return nil, apperr.Invalid("question_ids", "unknown question "+id.String())
		}
		if q.CourseID != f.CourseID {
			return nil, apperr.Invalid("question_ids", "question "+id.String()+" belongs to another course")
		}
		ordered = append(ordered, q)
	}

	session := NewSession(f.Mode, ordered)
	for _, q := range ordered {
		if choice, ok := req.Answers[q.ID]; ok {
			if err := session.Answer(q.ID, choice); err != nil {
				return nil, err
			}
		}
	}
	result, err := session.Submit()
	if err != nil {
		return nil, err
	}

	out := &SubmitResult{Result: result}
	for _, q := range ordered {
		sel, _ := session.Selection(q.ID)
		out.Review = append(out.Review, ReviewItem{Question: q.ToDTO(true), Selected: sel, Correct: sel == q.CorrectIndex})
	}

	if userID == uuid.Nil {
		return out, nil
	}
	label := f.SelectionLabel(func(id uuid.UUID) string { return id.String() })
	if lectures, err := s.lectures.ListLectures(ctx, f.CourseID); err == nil {
		label = selectionLabel(f, lectures)
	}
	if id := s.bridge.Record(ctx, Attempt{UserID: userID, Filters: f, Selection: label, Session: session, Result: result}); id != uuid.Nil {
		out.QuizID = &id
	}
	return out, nil
}

// ownAttempt hides other users' attempts behind not-found.
func (s *Service) ownAttempt(ctx context.Context, userID, quizID uuid.UUID) (*models.Quiz, error) {
	q, err := s.store.GetAttempt(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, apperr.NotFound("quiz not found")
	}
	return q, nil
}

// CanWatch reports whether userID may follow an attempt's live events.
func (s *Service) CanWatch(ctx context.Context, userID, quizID uuid.UUID) error {
	_, err := s.ownAttempt(ctx, userID, quizID)
	return err
}

func (s *Service) notify(quizID uuid.UUID, messageType string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastMessage(quizID.String(), messageType, data)
}
