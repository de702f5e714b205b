// backend/internal/questionbank/service.go
package questionbank

import (
	"context"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

type Store interface {
	CreateQuestions(ctx context.Context, questions []models.Question) error
	ListQuestions(ctx context.Context, q ListQuery) ([]models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	UpdateQuestion(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type PreviewResult struct {
	Drafts      []Draft `json:"drafts"`
	NeedsReview int     `json:"needs_review"`
}

func Preview(raw string) PreviewResult {
	drafts := Parse(raw)
	if drafts == nil {
		drafts = []Draft{}
	}
	return PreviewResult{Drafts: drafts, NeedsReview: ReviewCount(drafts)}
}

// DraftInput is a draft after the moderator reviewed it.
type DraftInput struct {
	Question     string   `json:"question"`
	Choices      []string `json:"choices"`
	CorrectIndex *int     `json:"correct_index"`
	Explanation  *string  `json:"explanation"`
}

type SaveRequest struct {
	CourseID  uuid.UUID    `json:"course_id"`
	LectureID *uuid.UUID   `json:"lecture_id"`
	Drafts    []DraftInput `json:"drafts"`
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// SaveDrafts inserts reviewed drafts in one batch. Every draft needs a
// correct choice picked.
func (s *Service) SaveDrafts(ctx context.Context, userID uuid.UUID, req SaveRequest) (int, error) {
	if req.CourseID == uuid.Nil {
		return 0, apperr.Invalid("course_id", "choose a course first")
	}
	if len(req.Drafts) == 0 {
		return 0, apperr.Invalid("drafts", "nothing to save; run the preview first")
	}

	var createdBy *uuid.UUID
	if userID != uuid.Nil {
		createdBy = &userID
	}
	rows := make([]models.Question, len(req.Drafts))
	for i, d := range req.Drafts {
		if d.CorrectIndex == nil || *d.CorrectIndex < 0 || *d.CorrectIndex >= len(d.Choices) {
			return 0, apperr.Invalid("correct_index", "pick the correct choice for every question")
		}
		rows[i] = models.Question{
			CourseID:     req.CourseID,
			LectureID:    req.LectureID,
			Text:         d.Question,
			Choices:      datatypes.JSONSlice[string](d.Choices),
			CorrectIndex: *d.CorrectIndex,
			Explanation:  trimmedOrNil(d.Explanation),
			CreatedBy:    createdBy,
		}
	}
	if err := s.store.CreateQuestions(ctx, rows); err != nil {
		return 0, errors.Wrap(err, "save questions")
	}
	glog.Infof("saved %d imported questions for course %s", len(rows), req.CourseID)
	return len(rows), nil
}

type ListQuery struct {
	CourseID        *uuid.UUID
	LectureID       *uuid.UUID
	Search          string
	IncludeArchived bool
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Question, error) {
	return s.store.ListQuestions(ctx, q)
}

type EditRequest struct {
	Text         string   `json:"question_text"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  *string  `json:"explanation"`
}

// Edit rewrites a question. Blank choices are dropped and the correct
// index is clamped into the remaining range.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, req EditRequest) (*models.Question, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.Invalid("question_text", "is required")
	}
	var choices []string
	for _, c := range req.Choices {
		if c = strings.TrimSpace(c); c != "" {
			choices = append(choices, c)
		}
	}
	if len(choices) < minChoices {
		return nil, apperr.Invalid("choices", "need at least two choices")
	}
	if len(choices) > maxChoices {
		return nil, apperr.Invalid("choices", "at most six choices")
	}
	correct := req.CorrectIndex
	if correct < 0 {
		correct = 0
	}
	if correct > len(choices)-1 {
		correct = len(choices) - 1
	}

	fields := map[string]interface{}{
		"question_text": text,
		"choices":       datatypes.JSONSlice[string](choices),
		"correct_index": correct,
		"explanation":   trimmedOrNil(req.Explanation),
	}
	if err := s.store.UpdateQuestion(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.store.GetQuestion(ctx, id)
}

// SetArchived hides or restores a question for new attempts.
func (s *Service) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return s.store.UpdateQuestion(ctx, id, map[string]interface{}{"is_archived": archived})
}

type Outcome string

const (
	Deleted  Outcome = "deleted"
	Archived Outcome = "archived"
	Failed   Outcome = "failed"
)

// DeleteResult is the tagged outcome of a delete. Err is set only when
// the outcome is Failed.
type DeleteResult struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

// Delete removes a question. A question still referenced by attempts is
// archived instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) DeleteResult {
	err := s.store.DeleteQuestion(ctx, id)
	if err == nil {
		return DeleteResult{Outcome: Deleted, Message: "question deleted"}
	}
	if !apperr.IsReferenced(err) {
		return DeleteResult{Outcome: Failed, Message: err.Error(), Err: err}
	}

	if aerr := s.SetArchived(ctx, id, true); aerr != nil {
		glog.Warningf("question %s is referenced and could not be archived: %v", id, aerr)
		return DeleteResult{
			Outcome: Failed,
			Message: "question is used by past attempts and could not be hidden",
			Err:     errors.Wrap(aerr, "archive referenced question"),
		}
	}
	return DeleteResult{Outcome: Archived, Message: "question is used by past attempts; it was hidden from students instead"}
}
