// backend/internal/quiz/repository.go
package quiz

import (
	"context"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CourseQuestions returns the course's selectable questions, oldest first.
func (r *Repository) CourseQuestions(ctx context.Context, courseID uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND is_archived = ?", courseID, false).
		Order("created_at asc").
		Find(&questions).Error
	return questions, apperr.Classify(err)
}

func (r *Repository) QuestionsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Question, error) {
	var questions []models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error
	return questions, apperr.Classify(err)
}

func (r *Repository) CreateAttempt(ctx context.Context, q *models.Quiz) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(q).Error)
}

func (r *Repository) CreateOrder(ctx context.Context, rows []models.QuizQuestion) error {
	if len(rows) == 0 {
		return nil
	}
	return apperr.Classify(r.db.WithContext(ctx).Create(&rows).Error)
}

func (r *Repository) CreateAnswers(ctx context.Context, rows []models.QuizAnswer) error {
	if len(rows) == 0 {
		return nil
	}
	return apperr.Classify(r.db.WithContext(ctx).Create(&rows).Error)
}

// StartAttempt creates an open attempt together with its question order.
func (r *Repository) StartAttempt(ctx context.Context, q *models.Quiz, questionIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		rows := make([]models.QuizQuestion, len(questionIDs))
		for i, id := range questionIDs {
			rows[i] = models.QuizQuestion{QuizID: q.ID, QuestionID: id, OrderIndex: i}
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	return apperr.Classify(err)
}

func (r *Repository) GetAttempt(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var q models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Lecture").
		First(&q, "id = ?", id).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return &q, nil
}

// AttemptItems returns the attempt's questions in their fixed order.
func (r *Repository) AttemptItems(ctx context.Context, quizID uuid.UUID) ([]models.QuizQuestion, error) {
	var items []models.QuizQuestion
	err := r.db.WithContext(ctx).
		Preload("Question").
		Where("quiz_id = ?", quizID).
		Order("order_index asc").
		Find(&items).Error
	return items, apperr.Classify(err)
}

func (r *Repository) AttemptAnswers(ctx context.Context, quizID uuid.UUID) ([]models.QuizAnswer, error) {
	var answers []models.QuizAnswer
	err := r.db.WithContext(ctx).Where("quiz_id = ?", quizID).Find(&answers).Error
	return answers, apperr.Classify(err)
}

// UpsertAnswers writes answers keyed by (quiz_id, question_id).
func (r *Repository) UpsertAnswers(ctx context.Context, rows []models.QuizAnswer) error {
	if len(rows) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quiz_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selected_index", "is_correct", "answered_at"}),
		}).
		Create(&rows).Error
	return apperr.Classify(err)
}

func (r *Repository) MarkSubmitted(ctx context.Context, quizID uuid.UUID, res Result, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Quiz{}).
		Where("id = ?", quizID).
		Updates(map[string]interface{}{
			"submitted_at":    at,
			"total_questions": res.Total,
			"correct_count":   res.Correct,
			"score":           res.Score,
		})
	if result.Error != nil {
		return apperr.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("quiz not found")
	}
	return nil
}

// ListAttempts returns a user's attempts, newest first.
func (r *Repository) ListAttempts(ctx context.Context, userID uuid.UUID, courseID *uuid.UUID) ([]models.Quiz, error) {
	var attempts []models.Quiz
	q := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Lecture").
		Where("user_id = ?", userID)
	if courseID != nil {
		q = q.Where("course_id = ?", *courseID)
	}
	err := q.Order("started_at desc").Find(&attempts).Error
	return attempts, apperr.Classify(err)
}
