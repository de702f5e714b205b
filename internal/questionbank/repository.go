// backend/internal/questionbank/repository.go
package questionbank

import (
	"context"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const listLimit = 300

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateQuestions(ctx context.Context, questions []models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return apperr.Classify(r.db.WithContext(ctx).Create(&questions).Error)
}

func (r *Repository) ListQuestions(ctx context.Context, q ListQuery) ([]models.Question, error) {
	var questions []models.Question
	tx := r.db.WithContext(ctx).Preload("Course").Preload("Lecture")
	if q.CourseID != nil {
		tx = tx.Where("course_id = ?", *q.CourseID)
	}
	if q.LectureID != nil {
		tx = tx.Where("lecture_id = ?", *q.LectureID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		tx = tx.Where("question_text ILIKE ?", "%"+term+"%")
	}
	if !q.IncludeArchived {
		tx = tx.Where("is_archived = ?", false)
	}
	err := tx.Order("created_at desc").Limit(listLimit).Find(&questions).Error
	return questions, apperr.Classify(err)
}

func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &q, nil
}

func (r *Repository) UpdateQuestion(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("question not found")
	}
	return nil
}

// DeleteQuestion fails with ErrReferenced while attempts still point at
// the question.
func (r *Repository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Question{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("question not found")
	}
	return nil
}
