// backend/internal/resource/repository.go
package resource

import (
	"context"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, res *models.Resource) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(res).Error)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	var res models.Resource
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &res, nil
}

// Update writes every editable column, including nulls.
func (r *Repository) Update(ctx context.Context, res *models.Resource) error {
	result := r.db.WithContext(ctx).Model(&models.Resource{}).Where("id = ?", res.ID).
		Select("title", "type", "description", "external_url", "storage_path").
		Updates(res)
	if result.Error != nil {
		return apperr.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("resource not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Resource{}, "id = ?", id)
	if result.Error != nil {
		return apperr.Classify(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("resource not found")
	}
	return nil
}

func (r *Repository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Resource, error) {
	var out []models.Resource
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at desc").
		Find(&out).Error
	return out, apperr.Classify(err)
}
