// backend/internal/course/repository.go
package course

import (
	"context"

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

func (r *Repository) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.WithContext(ctx).
		Order("semester asc nulls last").
		Order("code asc").
		Find(&courses).Error
	return courses, apperr.Classify(err)
}

func (r *Repository) GetCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	var c models.Course
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &c, nil
}

func (r *Repository) CreateCourse(ctx context.Context, c *models.Course) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(c).Error)
}

// CreateCoursesIgnoringDuplicates inserts rows whose code is not taken yet.
func (r *Repository) CreateCoursesIgnoringDuplicates(ctx context.Context, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&courses).Error
	return apperr.Classify(err)
}

func (r *Repository) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Course{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("course not found")
	}
	return nil
}

func (r *Repository) ListLectures(ctx context.Context, courseID uuid.UUID) ([]models.Lecture, error) {
	var lectures []models.Lecture
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("kind asc").
		Order("order_index asc").
		Find(&lectures).Error
	return lectures, apperr.Classify(err)
}

func (r *Repository) GetLecture(ctx context.Context, id uuid.UUID) (*models.Lecture, error) {
	var l models.Lecture
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &l, nil
}

func (r *Repository) CreateLecture(ctx context.Context, l *models.Lecture) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(l).Error)
}

// CreateLecturesIgnoringDuplicates skips rows whose (course, kind, order)
// already exists.
func (r *Repository) CreateLecturesIgnoringDuplicates(ctx context.Context, lectures []models.Lecture) error {
	if len(lectures) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "kind"}, {Name: "order_index"}},
			DoNothing: true,
		}).
		Create(&lectures).Error
	return apperr.Classify(err)
}

// UpdateLecture writes the given columns onto one row.
func (r *Repository) UpdateLecture(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Lecture{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("lecture not found")
	}
	return nil
}

func (r *Repository) DeleteLecture(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Lecture{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("lecture not found")
	}
	return nil
}
