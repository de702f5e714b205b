// backend/internal/auth/repository.go
package auth

import (
	"context"
	"strings"

	"course-portal/internal/apperr"
	"course-portal/internal/models"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	glog.V(2).Infof("looking up user with email: %s", email)

	err := r.db.WithContext(ctx).Where("lower(email) = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		return nil, apperr.Classify(err)
	}
	return &user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, apperr.Classify(err)
	}
	return &user, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return apperr.Classify(r.db.WithContext(ctx).Create(user).Error)
}
