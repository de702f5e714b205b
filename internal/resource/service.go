// backend/internal/resource/service.go
package resource

import (
	"context"
	"io"
	"strings"
	"time"

	"course-portal/internal/apperr"
	"course-portal/internal/models"
	"course-portal/pkg/storage"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	warnOldFileKept = "resource updated, but the previous file could not be removed from storage"
	warnFileKept    = "resource deleted, but its file could not be removed from storage"
)

type Store interface {
	Create(ctx context.Context, res *models.Resource) error
	Get(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	Update(ctx context.Context, res *models.Resource) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Resource, error)
}

// LectureLister is the course side of a course page.
type LectureLister interface {
	ListLectures(ctx context.Context, courseID uuid.UUID) ([]models.Lecture, error)
}

type Service struct {
	store    Store
	lectures LectureLister
	blobs    storage.BlobStore
	urlTTL   time.Duration
	now      func() time.Time
}

func NewService(store Store, lectures LectureLister, blobs storage.BlobStore, urlTTL time.Duration) *Service {
	return &Service{
		store:    store,
		lectures: lectures,
		blobs:    blobs,
		urlTTL:   urlTTL,
		now:      time.Now,
	}
}

// Upload is a file attached to a create or update.
type Upload struct {
	Name string
	Body io.Reader
}

type CreateRequest struct {
	CourseID    uuid.UUID  `json:"course_id"`
	LectureID   *uuid.UUID `json:"lecture_id"`
	Title       string     `json:"title" validate:"required"`
	Type        string     `json:"type" validate:"required"`
	Description string     `json:"description"`
	ExternalURL string     `json:"external_url" validate:"omitempty,url"`
}

type UpdateRequest struct {
	Title         string `json:"title" validate:"required"`
	Type          string `json:"type" validate:"required"`
	Description   string `json:"description"`
	ExternalURL   string `json:"external_url" validate:"omitempty,url"`
	DeleteOldFile bool   `json:"delete_old_file"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) put(ctx context.Context, courseID uuid.UUID, lectureID *uuid.UUID, f *Upload) (string, error) {
	lectureSeg := "general"
	if lectureID != nil {
		lectureSeg = lectureID.String()
	}
	key := storage.ObjectKey(courseID.String(), lectureSeg, s.now(), f.Name)
	stored, err := s.blobs.Put(ctx, key, f.Body)
	if err != nil {
		return "", errors.Wrap(err, "upload file")
	}
	return stored, nil
}

// discard removes an object after a failed row write.
func (s *Service) discard(ctx context.Context, key string) {
	if err := s.blobs.Remove(ctx, key); err != nil {
		glog.Warningf("could not remove orphaned object %s: %v", key, err)
	}
}

func (s *Service) Create(ctx context.Context, uploader uuid.UUID, req CreateRequest, file *Upload) (*models.Resource, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.TrimSpace(req.Type)
	req.ExternalURL = strings.TrimSpace(req.ExternalURL)
	if req.CourseID == uuid.Nil {
		return nil, apperr.Invalid("course_id", "is required")
	}
	if err := apperr.Validate(req); err != nil {
		return nil, err
	}
	if file == nil && req.ExternalURL == "" {
		return nil, apperr.Invalid("file", "a file or an external link is required")
	}

	res := &models.Resource{
		CourseID:    req.CourseID,
		LectureID:   req.LectureID,
		Title:       req.Title,
		Type:        req.Type,
		Description: optional(req.Description),
		ExternalURL: optional(req.ExternalURL),
	}
	if uploader != uuid.Nil {
		res.UploaderID = &uploader
	}

	if file != nil {
		key, err := s.put(ctx, req.CourseID, req.LectureID, file)
		if err != nil {
			return nil, err
		}
		res.StoragePath = &key
	}

	if err := s.store.Create(ctx, res); err != nil {
		if res.StoragePath != nil {
			s.discard(ctx, *res.StoragePath)
		}
		return nil, err
	}
	glog.Infof("resource %s added to course %s", res.ID, res.CourseID)
	return res, nil
}

// Update edits a resource and optionally replaces its file. The returned
// warning is set when the old file outlived the update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest, file *Upload) (*models.Resource, string, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.TrimSpace(req.Type)
	req.ExternalURL = strings.TrimSpace(req.ExternalURL)
	if err := apperr.Validate(req); err != nil {
		return nil, "", err
	}

	res, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	prevStorage := res.StoragePath

	var uploaded string
	if file != nil {
		uploaded, err = s.put(ctx, res.CourseID, res.LectureID, file)
		if err != nil {
			return nil, "", err
		}
		res.StoragePath = &uploaded
	}

	res.Title = req.Title
	res.Type = req.Type
	res.Description = optional(req.Description)
	res.ExternalURL = optional(req.ExternalURL)
	if res.StoragePath == nil && res.ExternalURL == nil {
		return nil, "", apperr.Invalid("file", "a file or an external link is required")
	}

	if err := s.store.Update(ctx, res); err != nil {
		if uploaded != "" {
			s.discard(ctx, uploaded)
		}
		return nil, "", err
	}

	var warning string
	if uploaded != "" && req.DeleteOldFile && prevStorage != nil {
		if err := s.blobs.Remove(ctx, *prevStorage); err != nil {
			glog.Warningf("could not remove replaced object %s: %v", *prevStorage, err)
			warning = warnOldFileKept
		}
	}
	return res, warning, nil
}

// Delete removes the row, then its stored file.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return "", err
	}
	if res.StoragePath != nil {
		if err := s.blobs.Remove(ctx, *res.StoragePath); err != nil {
			glog.Warningf("could not remove object %s: %v", *res.StoragePath, err)
			return warnFileKept, nil
		}
	}
	return "", nil
}

// SignedURL issues a short-lived download link for a stored file.
func (s *Service) SignedURL(ctx context.Context, id uuid.UUID) (string, error) {
	res, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if res.StoragePath == nil {
		return "", apperr.Invalid("storage_path", "resource has no stored file")
	}
	return s.blobs.SignedURL(ctx, *res.StoragePath, s.urlTTL)
}
