package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time `json:"created_at"`
	Code        string    `json:"code" gorm:"not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"not null"`
	Semester    *int      `json:"semester"`
	Description *string   `json:"description"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type LectureKind string

const (
	KindLecture   LectureKind = "lecture"
	KindFormative LectureKind = "formative"
)

// Lecture is either a lecture or a formative grouping of a course.
// Order keys are unique per (course, kind).
type Lecture struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time   `json:"created_at"`
	CourseID    uuid.UUID   `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_lecture_order,priority:1"`
	Course      *Course     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Kind        LectureKind `json:"kind" gorm:"type:varchar(16);not null;default:lecture;uniqueIndex:idx_lecture_order,priority:2"`
	OrderIndex  int         `json:"order_index" gorm:"not null;uniqueIndex:idx_lecture_order,priority:3"`
	FormativeNo *int        `json:"formative_no"`
	Title       string      `json:"title" gorm:"not null"`
}

func (l *Lecture) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l Lecture) IsFormative() bool {
	return l.Kind == KindFormative
}

// Number is the display number: formative_no for formatives, falling back
// to the order key.
func (l Lecture) Number() int {
	if l.IsFormative() && l.FormativeNo != nil {
		return *l.FormativeNo
	}
	return l.OrderIndex
}

// Resource carries either a stored file, an external link, or both.
// A nil LectureID means general course content.
type Resource struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt   time.Time  `json:"created_at"`
	CourseID    uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index"`
	Course      *Course    `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	LectureID   *uuid.UUID `json:"lecture_id" gorm:"type:uuid;index"`
	Lecture     *Lecture   `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Title       string     `json:"title" gorm:"not null"`
	Type        string     `json:"type" gorm:"not null"`
	Description *string    `json:"description"`
	StoragePath *string    `json:"storage_path"`
	ExternalURL *string    `json:"external_url"`
	UploaderID  *uuid.UUID `json:"uploader_id,omitempty" gorm:"type:uuid"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
