// backend/internal/models/quiz.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuizMode string

const (
	ModePractice QuizMode = "practice"
	ModeExam     QuizMode = "exam"
)

func (m QuizMode) Valid() bool {
	return m == ModePractice || m == ModeExam
}

// Question is a bank entry. Archived questions stay referenced by old
// attempts but are never selected for new ones.
type Question struct {
	ID           uuid.UUID                  `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time                  `json:"created_at"`
	CourseID     uuid.UUID                  `json:"course_id" gorm:"type:uuid;not null;index"`
	Course       *Course                    `json:"course,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	LectureID    *uuid.UUID                 `json:"lecture_id" gorm:"type:uuid;index"`
	Lecture      *Lecture                   `json:"lecture,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Text         string                     `json:"question_text" gorm:"column:question_text;not null"`
	Choices      datatypes.JSONSlice[string] `json:"choices" gorm:"type:jsonb;not null"`
	CorrectIndex int                        `json:"correct_index" gorm:"not null"`
	Explanation  *string                    `json:"explanation"`
	IsArchived   bool                       `json:"is_archived" gorm:"not null;default:false;index"`
	CreatedBy    *uuid.UUID                 `json:"created_by,omitempty" gorm:"type:uuid"`
}

func (Question) TableName() string { return "mcq_questions" }

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// Quiz is one attempt. SubmittedAt stays nil until the attempt is scored.
type Quiz struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	CourseID       uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index"`
	Course         *Course    `json:"course,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	LectureID      *uuid.UUID `json:"lecture_id" gorm:"type:uuid"`
	Lecture        *Lecture   `json:"lecture,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Mode           QuizMode   `json:"mode" gorm:"type:varchar(16);not null"`
	Selection      *string    `json:"selection,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	CorrectCount   int        `json:"correct_count"`
	Score          int        `json:"score"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at"`
}

func (Quiz) TableName() string { return "mcq_quizzes" }

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// QuizQuestion fixes the order of an attempt's question set. The question
// foreign key restricts deletes, which is what drives the archive fallback.
type QuizQuestion struct {
	QuizID     uuid.UUID `json:"quiz_id" gorm:"type:uuid;primaryKey"`
	Quiz       *Quiz     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	QuestionID uuid.UUID `json:"question_id" gorm:"type:uuid;primaryKey"`
	Question   *Question `json:"question,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	OrderIndex int       `json:"order_index" gorm:"not null"`
}

func (QuizQuestion) TableName() string { return "mcq_quiz_questions" }

// QuizAnswer is keyed by (quiz, question); a nil SelectedIndex is an
// explicit blank that counts toward the total and never toward correct.
type QuizAnswer struct {
	QuizID        uuid.UUID `json:"quiz_id" gorm:"type:uuid;primaryKey"`
	Quiz          *Quiz     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	QuestionID    uuid.UUID `json:"question_id" gorm:"type:uuid;primaryKey"`
	SelectedIndex *int      `json:"selected_index"`
	IsCorrect     bool      `json:"is_correct"`
	AnsweredAt    time.Time `json:"answered_at"`
}

func (QuizAnswer) TableName() string { return "mcq_quiz_answers" }
