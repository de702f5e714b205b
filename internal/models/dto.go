// backend/internal/models/dto.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionDTO is what a student sees while answering.
type QuestionDTO struct {
	ID           uuid.UUID  `json:"id"`
	Text         string     `json:"question_text"`
	Choices      []string   `json:"choices"`
	LectureID    *uuid.UUID `json:"lecture_id,omitempty"`
	CorrectIndex *int       `json:"correct_index,omitempty"` // only when revealed
	Explanation  *string    `json:"explanation,omitempty"`
}

// ToDTO strips the answer key unless reveal is set.
func (q Question) ToDTO(reveal bool) QuestionDTO {
	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)

	dto := QuestionDTO{
		ID:        q.ID,
		Text:      q.Text,
		Choices:   choices,
		LectureID: q.LectureID,
	}
	if reveal {
		ci := q.CorrectIndex
		dto.CorrectIndex = &ci
		dto.Explanation = q.Explanation
	}
	return dto
}

// Profile is the public part of a User.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FullName  *string   `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt string    `json:"created_at"`
}

func (u User) ToProfile() Profile {
	return Profile{
		ID:        u.ID,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
