package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsModerator reports whether the role unlocks administrative actions.
func IsModerator(r Role) bool {
	return r == RoleModerator || r == RoleAdmin
}

// User is the account plus its profile row.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	Email     string    `json:"email" gorm:"not null;uniqueIndex"`
	Password  string    `json:"-" gorm:"not null"`
	FullName  *string   `json:"full_name"`
	Role      Role      `json:"role" gorm:"type:varchar(16);not null;default:student"`
}

func (User) TableName() string { return "profiles" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return nil
}
