package model

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// RoleForCount returns the role of a new user given how many users exist
// before it. Only the very first user becomes an admin.
func RoleForCount(existing int64) Role {
	if existing == 0 {
		return RoleAdmin
	}
	return RoleUser
}

// HomePath is the landing page of the role.
func (r Role) HomePath() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/user"
}

// User represents a registered account. Rows are never updated after creation.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}
