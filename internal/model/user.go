package model

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is a user's authorization role.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User is an account. Authentication is API-key based: the key is
// Argon2id-hashed at rest and exchanged for a short-lived JWT.
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Role       UserRole  `json:"role"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// SkillAllocation is one allocated skill level for a user.
// Level is always in [1, maxLevel]; unallocated skills have no row.
type SkillAllocation struct {
	UserID    uuid.UUID `json:"user_id"`
	SkillID   string    `json:"skill_id"`
	Level     int       `json:"level"`
	UpdatedAt time.Time `json:"updated_at"`
}
