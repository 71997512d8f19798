package models

import (
	"time"

	"github.com/google/uuid"
)

// UserType represents the type of user
type UserType string

const (
	UserTypeBrand      UserType = "brand"
	UserTypeInfluencer UserType = "influencer"
	UserTypeAdmin      UserType = "admin"
)

// User represents a user account
type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	UserType      UserType  `json:"user_type" db:"user_type"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Profile holds the public-facing profile for a user. Brand and influencer
// accounts share one table; the role decides which fields are meaningful.
type Profile struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	CompanyName *string   `json:"company_name,omitempty" db:"company_name"`
	Industry    *string   `json:"industry,omitempty" db:"industry"`
	FirstName   *string   `json:"first_name,omitempty" db:"first_name"`
	LastName    *string   `json:"last_name,omitempty" db:"last_name"`
	Bio         *string   `json:"bio,omitempty" db:"bio"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	Niches      []string  `json:"niches,omitempty" db:"niches"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
