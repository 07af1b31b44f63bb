// Package domain contains the user profile model.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleFounder  = "founder"
	RoleEmployee = "employee"
)

// User is a member of exactly one organization.
type User struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email               string        `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Name                string        `gorm:"type:text;not null" json:"name"`
	Role                string        `gorm:"type:text;not null" json:"role"`
	OrgID               snowflake.ID  `gorm:"column:organization_id;not null;index" json:"organization_id"`
	TeamID              *snowflake.ID `gorm:"column:team_id;index" json:"team_id,omitempty"`
	ManagerID           *snowflake.ID `gorm:"column:manager_id" json:"manager_id,omitempty"`
	Position            string        `gorm:"type:text" json:"position,omitempty"`
	Department          string        `gorm:"type:text" json:"department,omitempty"`
	OnboardingCompleted bool          `gorm:"column:onboarding_completed;not null;default:false" json:"onboarding_completed"`
	CreatedAt           time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

func (u User) IsFounder() bool { return u.Role == RoleFounder }

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID, role string) ([]*User, error)
	// MarkOnboardingCompleted flips onboarding_completed once; it reports whether this call flipped it.
	MarkOnboardingCompleted(ctx context.Context, id snowflake.ID) (bool, error)
}

var (
	ErrNotFound     = errors.New("user_not_found")
	ErrEmailTaken   = errors.New("email_taken")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidName  = errors.New("invalid_name")
)
