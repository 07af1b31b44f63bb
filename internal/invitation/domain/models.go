// Package domain contains employee invites and their one-time tokens.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusExpired  = "expired"
)

// Invite grants one signup into an organization. Only the SHA-256 of the token is stored.
type Invite struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email      string        `gorm:"type:text;not null;index" json:"email"`
	OrgID      snowflake.ID  `gorm:"column:organization_id;not null;index" json:"organization_id"`
	TeamID     *snowflake.ID `gorm:"column:team_id" json:"team_id,omitempty"`
	ManagerID  *snowflake.ID `gorm:"column:manager_id" json:"manager_id,omitempty"`
	Position   string        `gorm:"type:text" json:"position,omitempty"`
	Department string        `gorm:"type:text" json:"department,omitempty"`
	Status     string        `gorm:"type:text;not null;index" json:"status"`
	TokenHash  string        `gorm:"column:invite_token;type:text;not null;uniqueIndex:ux_invites_token" json:"-"`
	InvitedBy  *snowflake.ID `gorm:"column:invited_by" json:"invited_by,omitempty"`
	ExpiresAt  time.Time     `gorm:"column:expires_at;not null" json:"expires_at"`
	AcceptedAt *time.Time    `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null" json:"updated_at"`
}

func (Invite) TableName() string { return "invites" }

// Usable reports whether the invite can still be accepted at now.
func (i Invite) Usable(now time.Time) bool {
	return i.Status == StatusPending && now.Before(i.ExpiresAt)
}
