package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, invite *Invite) error
	FindByTokenHash(ctx context.Context, db *gorm.DB, hash string) (*Invite, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string) ([]Invite, error)
	// MarkAccepted flips a pending, unexpired invite; false means another caller won or it lapsed.
	MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, invitedBy snowflake.ID, req CreateRequest) (*CreateResult, error)
	List(ctx context.Context, orgID snowflake.ID, status string) ([]Invite, error)
	// Lookup resolves a usable invite for the join page.
	Lookup(ctx context.Context, token string) (*LookupResult, error)
	// Accept consumes the invite inside tx; it succeeds at most once per token.
	Accept(ctx context.Context, tx *gorm.DB, token string) (*Invite, error)
	ExpirePending(ctx context.Context) (int64, error)
}

type CreateRequest struct {
	Email      string `json:"email"`
	TeamID     string `json:"team_id"`
	ManagerID  string `json:"manager_id"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

type CreateResult struct {
	Invite    Invite `json:"invite"`
	AcceptURL string `json:"accept_url"`
	Delivered bool   `json:"email_delivered"`
}

type LookupResult struct {
	Invite           Invite `json:"invite"`
	OrganizationName string `json:"organization_name"`
}

var (
	ErrNotFound            = errors.New("invite_not_found")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidToken        = errors.New("invalid_invite_token")
	ErrInvalidTeam         = errors.New("invalid_team_id")
	ErrInvalidManager      = errors.New("invalid_manager_id")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidOrganization = errors.New("invalid_organization_id")
)
