package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, item *Integration) error
	Find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string) (*Integration, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, activeOnly bool) ([]Integration, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, isActive bool, updatedAt time.Time) (bool, error)
	ClearTokens(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, updatedAt time.Time) (bool, error)
	UpdateConfig(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, config []byte, updatedAt time.Time) (bool, error)
}

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*Summary, error)
	Get(ctx context.Context, orgID snowflake.ID, provider string) (*Connection, error)
	// ListActive returns decrypted active connections in persistence order.
	ListActive(ctx context.Context, orgID snowflake.ID) ([]Connection, error)
	List(ctx context.Context, orgID snowflake.ID) ([]Summary, error)
	SetActive(ctx context.Context, orgID snowflake.ID, provider string, isActive bool) (*Summary, error)
	Disconnect(ctx context.Context, orgID snowflake.ID, provider string) error
	UpdateSlackConfig(ctx context.Context, orgID snowflake.ID, cfg SlackConfig) error
}

type UpsertRequest struct {
	OrgID          snowflake.ID
	Provider       string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	ProviderData   any
	Config         any
}

var (
	ErrNotFound             = errors.New("integration_not_found")
	ErrInvalidProvider      = errors.New("invalid_provider")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidToken         = errors.New("invalid_access_token")
	ErrInvalidProviderData  = errors.New("invalid_provider_data")
	ErrInvalidConfig        = errors.New("invalid_config")
	ErrEncryptionKeyMissing = errors.New("encryption_key_missing")
)
