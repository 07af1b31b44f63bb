// Package domain contains the integration token store model.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Integration is one organization's connection to one provider. Tokens are stored encrypted.
type Integration struct {
	ID             snowflake.ID   `gorm:"primaryKey"`
	OrgID          snowflake.ID   `gorm:"column:organization_id;not null;uniqueIndex:ux_integrations_org_provider,priority:1"`
	Provider       string         `gorm:"type:text;not null;uniqueIndex:ux_integrations_org_provider,priority:2"`
	AccessToken    string         `gorm:"column:access_token;type:text"`
	RefreshToken   string         `gorm:"column:refresh_token;type:text"`
	TokenExpiresAt *time.Time     `gorm:"column:token_expires_at"`
	ProviderData   datatypes.JSON `gorm:"column:provider_data"`
	Config         datatypes.JSON `gorm:"column:config"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

// TableName sets the database table name.
func (Integration) TableName() string { return "integrations" }

// Connection is a decrypted, active integration handed to provisioners.
type Connection struct {
	ID             snowflake.ID
	OrgID          snowflake.ID
	Provider       string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	ProviderData   json.RawMessage
	Config         json.RawMessage
}

// Summary is the client-facing view of an integration; it never carries tokens.
type Summary struct {
	Provider       string          `json:"provider"`
	IsActive       bool            `json:"is_active"`
	ConnectedAt    time.Time       `json:"connected_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	TokenExpiresAt *time.Time      `json:"token_expires_at,omitempty"`
	ProviderData   json.RawMessage `json:"provider_data,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
}

// APIKeyStatus reports whether an API-key provider is reachable with the configured key.
type APIKeyStatus struct {
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
	KeyHint   string `json:"key_hint,omitempty"`
}
