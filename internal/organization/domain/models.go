// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant.
type Organization struct {
	ID                   snowflake.ID                `gorm:"primaryKey" json:"id"`
	Name                 string                      `gorm:"type:text;not null" json:"name"`
	Slug                 string                      `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	FounderID            *snowflake.ID               `gorm:"column:founder_id" json:"founder_id,omitempty"`
	LogoURL              string                      `gorm:"column:logo_url;type:text" json:"logo_url,omitempty"`
	SelectedIntegrations datatypes.JSONSlice[string] `gorm:"column:selected_integrations" json:"selected_integrations"`
	SetupCompleted       bool                        `gorm:"column:setup_completed;not null;default:false" json:"setup_completed"`
	CreatedAt            time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time                   `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
