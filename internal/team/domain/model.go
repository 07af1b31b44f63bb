// Package domain contains the team model and its typed per-provider configuration.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SlackConfig lists channels a team member is added to. Names may carry a leading '#'.
type SlackConfig struct {
	Channels []string `json:"channels"`
}

type GitHubConfig struct {
	Teams []string `json:"teams"`
}

type DeelConfig struct {
	ContractType string `json:"contract_type"`
}

type Team struct {
	ID           snowflake.ID                     `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID                     `gorm:"column:organization_id;not null;index" json:"organization_id"`
	Name         string                           `gorm:"type:text;not null" json:"name"`
	SlackConfig  datatypes.JSONType[SlackConfig]  `gorm:"column:slack_config" json:"slack_config"`
	GitHubConfig datatypes.JSONType[GitHubConfig] `gorm:"column:github_config" json:"github_config"`
	DeelConfig   datatypes.JSONType[DeelConfig]   `gorm:"column:deel_config" json:"deel_config"`
	CreatedAt    time.Time                        `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Team) TableName() string { return "teams" }

// SlackChannels returns the configured channel names, never nil.
func (t Team) SlackChannels() []string {
	channels := t.SlackConfig.Data().Channels
	if channels == nil {
		return []string{}
	}
	return channels
}

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req UpsertRequest) (*Team, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Team, error)
	List(ctx context.Context, orgID snowflake.ID) ([]*Team, error)
	Update(ctx context.Context, orgID, id snowflake.ID, req UpsertRequest) (*Team, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}

type UpsertRequest struct {
	Name         string        `json:"name"`
	SlackConfig  *SlackConfig  `json:"slack_config"`
	GitHubConfig *GitHubConfig `json:"github_config"`
	DeelConfig   *DeelConfig   `json:"deel_config"`
}

var (
	ErrNotFound    = errors.New("team_not_found")
	ErrInvalidName = errors.New("invalid_name")
)
