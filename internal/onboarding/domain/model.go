// Package domain contains onboarding steps, per-user progress and the derived wizard view.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StepTypeIntegration = "integration"
	StepTypeDocument    = "document"
	StepTypeManual      = "manual"

	StateIncomplete = "incomplete"
	StateCompleted  = "completed"

	DocumentNotViewed    = "not_viewed"
	DocumentViewing      = "viewing"
	DocumentAcknowledged = "acknowledged"
)

// Step is an organization-scoped onboarding step. Saving the setup replaces every row.
type Step struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID               snowflake.ID `gorm:"column:organization_id;not null;index:ix_onboarding_steps_org_order,priority:1" json:"organization_id"`
	Title               string       `gorm:"type:text;not null" json:"title"`
	Description         string       `gorm:"type:text" json:"description,omitempty"`
	Category            string       `gorm:"type:text" json:"category,omitempty"`
	StepType            string       `gorm:"column:step_type;type:text;not null" json:"step_type"`
	IntegrationProvider string       `gorm:"column:integration_provider;type:text" json:"integration_provider,omitempty"`
	DocumentURL         string       `gorm:"column:document_url;type:text" json:"document_url,omitempty"`
	StepOrder           int          `gorm:"column:step_order;not null;index:ix_onboarding_steps_org_order,priority:2" json:"step_order"`
	Required            bool         `gorm:"not null;default:true" json:"required"`
	IsEnabled           bool         `gorm:"column:is_enabled;not null;default:true" json:"is_enabled"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

func (Step) TableName() string { return "onboarding_steps" }

// Progress is one user's state on one step, keyed by (user_id, step_id).
type Progress struct {
	UserID           snowflake.ID `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	StepID           snowflake.ID `gorm:"column:step_id;primaryKey;autoIncrement:false"`
	Completed        bool         `gorm:"not null;default:false"`
	CompletedAt      *time.Time   `gorm:"column:completed_at"`
	DocumentViewedAt *time.Time   `gorm:"column:document_viewed_at"`
	Acknowledged     bool         `gorm:"not null;default:false"`
	CreatedAt        time.Time    `gorm:"not null"`
	UpdatedAt        time.Time    `gorm:"not null"`
}

func (Progress) TableName() string { return "user_onboarding_progress" }

// DocumentState derives the document sub-state; a missing row is not_viewed.
func (p *Progress) DocumentState() string {
	switch {
	case p == nil:
		return DocumentNotViewed
	case p.Acknowledged:
		return DocumentAcknowledged
	case p.DocumentViewedAt != nil:
		return DocumentViewing
	default:
		return DocumentNotViewed
	}
}

func (s Step) IsSlackIntegration() bool {
	return s.StepType == StepTypeIntegration && s.IntegrationProvider == "slack"
}
