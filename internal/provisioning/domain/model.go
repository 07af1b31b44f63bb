// Package domain holds provisioning requests, results and the append-only attempt log.
package domain

import (
	"encoding/json"
	"time"

	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending               = "pending"
	StatusSuccess               = "success"
	StatusFailed                = "failed"
	StatusError                 = "error"
	StatusPartial               = "partial"
	StatusSkipped               = "skipped"
	StatusPendingImplementation = "pending_implementation"
)

var statuses = map[string]struct{}{
	StatusPending:               {},
	StatusSuccess:               {},
	StatusFailed:                {},
	StatusError:                 {},
	StatusPartial:               {},
	StatusSkipped:               {},
	StatusPendingImplementation: {},
}

func ValidStatus(s string) bool {
	_, ok := statuses[s]
	return ok
}

// Log is one provisioning attempt for one integration. Rows are never updated.
type Log struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"column:run_id;type:text;not null;index" json:"run_id"`
	UserID        snowflake.ID   `gorm:"column:user_id;not null;index" json:"user_id"`
	OrgID         snowflake.ID   `gorm:"column:organization_id;not null;index" json:"organization_id"`
	IntegrationID snowflake.ID   `gorm:"column:integration_id;not null" json:"integration_id"`
	Provider      string         `gorm:"type:text;not null" json:"provider"`
	Action        string         `gorm:"type:text;not null" json:"action"`
	Status        string         `gorm:"type:text;not null" json:"status"`
	Details       datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	ErrorMessage  string         `gorm:"column:error_message;type:text" json:"error,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (Log) TableName() string { return "provisioning_logs" }

// Request triggers provisioning for one user. IDs arrive as strings so blanks can be reported.
type Request struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	TeamID         string `json:"team_id,omitempty"`
}

type Result struct {
	Provider string          `json:"provider"`
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
}

type Response struct {
	Success bool     `json:"success"`
	RunID   string   `json:"run_id"`
	Results []Result `json:"results"`
}

type LogFilter struct {
	UserID   snowflake.ID
	Provider string
	Status   string
}

type ListLogsResponse struct {
	Logs []Log `json:"logs"`
	pagination.PageInfo
}
