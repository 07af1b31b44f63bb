package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListSteps(ctx context.Context, db *gorm.DB, orgID snowflake.ID, enabledOnly bool) ([]Step, error)
	FindStep(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Step, error)
	ReplaceSteps(ctx context.Context, db *gorm.DB, orgID snowflake.ID, steps []Step) error
	FindProgress(ctx context.Context, db *gorm.DB, userID, stepID snowflake.ID) (*Progress, error)
	ListProgress(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Progress, error)
	UpsertProgress(ctx context.Context, db *gorm.DB, progress *Progress) error
	CountCompleted(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (map[snowflake.ID]int, error)
}

type Service interface {
	ListSteps(ctx context.Context, orgID snowflake.ID) ([]Step, error)
	// SaveSteps replaces the organization's steps with req, in order.
	SaveSteps(ctx context.Context, orgID snowflake.ID, req SaveStepsRequest) ([]Step, error)
	// SeedDefaults writes the template steps using tx, or the service's db when tx is nil.
	SeedDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error

	GetWizard(ctx context.Context, userID snowflake.ID) (*Wizard, error)
	ViewDocument(ctx context.Context, userID, stepID snowflake.ID) (*Wizard, error)
	AcknowledgeDocument(ctx context.Context, userID, stepID snowflake.ID) (*Wizard, error)
	CompleteStep(ctx context.Context, userID, stepID snowflake.ID) (*CompleteResult, error)
	// Finish is the only operation that sets the user's onboarding_completed flag.
	Finish(ctx context.Context, userID snowflake.ID) (*Wizard, error)

	Progress(ctx context.Context, orgID snowflake.ID) (*ProgressOverview, error)
}

type StepInput struct {
	Title               string `json:"title" validate:"required,max=200"`
	Description         string `json:"description" validate:"max=2000"`
	Category            string `json:"category" validate:"max=100"`
	StepType            string `json:"step_type" validate:"required,oneof=integration document manual"`
	IntegrationProvider string `json:"integration_provider" validate:"required_if=StepType integration,omitempty,oneof=slack github deel quickbooks mercury ramp"`
	DocumentURL         string `json:"document_url" validate:"required_if=StepType document,omitempty,http_url"`
	Required            *bool  `json:"required"`
	IsEnabled           *bool  `json:"is_enabled"`
}

type SaveStepsRequest struct {
	Steps []StepInput `json:"steps" validate:"max=50,dive"`
}

var (
	ErrStepNotFound            = errors.New("onboarding_step_not_found")
	ErrInvalidOrganization     = errors.New("invalid_organization_id")
	ErrInvalidSteps            = errors.New("invalid_steps")
	ErrNotDocumentStep         = errors.New("not_document_step")
	ErrDocumentNotViewed       = errors.New("document_not_viewed")
	ErrDocumentNotAcknowledged = errors.New("document_not_acknowledged")
	ErrStepsIncomplete         = errors.New("onboarding_steps_incomplete")
	ErrStepOutOfOrder          = errors.New("onboarding_step_out_of_order")
)

type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// ValidationError lists every rejected field of a SaveSteps request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+":"+f.Code)
	}
	return ErrInvalidSteps.Error() + ": " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSteps }
