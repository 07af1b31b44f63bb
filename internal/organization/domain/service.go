package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*Organization, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Organization, error)
	CompleteSetup(ctx context.Context, id snowflake.ID, req SetupRequest) (*Organization, error)
}

type UpdateRequest struct {
	Name    *string `json:"name"`
	LogoURL *string `json:"logo_url"`
}

// SetupRequest carries the ordered list of providers picked during setup.
type SetupRequest struct {
	SelectedIntegrations []string `json:"selected_integrations"`
}

var (
	ErrNotFound        = errors.New("organization_not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrInvalidLogoURL  = errors.New("invalid_logo_url")
)
