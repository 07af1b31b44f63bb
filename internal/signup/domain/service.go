package domain

import (
	"context"
	"errors"

	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
)

type Service interface {
	// Signup creates an organization, its founder and the default onboarding steps together.
	Signup(ctx context.Context, req Request) (*Result, error)
	// Join consumes an invite, creates the employee and schedules provisioning without waiting.
	Join(ctx context.Context, req JoinRequest) (*Result, error)
}

type Request struct {
	OrgName string `json:"org_name"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

type JoinRequest struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type Result struct {
	Organization *orgdomain.Organization `json:"organization"`
	User         *userdomain.User        `json:"user"`
}

// Provisioner runs after a new employee has been committed.
type Provisioner interface {
	Provision(ctx context.Context, user *userdomain.User) error
}

var ErrInvalidRequest = errors.New("invalid signup request")
