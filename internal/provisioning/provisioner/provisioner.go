// Package provisioner holds the per-provider provisioning handlers and their registry.
package provisioner

import (
	"context"
	"strings"

	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
)

// Target is everything a provisioner may read. Team is nil when the run has no team.
type Target struct {
	User       *userdomain.User
	Team       *teamdomain.Team
	Connection integrationdomain.Connection
}

type Outcome struct {
	Status  string
	Error   string
	Details any
}

type Provisioner interface {
	Provider() string
	Action() string
	Provision(ctx context.Context, target Target) (Outcome, error)
}

type Registry struct {
	provisioners map[string]Provisioner
}

func NewRegistry(provisioners ...Provisioner) *Registry {
	r := &Registry{provisioners: make(map[string]Provisioner, len(provisioners))}
	for _, p := range provisioners {
		r.Register(p)
	}
	return r
}

// Register replaces any provisioner already registered for the same provider.
func (r *Registry) Register(p Provisioner) {
	r.provisioners[strings.ToLower(p.Provider())] = p
}

func (r *Registry) Lookup(provider string) (Provisioner, bool) {
	p, ok := r.provisioners[strings.ToLower(strings.TrimSpace(provider))]
	return p, ok
}

type skipReason struct {
	Reason string `json:"reason"`
}
