package provisioner

import (
	"context"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
)

// Pending records what a provider would do once its handler exists.
type Pending struct {
	provider string
	action   string
	plan     func(*teamdomain.Team) any
}

func NewGitHub() *Pending {
	return &Pending{
		provider: config.ProviderGitHub,
		action:   "add_to_teams",
		plan: func(t *teamdomain.Team) any {
			return map[string]any{"teams": t.GitHubConfig.Data().Teams}
		},
	}
}

func NewDeel() *Pending {
	return &Pending{
		provider: config.ProviderDeel,
		action:   "create_contract",
		plan: func(t *teamdomain.Team) any {
			return map[string]any{"contract_type": t.DeelConfig.Data().ContractType}
		},
	}
}

func (p *Pending) Provider() string { return p.provider }

func (p *Pending) Action() string { return p.action }

func (p *Pending) Provision(_ context.Context, target Target) (Outcome, error) {
	if target.Team == nil {
		return Outcome{Status: domain.StatusSkipped, Details: skipReason{Reason: "no_team"}}, nil
	}
	return Outcome{Status: domain.StatusPendingImplementation, Details: p.plan(target.Team)}, nil
}
