package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Repo  domain.Repository
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	repo  domain.Repository
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		repo:  p.Repo,
		log:   p.Log.Named("organization.service"),
		clock: clk,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Organization, error) {
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.LogoURL != nil {
		logo := strings.TrimSpace(*req.LogoURL)
		if logo != "" {
			parsed, err := url.Parse(logo)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return nil, domain.ErrInvalidLogoURL
			}
		}
		fields["logo_url"] = logo
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// CompleteSetup stores the chosen providers, in the order given, and marks setup done.
func (s *Service) CompleteSetup(ctx context.Context, id snowflake.ID, req domain.SetupRequest) (*domain.Organization, error) {
	providers, err := NormalizeProviders(req.SelectedIntegrations)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, map[string]any{
		"selected_integrations": datatypes.JSONSlice[string](providers),
		"setup_completed":       true,
		"updated_at":            s.clock.Now(),
	}); err != nil {
		return nil, err
	}

	s.log.Info("organization setup completed",
		zap.String("org_id", id.String()),
		zap.Strings("providers", providers),
	)
	return s.Get(ctx, id)
}

var knownProviders = map[string]struct{}{
	config.ProviderSlack:      {},
	config.ProviderGitHub:     {},
	config.ProviderDeel:       {},
	config.ProviderQuickBooks: {},
	config.ProviderMercury:    {},
	config.ProviderRamp:       {},
}

// NormalizeProviders lowercases and dedupes provider names, keeping first-seen order.
func NormalizeProviders(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, p := range raw {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := knownProviders[p]; !ok {
			return nil, domain.ErrInvalidProvider
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// NewOrganization builds an organization with a slug unique against exists.
func NewOrganization(ctx context.Context, repo domain.Repository, genID *snowflake.Node, name string, now time.Time) (*domain.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	id := genID.Generate()
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}
	candidate := base
	taken, err := repo.SlugExists(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if taken {
		candidate = base + "-" + strings.ToLower(id.Base36())
	}

	return &domain.Organization{
		ID:                   id,
		Name:                 name,
		Slug:                 candidate,
		SelectedIntegrations: datatypes.JSONSlice[string]{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}
