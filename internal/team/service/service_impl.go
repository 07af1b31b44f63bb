package service

import (
	"context"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/team/domain"
	"github.com/abbydulski/Runway-sub000/internal/team/repository"
	"github.com/abbydulski/Runway-sub000/pkg/db/option"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Repo  repository.Repository
	GenID *snowflake.Node
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	repo  repository.Repository
	genID *snowflake.Node
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{repo: p.Repo, genID: p.GenID, log: p.Log.Named("team.service"), clock: clk}
}

func (s *Service) Create(ctx context.Context, orgID snowflake.ID, req domain.UpsertRequest) (*domain.Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	team := &domain.Team{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyConfigs(team, req)

	if err := s.repo.Create(ctx, team); err != nil {
		return nil, err
	}
	s.log.Info("team created",
		zap.String("org_id", orgID.String()),
		zap.String("team_id", team.ID.String()),
		zap.Int("slack_channels", len(team.SlackChannels())),
	)
	return team, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.Team, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	team, err := s.repo.FindOne(ctx, &domain.Team{ID: id, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, domain.ErrNotFound
	}
	return team, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]*domain.Team, error) {
	return s.repo.Find(ctx, &domain.Team{OrgID: orgID}, option.ApplyOrder("name asc"))
}

func (s *Service) Update(ctx context.Context, orgID, id snowflake.ID, req domain.UpsertRequest) (*domain.Team, error) {
	team, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		team.Name = name
	}
	applyConfigs(team, req)
	team.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, id.String(), map[string]any{
		"name":          team.Name,
		"slack_config":  team.SlackConfig,
		"github_config": team.GitHubConfig,
		"deel_config":   team.DeelConfig,
		"updated_at":    team.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id.String())
}

func applyConfigs(team *domain.Team, req domain.UpsertRequest) {
	if req.SlackConfig != nil {
		team.SlackConfig = datatypes.NewJSONType(domain.SlackConfig{Channels: cleanList(req.SlackConfig.Channels)})
	}
	if req.GitHubConfig != nil {
		team.GitHubConfig = datatypes.NewJSONType(domain.GitHubConfig{Teams: cleanList(req.GitHubConfig.Teams)})
	}
	if req.DeelConfig != nil {
		team.DeelConfig = datatypes.NewJSONType(domain.DeelConfig{ContractType: strings.TrimSpace(req.DeelConfig.ContractType)})
	}
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
