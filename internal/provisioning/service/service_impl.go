package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/provisioner"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Users        userdomain.Service
	Teams        teamdomain.Service
	Integrations integrationdomain.Service
	Registry     *provisioner.Registry
	Alerts       slack.Provider   `optional:"true"`
	Metrics      *metrics.Metrics `optional:"true"`
	Clock        clock.Clock      `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	users        userdomain.Service
	teams        teamdomain.Service
	integrations integrationdomain.Service
	registry     *provisioner.Registry
	alerts       slack.Provider
	metrics      *metrics.Metrics
	clock        clock.Clock
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("provisioning"),
		genID:        p.GenID,
		repo:         p.Repo,
		users:        p.Users,
		teams:        p.Teams,
		integrations: p.Integrations,
		registry:     p.Registry,
		alerts:       p.Alerts,
		metrics:      p.Metrics,
		clock:        clk,
	}
}

func (s *Service) Provision(ctx context.Context, req domain.Request) (*domain.Response, error) {
	userID, err := parseID(req.UserID, domain.ErrInvalidUserID)
	if err != nil {
		return nil, err
	}
	orgID, err := parseID(req.OrganizationID, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	var teamID snowflake.ID
	if strings.TrimSpace(req.TeamID) != "" {
		teamID, err = parseID(req.TeamID, domain.ErrInvalidTeamID)
		if err != nil {
			return nil, err
		}
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.OrgID != orgID {
		return nil, domain.ErrUserNotFound
	}

	team, err := s.loadTeam(ctx, orgID, teamID)
	if err != nil {
		return nil, err
	}

	conns, err := s.integrations.ListActive(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list active integrations: %w", err)
	}

	runID := ulid.Make().String()
	log := logger.WithContext(ctx, s.log).With(
		zap.String("run_id", runID),
		zap.String("user_id", userID.String()),
		zap.String("org_id", orgID.String()),
	)
	log.Info("provisioning started", zap.Int("integrations", len(conns)), zap.Bool("has_team", team != nil))

	results := make([]domain.Result, 0, len(conns))
	for _, conn := range conns {
		target := provisioner.Target{User: user, Team: team, Connection: conn}
		results = append(results, s.provisionOne(ctx, log, runID, target))
	}

	log.Info("provisioning finished", zap.Int("results", len(results)))
	s.alert(ctx, log, user, conns, results)
	return &domain.Response{Success: true, RunID: runID, Results: results}, nil
}

func (s *Service) loadTeam(ctx context.Context, orgID, teamID snowflake.ID) (*teamdomain.Team, error) {
	if teamID == 0 {
		return nil, nil
	}
	team, err := s.teams.Get(ctx, orgID, teamID)
	if errors.Is(err, teamdomain.ErrNotFound) {
		s.log.Warn("team not found; team-scoped provisioning skipped",
			zap.String("org_id", orgID.String()),
			zap.String("team_id", teamID.String()),
		)
		return nil, nil
	}
	return team, err
}

// provisionOne always yields one result and one log row, whatever the provisioner does.
func (s *Service) provisionOne(ctx context.Context, log *zap.Logger, runID string, target provisioner.Target) domain.Result {
	conn := target.Connection
	start := s.clock.Now()

	action := "none"
	var outcome provisioner.Outcome
	if p, ok := s.registry.Lookup(conn.Provider); ok {
		action = p.Action()
		outcome = s.run(ctx, p, target)
	} else {
		outcome = provisioner.Outcome{
			Status:  domain.StatusSkipped,
			Details: map[string]string{"reason": "no_handler"},
		}
	}
	if !domain.ValidStatus(outcome.Status) {
		outcome = provisioner.Outcome{Status: domain.StatusError, Error: fmt.Sprintf("unknown status %q", outcome.Status)}
	}

	var details json.RawMessage
	if outcome.Details != nil {
		raw, err := json.Marshal(outcome.Details)
		if err != nil {
			log.Warn("failed to encode provisioning details", zap.String("provider", conn.Provider), zap.Error(err))
		} else {
			details = raw
		}
	}

	entry := &domain.Log{
		ID:            s.genID.Generate(),
		RunID:         runID,
		UserID:        target.User.ID,
		OrgID:         conn.OrgID,
		IntegrationID: conn.ID,
		Provider:      conn.Provider,
		Action:        action,
		Status:        outcome.Status,
		Details:       datatypes.JSON(details),
		ErrorMessage:  outcome.Error,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(context.WithoutCancel(ctx), s.db, entry); err != nil {
		log.Error("failed to write provisioning log", zap.String("provider", conn.Provider), zap.Error(err))
	}

	elapsed := s.clock.Now().Sub(start)
	s.metrics.RecordProvisioning(ctx, conn.Provider, outcome.Status, elapsed)

	fields := []zap.Field{
		zap.String("provider", conn.Provider),
		zap.String("status", outcome.Status),
		zap.Duration("elapsed", elapsed),
	}
	if outcome.Error != "" {
		log.Warn("provider provisioning failed", append(fields, zap.String("error", outcome.Error))...)
	} else {
		log.Info("provider provisioned", fields...)
	}

	return domain.Result{
		Provider: conn.Provider,
		Status:   outcome.Status,
		Error:    outcome.Error,
		Details:  details,
	}
}

// run converts provisioner errors and panics into an error outcome.
func (s *Service) run(ctx context.Context, p provisioner.Provisioner, target provisioner.Target) (outcome provisioner.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("provisioner panicked", zap.String("provider", p.Provider()), zap.Any("panic", r), zap.Stack("stack"))
			outcome = provisioner.Outcome{Status: domain.StatusError, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	out, err := p.Provision(ctx, target)
	if err != nil {
		return provisioner.Outcome{Status: domain.StatusError, Error: err.Error(), Details: out.Details}
	}
	return out
}

func (s *Service) ListLogs(ctx context.Context, orgID snowflake.ID, filter domain.LogFilter, page pagination.Pagination) (domain.ListLogsResponse, error) {
	if orgID == 0 {
		return domain.ListLogsResponse{}, domain.ErrInvalidOrganization
	}
	filter.Provider = strings.ToLower(strings.TrimSpace(filter.Provider))
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListLogsResponse{}, domain.ErrInvalidStatus
	}

	cursor, err := pagination.DecodeCursor(page.PageToken)
	if err != nil {
		return domain.ListLogsResponse{}, err
	}
	limit := page.Limit()

	items, err := s.repo.List(ctx, s.db, orgID, filter, cursor, limit+1)
	if err != nil {
		return domain.ListLogsResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(l *domain.Log) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        l.ID.String(),
			CreatedAt: l.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	logs := make([]domain.Log, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return domain.ListLogsResponse{Logs: logs, PageInfo: pageInfo}, nil
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
