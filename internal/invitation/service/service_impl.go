package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	"github.com/abbydulski/Runway-sub000/internal/observability/metrics"
	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	"github.com/abbydulski/Runway-sub000/internal/providers/email"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	userservice "github.com/abbydulski/Runway-sub000/internal/user/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultInviteTTL = 7 * 24 * time.Hour

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Cfg     config.Config
	Orgs    orgdomain.Service
	Users   userdomain.Service
	Teams   teamdomain.Service
	Mailer  email.Provider     `optional:"true"`
	Limiter *ratelimit.Limiter `optional:"true"`
	Metrics *metrics.Metrics   `optional:"true"`
	Clock   clock.Clock        `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	orgs    orgdomain.Service
	users   userdomain.Service
	teams   teamdomain.Service
	mailer  email.Provider
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	clock   clock.Clock
	appURL  string
	ttl     time.Duration
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	mailer := p.Mailer
	if mailer == nil {
		mailer = email.NoOpProvider{}
	}
	ttl := p.Cfg.InviteTTL
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invitation.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		orgs:    p.Orgs,
		users:   p.Users,
		teams:   p.Teams,
		mailer:  mailer,
		limiter: p.Limiter,
		metrics: p.Metrics,
		clock:   clk,
		appURL:  strings.TrimRight(p.Cfg.AppURL, "/"),
		ttl:     ttl,
	}
}

func (s *Service) Create(ctx context.Context, orgID snowflake.ID, invitedBy snowflake.ID, req domain.CreateRequest) (*domain.CreateResult, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	address := userservice.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(address); err != nil || address == "" {
		return nil, domain.ErrInvalidEmail
	}

	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, address); err == nil {
		return nil, userdomain.ErrEmailTaken
	} else if !errors.Is(err, userdomain.ErrNotFound) {
		return nil, err
	}

	teamID, err := s.resolveTeam(ctx, orgID, req.TeamID)
	if err != nil {
		return nil, err
	}
	managerID, err := s.resolveManager(ctx, orgID, req.ManagerID)
	if err != nil {
		return nil, err
	}

	if res, _ := s.limiter.AllowInvite(ctx, orgID.String()); res != nil && !res.Allowed {
		return nil, ratelimit.ErrRateLimited
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	invite := domain.Invite{
		ID:         s.genID.Generate(),
		Email:      address,
		OrgID:      orgID,
		TeamID:     teamID,
		ManagerID:  managerID,
		Position:   strings.TrimSpace(req.Position),
		Department: strings.TrimSpace(req.Department),
		Status:     domain.StatusPending,
		TokenHash:  hashToken(token),
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if invitedBy != 0 {
		invite.InvitedBy = &invitedBy
	}
	if err := s.repo.Create(ctx, s.db, &invite); err != nil {
		return nil, err
	}

	result := &domain.CreateResult{
		Invite:    invite,
		AcceptURL: s.appURL + "/join?token=" + url.QueryEscape(token),
	}
	result.Delivered = s.deliver(ctx, org, invite, result.AcceptURL)
	return result, nil
}

// deliver sends the invite email; failures are logged and never fail the invite.
func (s *Service) deliver(ctx context.Context, org *orgdomain.Organization, invite domain.Invite, acceptURL string) bool {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("invite_id", invite.ID.String()),
		zap.String("provider", s.mailer.Name()),
	)
	html, err := email.Render("invite", email.InviteData{
		OrganizationName: org.Name,
		InviteeEmail:     invite.Email,
		Position:         invite.Position,
		AcceptURL:        acceptURL,
		ExpiresAt:        invite.ExpiresAt.Format("January 2, 2006"),
	})
	if err == nil {
		err = s.mailer.Send(ctx, email.Message{
			To:      []string{invite.Email},
			Subject: "You're invited to join " + org.Name,
			HTML:    html,
			Text:    "Accept your invite: " + acceptURL,
		})
	}
	delivered := err == nil
	s.metrics.RecordInviteSent(ctx, delivered)
	if !delivered {
		log.Warn("invite email not delivered", zap.Error(err))
		return false
	}
	log.Info("invite email sent")
	return true
}

func (s *Service) resolveTeam(ctx context.Context, orgID snowflake.ID, raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, domain.ErrInvalidTeam
	}
	if _, err := s.teams.Get(ctx, orgID, id); err != nil {
		if errors.Is(err, teamdomain.ErrNotFound) {
			return nil, domain.ErrInvalidTeam
		}
		return nil, err
	}
	return &id, nil
}

func (s *Service) resolveManager(ctx context.Context, orgID snowflake.ID, raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, domain.ErrInvalidManager
	}
	manager, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) {
			return nil, domain.ErrInvalidManager
		}
		return nil, err
	}
	if manager.OrgID != orgID {
		return nil, domain.ErrInvalidManager
	}
	return &id, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, status string) ([]domain.Invite, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.StatusPending, domain.StatusAccepted, domain.StatusExpired:
	default:
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.List(ctx, s.db, orgID, status)
}

func (s *Service) Lookup(ctx context.Context, token string) (*domain.LookupResult, error) {
	invite, err := s.find(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.Get(ctx, invite.OrgID)
	if err != nil {
		return nil, err
	}
	return &domain.LookupResult{Invite: *invite, OrganizationName: org.Name}, nil
}

func (s *Service) Accept(ctx context.Context, tx *gorm.DB, token string) (*domain.Invite, error) {
	if tx == nil {
		tx = s.db
	}
	invite, err := s.find(ctx, tx, token)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	ok, err := s.repo.MarkAccepted(ctx, tx, invite.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	invite.Status = domain.StatusAccepted
	invite.AcceptedAt = &now
	invite.UpdatedAt = now
	return invite, nil
}

func (s *Service) ExpirePending(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpirePending(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired pending invites", zap.Int64("count", n))
	}
	return n, nil
}

// find returns only usable invites; accepted, expired and unknown tokens are all not found.
func (s *Service) find(ctx context.Context, db *gorm.DB, token string) (*domain.Invite, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrInvalidToken
	}
	invite, err := s.repo.FindByTokenHash(ctx, db, hashToken(token))
	if err != nil {
		return nil, err
	}
	if invite == nil || !invite.Usable(s.clock.Now()) {
		return nil, domain.ErrNotFound
	}
	return invite, nil
}
