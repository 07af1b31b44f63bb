package signup

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	onboardingdomain "github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	orgservice "github.com/abbydulski/Runway-sub000/internal/organization/service"
	"github.com/abbydulski/Runway-sub000/internal/signup/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	userrepo "github.com/abbydulski/Runway-sub000/internal/user/repository"
	userservice "github.com/abbydulski/Runway-sub000/internal/user/service"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Orgs        orgdomain.Repository
	Users       userrepo.Repository
	Onboarding  onboardingdomain.Service
	Invites     invitationdomain.Service
	Provisioner domain.Provisioner
	Clock       clock.Clock `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	orgs        orgdomain.Repository
	users       userrepo.Repository
	onboarding  onboardingdomain.Service
	invites     invitationdomain.Service
	provisioner domain.Provisioner
	clock       clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	provisioner := p.Provisioner
	if provisioner == nil {
		provisioner = NewNoopProvisioner()
	}
	return &service{
		db:          p.DB,
		log:         p.Log.Named("signup.service"),
		genID:       p.GenID,
		orgs:        p.Orgs,
		users:       p.Users,
		onboarding:  p.Onboarding,
		invites:     p.Invites,
		provisioner: provisioner,
		clock:       clk,
	}
}

func (s *service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	name := strings.TrimSpace(req.Name)
	address, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, userdomain.ErrInvalidName
	}
	orgName := strings.TrimSpace(req.OrgName)
	if orgName == "" {
		return nil, domain.ErrInvalidRequest
	}
	if err := s.ensureEmailFree(ctx, address); err != nil {
		return nil, err
	}

	var result domain.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		orgs := s.orgs.WithTx(tx)
		org, err := orgservice.NewOrganization(ctx, orgs, s.genID, orgName, now)
		if err != nil {
			return err
		}
		founder := &userdomain.User{
			ID:        s.genID.Generate(),
			Email:     address,
			Name:      name,
			Role:      userdomain.RoleFounder,
			OrgID:     org.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		org.FounderID = &founder.ID

		if err := orgs.Create(ctx, org); err != nil {
			return err
		}
		if err := s.users.WithTrx(tx).Create(ctx, founder); err != nil {
			return translateUserErr(err)
		}
		if err := s.onboarding.SeedDefaults(ctx, tx, org.ID); err != nil {
			return err
		}
		result.Organization = org
		result.User = founder
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("organization signed up",
		zap.String("org_id", result.Organization.ID.String()),
		zap.String("founder_id", result.User.ID.String()),
	)
	return &result, nil
}

func (s *service) Join(ctx context.Context, req domain.JoinRequest) (*domain.Result, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, userdomain.ErrInvalidName
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, invitationdomain.ErrInvalidToken
	}

	var employee *userdomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := s.invites.Accept(ctx, tx, req.Token)
		if err != nil {
			return err
		}
		users := s.users.WithTrx(tx)
		existing, err := users.FindOne(ctx, &userdomain.User{Email: invite.Email})
		if err != nil {
			return err
		}
		if existing != nil {
			return userdomain.ErrEmailTaken
		}
		now := s.clock.Now()
		employee = &userdomain.User{
			ID:         s.genID.Generate(),
			Email:      invite.Email,
			Name:       name,
			Role:       userdomain.RoleEmployee,
			OrgID:      invite.OrgID,
			TeamID:     invite.TeamID,
			ManagerID:  invite.ManagerID,
			Position:   invite.Position,
			Department: invite.Department,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := users.Create(ctx, employee); err != nil {
			return translateUserErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("user_id", employee.ID.String()),
		zap.String("org_id", employee.OrgID.String()),
	)
	log.Info("employee joined")
	if err := s.provisioner.Provision(ctx, employee); err != nil {
		log.Warn("provisioning not scheduled", zap.Error(err))
	}

	org, err := s.orgs.FindByID(ctx, employee.OrgID)
	if err != nil {
		return nil, err
	}
	return &domain.Result{Organization: org, User: employee}, nil
}

func (s *service) ensureEmailFree(ctx context.Context, address string) error {
	existing, err := s.users.FindOne(ctx, &userdomain.User{Email: address})
	if err != nil {
		return err
	}
	if existing != nil {
		return userdomain.ErrEmailTaken
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	address := userservice.NormalizeEmail(raw)
	if address == "" {
		return "", userdomain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return "", userdomain.ErrInvalidEmail
	}
	return address, nil
}

func translateUserErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return userdomain.ErrEmailTaken
	}
	return err
}
