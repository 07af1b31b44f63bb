package service

import (
	"context"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/internal/user/repository"
	"github.com/abbydulski/Runway-sub000/pkg/db/option"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Repo  repository.Repository
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	repo  repository.Repository
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{repo: p.Repo, log: p.Log.Named("user.service"), clock: clk}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	user, err := s.repo.FindOne(ctx, &domain.User{ID: id})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	user, err := s.repo.FindOne(ctx, &domain.User{Email: email})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) ListByOrg(ctx context.Context, orgID snowflake.ID, role string) ([]*domain.User, error) {
	return s.repo.Find(ctx, &domain.User{OrgID: orgID, Role: strings.TrimSpace(role)}, option.ApplyOrder("created_at asc"))
}

func (s *Service) MarkOnboardingCompleted(ctx context.Context, id snowflake.ID) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	flipped, err := s.repo.MarkOnboardingCompleted(ctx, id, s.clock.Now())
	if err != nil {
		return false, err
	}
	if flipped {
		s.log.Info("onboarding completed", zap.String("user_id", id.String()))
	}
	return flipped, nil
}

// NormalizeEmail trims and lowercases an address; it does not validate it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
