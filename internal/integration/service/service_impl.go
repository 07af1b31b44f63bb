package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/integration/crypto"
	"github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	repo   domain.Repository
	genID  *snowflake.Node
	cipher *crypto.Cipher
	clock  clock.Clock
}

func New(p Params) (domain.Service, error) {
	c, err := crypto.NewCipher(p.Cfg.IntegrationTokenSecret)
	if err != nil {
		return nil, err
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}

	log := p.Log.Named("integration.service")
	if !c.Enabled() {
		log.Warn("INTEGRATION_TOKEN_SECRET is not set; connecting integrations will fail")
	}

	return &Service{
		db:     p.DB,
		log:    log,
		repo:   p.Repo,
		genID:  p.GenID,
		cipher: c,
		clock:  clk,
	}, nil
}

var knownProviders = map[string]struct{}{
	config.ProviderSlack:      {},
	config.ProviderGitHub:     {},
	config.ProviderDeel:       {},
	config.ProviderQuickBooks: {},
	config.ProviderMercury:    {},
	config.ProviderRamp:       {},
}

func normalizeProvider(provider string) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := knownProviders[provider]; !ok {
		return "", domain.ErrInvalidProvider
	}
	return provider, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.Summary, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	provider, err := normalizeProvider(req.Provider)
	if err != nil {
		return nil, err
	}
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		return nil, domain.ErrInvalidToken
	}

	providerData, err := marshalOptional(req.ProviderData, domain.ErrInvalidProviderData)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateProviderData(provider, json.RawMessage(providerData)); err != nil {
		return nil, err
	}
	cfg, err := marshalOptional(req.Config, domain.ErrInvalidConfig)
	if err != nil {
		return nil, err
	}

	sealedAccess, err := s.seal(accessToken)
	if err != nil {
		return nil, err
	}
	sealedRefresh, err := s.seal(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Find(ctx, s.db, req.OrgID, provider)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := domain.Integration{
		ID:             s.genID.Generate(),
		OrgID:          req.OrgID,
		Provider:       provider,
		AccessToken:    sealedAccess,
		RefreshToken:   sealedRefresh,
		TokenExpiresAt: req.TokenExpiresAt,
		ProviderData:   providerData,
		Config:         cfg,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, s.db, &item); err != nil {
		return nil, err
	}

	action := "connected"
	if existing != nil {
		action = "reconnected"
	}
	s.log.Info("integration "+action,
		zap.String("org_id", req.OrgID.String()),
		zap.String("provider", provider),
	)

	stored, err := s.repo.Find(ctx, s.db, req.OrgID, provider)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrNotFound
	}
	summary := toSummary(*stored)
	return &summary, nil
}

func (s *Service) Get(ctx context.Context, orgID snowflake.ID, provider string) (*domain.Connection, error) {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.Find(ctx, s.db, orgID, provider)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.IsActive {
		return nil, domain.ErrNotFound
	}
	conn, err := s.open(*item)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *Service) ListActive(ctx context.Context, orgID snowflake.ID) ([]domain.Connection, error) {
	items, err := s.repo.List(ctx, s.db, orgID, true)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Connection, 0, len(items))
	for _, item := range items {
		conn, err := s.open(item)
		if err != nil {
			// An unreadable row must not hide the other providers.
			s.log.Error("failed to decrypt integration",
				zap.String("org_id", orgID.String()),
				zap.String("provider", item.Provider),
				zap.Error(err),
			)
			continue
		}
		out = append(out, conn)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]domain.Summary, error) {
	items, err := s.repo.List(ctx, s.db, orgID, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Summary, 0, len(items))
	for _, item := range items {
		out = append(out, toSummary(item))
	}
	return out, nil
}

func (s *Service) SetActive(ctx context.Context, orgID snowflake.ID, provider string, isActive bool) (*domain.Summary, error) {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, orgID, provider, isActive, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}

	item, err := s.repo.Find(ctx, s.db, orgID, provider)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	summary := toSummary(*item)
	return &summary, nil
}

func (s *Service) Disconnect(ctx context.Context, orgID snowflake.ID, provider string) error {
	provider, err := normalizeProvider(provider)
	if err != nil {
		return err
	}
	updated, err := s.repo.ClearTokens(ctx, s.db, orgID, provider, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	s.log.Info("integration disconnected",
		zap.String("org_id", orgID.String()),
		zap.String("provider", provider),
	)
	return nil
}

func (s *Service) UpdateSlackConfig(ctx context.Context, orgID snowflake.ID, cfg domain.SlackConfig) error {
	cfg.InviteLink = strings.TrimSpace(cfg.InviteLink)
	cfg.AlertChannel = strings.TrimPrefix(strings.TrimSpace(cfg.AlertChannel), "#")
	if cfg.InviteLink != "" && !strings.HasPrefix(cfg.InviteLink, "https://") {
		return domain.ErrInvalidConfig
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return domain.ErrInvalidConfig
	}
	updated, err := s.repo.UpdateConfig(ctx, s.db, orgID, config.ProviderSlack, raw, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Service) seal(value string) (string, error) {
	out, err := s.cipher.Seal(value)
	if errors.Is(err, crypto.ErrKeyMissing) {
		return "", domain.ErrEncryptionKeyMissing
	}
	return out, err
}

func (s *Service) open(item domain.Integration) (domain.Connection, error) {
	access, err := s.cipher.Open(item.AccessToken)
	if err != nil {
		return domain.Connection{}, err
	}
	refresh, err := s.cipher.Open(item.RefreshToken)
	if err != nil {
		return domain.Connection{}, err
	}
	return domain.Connection{
		ID:             item.ID,
		OrgID:          item.OrgID,
		Provider:       item.Provider,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: item.TokenExpiresAt,
		ProviderData:   json.RawMessage(item.ProviderData),
		Config:         json.RawMessage(item.Config),
	}, nil
}

func toSummary(item domain.Integration) domain.Summary {
	return domain.Summary{
		Provider:       item.Provider,
		IsActive:       item.IsActive,
		ConnectedAt:    item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
		TokenExpiresAt: item.TokenExpiresAt,
		ProviderData:   json.RawMessage(item.ProviderData),
		Config:         json.RawMessage(item.Config),
	}
}

func marshalOptional(v any, invalid error) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil, nil
		}
		if !json.Valid(raw) {
			return nil, invalid
		}
		return datatypes.JSON(raw), nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, invalid
	}
	return datatypes.JSON(out), nil
}
