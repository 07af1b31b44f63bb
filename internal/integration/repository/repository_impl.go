package repository

import (
	"context"
	"errors"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert keeps one row per (organization_id, provider); a reconnect reactivates it.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, item *domain.Integration) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO integrations (
			id, organization_id, provider, access_token, refresh_token, token_expires_at,
			provider_data, config, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, provider)
		DO UPDATE SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			provider_data = EXCLUDED.provider_data,
			config = COALESCE(EXCLUDED.config, integrations.config),
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		item.ID,
		item.OrgID,
		item.Provider,
		item.AccessToken,
		item.RefreshToken,
		item.TokenExpiresAt,
		item.ProviderData,
		item.Config,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string) (*domain.Integration, error) {
	var item domain.Integration
	err := db.WithContext(ctx).
		Where("organization_id = ? AND provider = ?", orgID, provider).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, activeOnly bool) ([]domain.Integration, error) {
	var items []domain.Integration
	stmt := db.WithContext(ctx).Where("organization_id = ?", orgID)
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	err := stmt.Order("created_at asc, id asc").Find(&items).Error
	return items, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, isActive bool, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE integrations
		 SET is_active = ?, updated_at = ?
		 WHERE organization_id = ? AND provider = ?`,
		isActive,
		updatedAt,
		orgID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ClearTokens(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE integrations
		 SET is_active = ?, access_token = '', refresh_token = '', token_expires_at = NULL, updated_at = ?
		 WHERE organization_id = ? AND provider = ?`,
		false,
		updatedAt,
		orgID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateConfig(ctx context.Context, db *gorm.DB, orgID snowflake.ID, provider string, config []byte, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE integrations
		 SET config = ?, updated_at = ?
		 WHERE organization_id = ? AND provider = ?`,
		string(config),
		updatedAt,
		orgID,
		provider,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
