package repository

import (
	"context"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, invite *domain.Invite) error {
	return db.WithContext(ctx).Create(invite).Error
}

func (r *repo) FindByTokenHash(ctx context.Context, db *gorm.DB, hash string) (*domain.Invite, error) {
	var invite domain.Invite
	err := db.WithContext(ctx).
		Where("invite_token = ?", hash).
		Limit(1).
		Find(&invite).Error
	if err != nil {
		return nil, err
	}
	if invite.ID == 0 {
		return nil, nil
	}
	return &invite, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string) ([]domain.Invite, error) {
	query := db.WithContext(ctx).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var invites []domain.Invite
	if err := query.Order("created_at DESC").Order("id DESC").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *repo) MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invites
		 SET status = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND expires_at > ?`,
		domain.StatusAccepted,
		now,
		now,
		id,
		domain.StatusPending,
		now,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invites
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at <= ?`,
		domain.StatusExpired,
		now,
		domain.StatusPending,
		now,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
