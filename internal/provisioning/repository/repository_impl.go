package repository

import (
	"context"

	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/option"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.Log) error {
	return db.WithContext(ctx).Create(log).Error
}

// List returns up to limit rows newest first; snowflake ids order by creation time.
func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.LogFilter, cursor *pagination.Cursor, limit int) ([]*domain.Log, error) {
	var logs []*domain.Log
	stmt := db.WithContext(ctx).
		Model(&domain.Log{}).
		Where("organization_id = ?", orgID)
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.Provider != "" {
		stmt = stmt.Where("provider = ?", filter.Provider)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if cursor != nil && cursor.ID != "" {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.ErrInvalidPageToken
		}
		stmt = stmt.Where("id < ?", id)
	}
	stmt = option.WithLimit(limit).Apply(stmt)
	err := stmt.Order("id desc").Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
