package repository

import (
	"context"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the generic user store plus the one-way onboarding flag update.
type Repository interface {
	repository.Repository[domain.User]
	MarkOnboardingCompleted(ctx context.Context, id snowflake.ID, now time.Time) (bool, error)
}

type userRepository struct {
	repository.Repository[domain.User]
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &userRepository{
		Repository: repository.ProvideStore[domain.User](db),
		db:         db,
	}
}

func (r *userRepository) MarkOnboardingCompleted(ctx context.Context, id snowflake.ID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND onboarding_completed = ?", id, false).
		Updates(map[string]any{
			"onboarding_completed": true,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
