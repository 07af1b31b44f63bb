package repository

import (
	"context"

	"github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListSteps(ctx context.Context, db *gorm.DB, orgID snowflake.ID, enabledOnly bool) ([]domain.Step, error) {
	query := db.WithContext(ctx).Where("organization_id = ?", orgID)
	if enabledOnly {
		query = query.Where("is_enabled = ?", true)
	}
	var steps []domain.Step
	if err := query.Order("step_order ASC").Order("id ASC").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *repo) FindStep(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Step, error) {
	var step domain.Step
	err := db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == 0 {
		return nil, nil
	}
	return &step, nil
}

// ReplaceSteps deletes every step of the organization and inserts steps in one transaction.
func (r *repo) ReplaceSteps(ctx context.Context, db *gorm.DB, orgID snowflake.ID, steps []domain.Step) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", orgID).Delete(&domain.Step{}).Error; err != nil {
			return err
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func (r *repo) FindProgress(ctx context.Context, db *gorm.DB, userID, stepID snowflake.ID) (*domain.Progress, error) {
	var progress domain.Progress
	err := db.WithContext(ctx).
		Where("user_id = ? AND step_id = ?", userID, stepID).
		Limit(1).
		Find(&progress).Error
	if err != nil {
		return nil, err
	}
	if progress.UserID == 0 {
		return nil, nil
	}
	return &progress, nil
}

func (r *repo) ListProgress(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Progress, error) {
	var rows []domain.Progress
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertProgress writes every progress column, keyed by (user_id, step_id).
func (r *repo) UpsertProgress(ctx context.Context, db *gorm.DB, progress *domain.Progress) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "step_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed",
			"completed_at",
			"document_viewed_at",
			"acknowledged",
			"updated_at",
		}),
	}).Create(progress).Error
}

func (r *repo) CountCompleted(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (map[snowflake.ID]int, error) {
	var rows []struct {
		UserID    snowflake.ID
		Completed int
	}
	err := db.WithContext(ctx).Raw(
		`SELECT p.user_id AS user_id, COUNT(*) AS completed
		 FROM user_onboarding_progress p
		 JOIN onboarding_steps s ON s.id = p.step_id
		 WHERE s.organization_id = ? AND s.is_enabled = ? AND p.completed = ?
		 GROUP BY p.user_id`,
		orgID, true, true,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]int, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Completed
	}
	return out, nil
}
