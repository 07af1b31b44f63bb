package repository

import (
	"context"

	"github.com/abbydulski/Runway-sub000/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic table store keyed by an "id" column.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Upsert(ctx context.Context, resource *T, conflictColumns []string, updateColumns []string) error
	Delete(ctx context.Context, resourceID string) error
	DeleteWhere(ctx context.Context, query *T) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
