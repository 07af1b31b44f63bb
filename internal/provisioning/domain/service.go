package domain

import (
	"context"
	"errors"

	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *Log) error
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter LogFilter, cursor *pagination.Cursor, limit int) ([]*Log, error)
}

type Service interface {
	// Provision runs every active integration of the organization for the user.
	Provision(ctx context.Context, req Request) (*Response, error)
	ListLogs(ctx context.Context, orgID snowflake.ID, filter LogFilter, page pagination.Pagination) (ListLogsResponse, error)
}

// Dispatcher schedules a provisioning run without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}

var (
	ErrInvalidUserID       = errors.New("invalid_user_id")
	ErrInvalidOrganization = errors.New("invalid_organization_id")
	ErrInvalidTeamID       = errors.New("invalid_team_id")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrUserNotFound        = userdomain.ErrNotFound
	ErrDispatchQueueFull   = errors.New("dispatch_queue_full")
)
