package service

import (
	"context"
	"testing"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/abbydulski/Runway-sub000/internal/user/repository"
	dbpkg "github.com/abbydulski/Runway-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestUserService(t *testing.T) {
	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, _ := snowflake.NewNode(1)
	now := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	repo := repository.NewRepository(db)
	svc := NewService(Params{Repo: repo, Log: zaptest.NewLogger(t), Clock: clock.NewFakeClock(now)})
	ctx := context.Background()

	orgID := node.Generate()
	founder := &domain.User{ID: node.Generate(), Email: "ada@acme.io", Name: "Ada", Role: domain.RoleFounder, OrgID: orgID, CreatedAt: now, UpdatedAt: now}
	employee := &domain.User{ID: node.Generate(), Email: "bob@acme.io", Name: "Bob", Role: domain.RoleEmployee, OrgID: orgID, CreatedAt: now.Add(time.Minute), UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, founder))
	require.NoError(t, repo.Create(ctx, employee))

	t.Run("get by email is case insensitive", func(t *testing.T) {
		got, err := svc.GetByEmail(ctx, "  BOB@acme.io ")
		require.NoError(t, err)
		assert.Equal(t, employee.ID, got.ID)
	})

	t.Run("list employees of org", func(t *testing.T) {
		users, err := svc.ListByOrg(ctx, orgID, domain.RoleEmployee)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Bob", users[0].Name)
	})

	t.Run("onboarding flag flips exactly once", func(t *testing.T) {
		flipped, err := svc.MarkOnboardingCompleted(ctx, employee.ID)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = svc.MarkOnboardingCompleted(ctx, employee.ID)
		require.NoError(t, err)
		assert.False(t, flipped)

		got, err := svc.Get(ctx, employee.ID)
		require.NoError(t, err)
		assert.True(t, got.OnboardingCompleted)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.MarkOnboardingCompleted(ctx, node.Generate())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
