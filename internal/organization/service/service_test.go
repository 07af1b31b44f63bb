package service

import (
	"context"
	"testing"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/organization/domain"
	"github.com/abbydulski/Runway-sub000/internal/organization/repository"
	dbpkg "github.com/abbydulski/Runway-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestOrganizationService(t *testing.T) {
	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewRepository(db)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{Repo: repo, Log: zaptest.NewLogger(t), Clock: clk})
	ctx := context.Background()

	org, err := NewOrganization(ctx, repo, node, "Acme Rockets", clk.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, org))
	assert.Equal(t, "acme-rockets", org.Slug)

	t.Run("slug collision gets a suffix", func(t *testing.T) {
		other, err := NewOrganization(ctx, repo, node, "Acme  Rockets", clk.Now())
		require.NoError(t, err)
		assert.NotEqual(t, org.Slug, other.Slug)
		assert.Contains(t, other.Slug, "acme-rockets-")
	})

	t.Run("setup keeps provider order and dedupes", func(t *testing.T) {
		updated, err := svc.CompleteSetup(ctx, org.ID, domain.SetupRequest{
			SelectedIntegrations: []string{"Slack", "github", "slack", "mercury"},
		})
		require.NoError(t, err)
		assert.True(t, updated.SetupCompleted)
		assert.Equal(t, []string{"slack", "github", "mercury"}, []string(updated.SelectedIntegrations))
	})

	t.Run("setup rejects unknown provider", func(t *testing.T) {
		_, err := svc.CompleteSetup(ctx, org.ID, domain.SetupRequest{SelectedIntegrations: []string{"jira"}})
		assert.ErrorIs(t, err, domain.ErrInvalidProvider)
	})

	t.Run("update validates name and logo", func(t *testing.T) {
		blank := "  "
		_, err := svc.Update(ctx, org.ID, domain.UpdateRequest{Name: &blank})
		assert.ErrorIs(t, err, domain.ErrInvalidName)

		badLogo := "not a url"
		_, err = svc.Update(ctx, org.ID, domain.UpdateRequest{LogoURL: &badLogo})
		assert.ErrorIs(t, err, domain.ErrInvalidLogoURL)

		name := "Acme Aerospace"
		logo := "https://cdn.example.com/logo.png"
		updated, err := svc.Update(ctx, org.ID, domain.UpdateRequest{Name: &name, LogoURL: &logo})
		require.NoError(t, err)
		assert.Equal(t, name, updated.Name)
		assert.Equal(t, logo, updated.LogoURL)
		assert.Equal(t, "acme-rockets", updated.Slug)
	})

	t.Run("missing organization", func(t *testing.T) {
		_, err := svc.Get(ctx, node.Generate())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
