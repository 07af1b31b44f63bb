package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/clock"
	"github.com/abbydulski/Runway-sub000/internal/config"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	integrationrepo "github.com/abbydulski/Runway-sub000/internal/integration/repository"
	integrationservice "github.com/abbydulski/Runway-sub000/internal/integration/service"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/provisioner"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/repository"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack/slacktest"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	teamrepo "github.com/abbydulski/Runway-sub000/internal/team/repository"
	teamservice "github.com/abbydulski/Runway-sub000/internal/team/service"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	userrepo "github.com/abbydulski/Runway-sub000/internal/user/repository"
	userservice "github.com/abbydulski/Runway-sub000/internal/user/service"
	dbpkg "github.com/abbydulski/Runway-sub000/pkg/db"
	"github.com/abbydulski/Runway-sub000/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	node         *snowflake.Node
	clock        *clock.FakeClock
	integrations integrationdomain.Service
	teams        teamdomain.Service
	registry     *provisioner.Registry
	workspace    *slacktest.Workspace
	svc          domain.Service

	orgID snowflake.ID
	user  *userdomain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dbpkg.NewTest()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&teamdomain.Team{},
		&integrationdomain.Integration{},
		&domain.Log{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))

	integrations, err := integrationservice.New(integrationservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  integrationrepo.Provide(),
		Cfg:   config.Config{IntegrationTokenSecret: "orchestrator-test"},
		Clock: clk,
	})
	require.NoError(t, err)
	teams := teamservice.NewService(teamservice.Params{Repo: teamrepo.NewRepository(db), GenID: node, Log: log, Clock: clk})
	users := userservice.NewService(userservice.Params{Repo: userrepo.NewRepository(db), Log: log, Clock: clk})

	ws := slacktest.NewWorkspace()
	ws.AddUser("grace@acme.test", "U100")
	ws.AddChannel("C1", "general", false)
	ws.AddChannel("C2", "eng", true)

	registry := provisioner.NewRegistry(
		provisioner.NewSlack(ws, time.Second),
		provisioner.NewGitHub(),
		provisioner.NewDeel(),
	)

	f := &fixture{
		db:           db,
		node:         node,
		clock:        clk,
		integrations: integrations,
		teams:        teams,
		registry:     registry,
		workspace:    ws,
		orgID:        node.Generate(),
	}
	f.svc = New(Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Repo:         repository.Provide(),
		Users:        users,
		Teams:        teams,
		Integrations: integrations,
		Registry:     registry,
		Alerts:       ws,
		Clock:        clk,
	})

	f.user = &userdomain.User{
		ID:        node.Generate(),
		Email:     "grace@acme.test",
		Name:      "Grace",
		Role:      userdomain.RoleEmployee,
		OrgID:     f.orgID,
		CreatedAt: clk.Now(),
		UpdatedAt: clk.Now(),
	}
	require.NoError(t, db.Create(f.user).Error)
	return f
}

func (f *fixture) connect(t *testing.T, provider string, data any) {
	t.Helper()
	_, err := f.integrations.Upsert(context.Background(), integrationdomain.UpsertRequest{
		OrgID:        f.orgID,
		Provider:     provider,
		AccessToken:  provider + "-token",
		ProviderData: data,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
}

func (f *fixture) team(t *testing.T, channels ...string) snowflake.ID {
	t.Helper()
	team, err := f.teams.Create(context.Background(), f.orgID, teamdomain.UpsertRequest{
		Name:         "Engineering",
		SlackConfig:  &teamdomain.SlackConfig{Channels: channels},
		GitHubConfig: &teamdomain.GitHubConfig{Teams: []string{"platform"}},
	})
	require.NoError(t, err)
	return team.ID
}

func (f *fixture) request(teamID snowflake.ID) domain.Request {
	req := domain.Request{UserID: f.user.ID.String(), OrganizationID: f.orgID.String()}
	if teamID != 0 {
		req.TeamID = teamID.String()
	}
	return req
}

func (f *fixture) logCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Log{}).Count(&n).Error)
	return n
}

func slackData() integrationdomain.SlackData {
	return integrationdomain.SlackData{TeamID: "T1", TeamName: "Acme"}
}

func TestProvisionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Provision(ctx, domain.Request{OrganizationID: f.orgID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = f.svc.Provision(ctx, domain.Request{UserID: f.user.ID.String(), OrganizationID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = f.svc.Provision(ctx, domain.Request{UserID: f.user.ID.String(), OrganizationID: f.orgID.String(), TeamID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidTeamID)

	assert.Zero(t, f.logCount(t))
}

func TestProvisionUnknownUserMakesNoProviderCalls(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())

	_, err := f.svc.Provision(context.Background(), domain.Request{
		UserID:         f.node.Generate().String(),
		OrganizationID: f.orgID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Zero(t, f.workspace.Lookups)
	assert.Zero(t, f.logCount(t))

	t.Run("user from another organization", func(t *testing.T) {
		_, err := f.svc.Provision(context.Background(), domain.Request{
			UserID:         f.user.ID.String(),
			OrganizationID: f.node.Generate().String(),
		})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestProvisionWithoutIntegrations(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Provision(context.Background(), f.request(f.team(t, "#general")))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Results)
	assert.Zero(t, f.logCount(t))
}

func TestProvisionWithoutTeamSkipsTeamScopedWork(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	f.connect(t, "github", integrationdomain.GitHubData{Login: "acme"})

	resp, err := f.svc.Provision(context.Background(), f.request(0))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.Equal(t, domain.StatusSkipped, r.Status, r.Provider)
	}
	assert.Zero(t, f.workspace.Lookups)
	assert.EqualValues(t, 2, f.logCount(t))

	t.Run("unknown team id behaves like no team", func(t *testing.T) {
		resp, err := f.svc.Provision(context.Background(), f.request(f.node.Generate()))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSkipped, resp.Results[0].Status)
	})
}

func TestProvisionMixedChannelsAndOrder(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	f.connect(t, "github", integrationdomain.GitHubData{Login: "acme"})
	f.connect(t, "quickbooks", integrationdomain.QuickBooksData{RealmID: "123"})
	teamID := f.team(t, "#general", "#eng", "#does-not-exist")

	resp, err := f.svc.Provision(context.Background(), f.request(teamID))
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	slackResult := resp.Results[0]
	assert.Equal(t, "slack", slackResult.Provider)
	assert.Equal(t, domain.StatusPartial, slackResult.Status)
	var details provisioner.SlackDetails
	require.NoError(t, json.Unmarshal(slackResult.Details, &details))
	assert.Equal(t, []string{"general", "eng"}, details.AddedChannels)
	require.Len(t, details.FailedChannels, 1)
	assert.Equal(t, "does-not-exist", details.FailedChannels[0].Channel)

	assert.Equal(t, "github", resp.Results[1].Provider)
	assert.Equal(t, domain.StatusPendingImplementation, resp.Results[1].Status)
	assert.Equal(t, "quickbooks", resp.Results[2].Provider)
	assert.Equal(t, domain.StatusSkipped, resp.Results[2].Status)

	var logs []domain.Log
	require.NoError(t, f.db.Order("id asc").Find(&logs).Error)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Equal(t, resp.RunID, l.RunID)
		assert.Equal(t, f.user.ID, l.UserID)
	}
	assert.Equal(t, provisioner.ActionInviteToChannels, logs[0].Action)
}

func TestProvisionRerunAppendsIndependentLogs(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	teamID := f.team(t, "#general", "#eng")

	first, err := f.svc.Provision(context.Background(), f.request(teamID))
	require.NoError(t, err)
	second, err := f.svc.Provision(context.Background(), f.request(teamID))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, first.Results[0].Status)
	assert.Equal(t, domain.StatusSuccess, second.Results[0].Status)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.EqualValues(t, 2, f.logCount(t))

	conns, err := f.integrations.ListActive(context.Background(), f.orgID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "slack-token", conns[0].AccessToken)
}

func TestProvisionConcurrentRuns(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	teamID := f.team(t, "#general")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.svc.Provision(context.Background(), f.request(teamID))
			assert.NoError(t, err)
			assert.Equal(t, domain.StatusSuccess, resp.Results[0].Status)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 2, f.logCount(t))
}

type panicking struct{}

func (panicking) Provider() string { return "github" }
func (panicking) Action() string   { return "add_to_teams" }
func (panicking) Provision(context.Context, provisioner.Target) (provisioner.Outcome, error) {
	panic("boom")
}

type failing struct{}

func (failing) Provider() string { return "deel" }
func (failing) Action() string   { return "create_contract" }
func (failing) Provision(context.Context, provisioner.Target) (provisioner.Outcome, error) {
	return provisioner.Outcome{}, errors.New("deel unavailable")
}

func TestProvisionIsolatesProviderFailures(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(panicking{})
	f.registry.Register(failing{})
	f.connect(t, "github", integrationdomain.GitHubData{Login: "acme"})
	f.connect(t, "deel", integrationdomain.DeelData{})
	f.connect(t, "slack", slackData())
	teamID := f.team(t, "#general")

	resp, err := f.svc.Provision(context.Background(), f.request(teamID))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, domain.StatusError, resp.Results[0].Status)
	assert.Contains(t, resp.Results[0].Error, "boom")
	assert.Equal(t, domain.StatusError, resp.Results[1].Status)
	assert.Equal(t, "deel unavailable", resp.Results[1].Error)
	assert.Equal(t, domain.StatusSuccess, resp.Results[2].Status)
	assert.True(t, f.workspace.IsMember("C1", "U100"))
	assert.EqualValues(t, 3, f.logCount(t))
}

func TestProvisionIgnoresInactiveIntegrations(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	_, err := f.integrations.SetActive(context.Background(), f.orgID, "slack", false)
	require.NoError(t, err)

	resp, err := f.svc.Provision(context.Background(), f.request(f.team(t, "#general")))
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, f.workspace.Lookups)
}

func TestListLogs(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	f.connect(t, "github", integrationdomain.GitHubData{Login: "acme"})
	teamID := f.team(t, "#general")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Provision(ctx, f.request(teamID))
		require.NoError(t, err)
	}

	page, err := f.svc.ListLogs(ctx, f.orgID, domain.LogFilter{}, pagination.Pagination{PageSize: 4})
	require.NoError(t, err)
	require.Len(t, page.Logs, 4)
	assert.True(t, page.HasMore)
	assert.True(t, page.Logs[0].ID > page.Logs[1].ID)

	rest, err := f.svc.ListLogs(ctx, f.orgID, domain.LogFilter{}, pagination.Pagination{PageSize: 4, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, rest.Logs, 2)
	assert.False(t, rest.HasMore)

	filtered, err := f.svc.ListLogs(ctx, f.orgID, domain.LogFilter{Provider: "GitHub", Status: domain.StatusPendingImplementation}, pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, filtered.Logs, 3)

	_, err = f.svc.ListLogs(ctx, f.orgID, domain.LogFilter{Status: "weird"}, pagination.Pagination{})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.ListLogs(ctx, f.orgID, domain.LogFilter{}, pagination.Pagination{PageToken: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestProvisionAlertsFoundersChannel(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "slack", slackData())
	teamID := f.team(t, "#general", "#does-not-exist")

	t.Run("no alert channel configured", func(t *testing.T) {
		_, err := f.svc.Provision(context.Background(), f.request(teamID))
		require.NoError(t, err)
		assert.Empty(t, f.workspace.Messages)
	})

	require.NoError(t, f.integrations.UpdateSlackConfig(context.Background(), f.orgID, integrationdomain.SlackConfig{AlertChannel: "#founders"}))

	t.Run("partial run posts a summary", func(t *testing.T) {
		resp, err := f.svc.Provision(context.Background(), f.request(teamID))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPartial, resp.Results[0].Status)
		require.Len(t, f.workspace.Messages, 1)
		msg := f.workspace.Messages[0]
		assert.Equal(t, "founders", msg.Channel)
		assert.Equal(t, "slack-token", msg.Token)
		assert.Contains(t, msg.Text, "grace@acme.test")
		assert.Contains(t, msg.Text, "slack: partial")
	})

	t.Run("successful run stays quiet", func(t *testing.T) {
		okTeam := f.team(t, "#general")
		_, err := f.svc.Provision(context.Background(), f.request(okTeam))
		require.NoError(t, err)
		assert.Len(t, f.workspace.Messages, 1)
	})

	t.Run("delivery failure does not fail the run", func(t *testing.T) {
		f.workspace.PostErr = errors.New("channel_not_found")
		resp, err := f.svc.Provision(context.Background(), f.request(teamID))
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})
}
