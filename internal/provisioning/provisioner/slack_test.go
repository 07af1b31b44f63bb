package provisioner

import (
	"context"
	"errors"
	"testing"
	"time"

	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack/slacktest"
	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func teamWithChannels(channels ...string) *teamdomain.Team {
	return &teamdomain.Team{
		Name:        "Engineering",
		SlackConfig: datatypes.NewJSONType(teamdomain.SlackConfig{Channels: channels}),
	}
}

func target(team *teamdomain.Team) Target {
	return Target{
		User:       &userdomain.User{ID: 1, Email: "ada@acme.test"},
		Team:       team,
		Connection: integrationdomain.Connection{Provider: "slack", AccessToken: "xoxb-test"},
	}
}

func newWorkspace() *slacktest.Workspace {
	ws := slacktest.NewWorkspace()
	ws.AddUser("ada@acme.test", "U1")
	ws.AddChannel("C1", "general", false)
	ws.AddChannel("C2", "eng", true)
	return ws
}

func TestSlackMixedChannels(t *testing.T) {
	ws := newWorkspace()
	p := NewSlack(ws, time.Second)

	out, err := p.Provision(context.Background(), target(teamWithChannels("#general", "eng", "#random")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, out.Status)

	details := out.Details.(SlackDetails)
	assert.Equal(t, "U1", details.SlackUserID)
	assert.Equal(t, []string{"general", "eng"}, details.AddedChannels)
	assert.Equal(t, []FailedChannel{{Channel: "random", Error: MessageChannelNotFound}}, details.FailedChannels)
	assert.True(t, ws.IsMember("C1", "U1"))
	assert.True(t, ws.IsMember("C2", "U1"))
}

func TestSlackRerunIsSuccess(t *testing.T) {
	ws := newWorkspace()
	p := NewSlack(ws, time.Second)
	tg := target(teamWithChannels("#general", "#eng"))

	for i := 0; i < 2; i++ {
		out, err := p.Provision(context.Background(), tg)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, out.Status, "run %d", i)
		assert.Equal(t, []string{"general", "eng"}, out.Details.(SlackDetails).AddedChannels)
	}
}

func TestSlackAllChannelsFailed(t *testing.T) {
	ws := newWorkspace()
	ws.FailInvites("C1", "restricted_action")
	p := NewSlack(ws, time.Second)

	out, err := p.Provision(context.Background(), target(teamWithChannels("general", "missing")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Status)
	details := out.Details.(SlackDetails)
	assert.Empty(t, details.AddedChannels)
	assert.Equal(t, []FailedChannel{
		{Channel: "general", Error: "restricted_action"},
		{Channel: "missing", Error: MessageChannelNotFound},
	}, details.FailedChannels)
}

func TestSlackUserNotFound(t *testing.T) {
	ws := newWorkspace()
	p := NewSlack(ws, time.Second)
	tg := target(teamWithChannels("general"))
	tg.User.Email = "ghost@acme.test"

	out, err := p.Provision(context.Background(), tg)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, out.Status)
	assert.Contains(t, out.Error, "ghost@acme.test")
	assert.Equal(t, 0, ws.Listings)
	assert.Equal(t, 0, ws.Invites)
}

func TestSlackListFailure(t *testing.T) {
	ws := newWorkspace()
	ws.ListErr = &slack.APIError{Method: "conversations.list", Code: "missing_scope"}
	p := NewSlack(ws, time.Second)

	_, err := p.Provision(context.Background(), target(teamWithChannels("general")))
	require.Error(t, err)
	var apiErr *slack.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, ws.Invites)
}

func TestSlackSkips(t *testing.T) {
	p := NewSlack(newWorkspace(), time.Second)

	out, err := p.Provision(context.Background(), target(nil))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Status)

	out, err = p.Provision(context.Background(), target(teamWithChannels(" ", "#")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Status)
}

func TestPendingProviders(t *testing.T) {
	team := teamWithChannels()
	team.GitHubConfig = datatypes.NewJSONType(teamdomain.GitHubConfig{Teams: []string{"backend"}})

	out, err := NewGitHub().Provision(context.Background(), target(team))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingImplementation, out.Status)

	out, err = NewDeel().Provision(context.Background(), target(nil))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSkipped, out.Status)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(NewGitHub(), NewDeel())
	_, ok := r.Lookup(" GitHub ")
	assert.True(t, ok)
	_, ok = r.Lookup("mercury")
	assert.False(t, ok)
}

func TestNormalizeChannels(t *testing.T) {
	assert.Equal(t, []string{"general", "Eng", "general"}, normalizeChannels([]string{"#general", " #Eng ", "general", "", "#"}))
}

type hangingList struct {
	*slacktest.Workspace
}

func (h hangingList) ListChannels(ctx context.Context, _ string) ([]slack.Channel, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSlackCallTimeout(t *testing.T) {
	p := NewSlack(hangingList{newWorkspace()}, 10*time.Millisecond)

	_, err := p.Provision(context.Background(), target(teamWithChannels("general")))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSlackUnknownChannelsOnlyIsFailed(t *testing.T) {
	ws := newWorkspace()
	p := NewSlack(ws, time.Second)

	out, err := p.Provision(context.Background(), target(teamWithChannels("#nope", "#missing")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, out.Status)
	details := out.Details.(SlackDetails)
	assert.Empty(t, details.AddedChannels)
	assert.Len(t, details.FailedChannels, 2)
	assert.Equal(t, 0, ws.Invites)
}

func TestSlackRepeatedChannelsAreReported(t *testing.T) {
	ws := newWorkspace()
	p := NewSlack(ws, time.Second)

	out, err := p.Provision(context.Background(), target(teamWithChannels("#general", "General", "#nope", "nope")))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartial, out.Status)
	details := out.Details.(SlackDetails)
	assert.Equal(t, []string{"general", "General"}, details.AddedChannels)
	assert.Equal(t, []FailedChannel{
		{Channel: "nope", Error: MessageChannelNotFound},
		{Channel: "nope", Error: MessageChannelNotFound},
	}, details.FailedChannels)
	assert.Equal(t, 1, ws.Invites)
}
