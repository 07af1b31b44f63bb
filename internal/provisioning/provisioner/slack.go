package provisioner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
)

const (
	ActionInviteToChannels = "invite_to_channels"

	MessageChannelNotFound = "Channel not found"
)

type SlackDetails struct {
	SlackUserID    string          `json:"slackUserId,omitempty"`
	AddedChannels  []string        `json:"addedChannels"`
	FailedChannels []FailedChannel `json:"failedChannels"`
}

type FailedChannel struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}

// Slack adds the user to every channel configured on their team.
type Slack struct {
	client      slack.Client
	callTimeout time.Duration
}

func NewSlack(client slack.Client, callTimeout time.Duration) *Slack {
	return &Slack{client: client, callTimeout: callTimeout}
}

func (s *Slack) Provider() string { return config.ProviderSlack }

func (s *Slack) Action() string { return ActionInviteToChannels }

func (s *Slack) Provision(ctx context.Context, target Target) (Outcome, error) {
	if target.Team == nil {
		return Outcome{Status: domain.StatusSkipped, Details: skipReason{Reason: "no_team"}}, nil
	}
	channels := normalizeChannels(target.Team.SlackChannels())
	if len(channels) == 0 {
		return Outcome{Status: domain.StatusSkipped, Details: skipReason{Reason: "no_channels"}}, nil
	}
	token := target.Connection.AccessToken

	var member *slack.User
	err := s.call(ctx, func(ctx context.Context) (err error) {
		member, err = s.client.LookupUserByEmail(ctx, token, target.User.Email)
		return err
	})
	if err != nil {
		var apiErr *slack.APIError
		if errors.As(err, &apiErr) && apiErr.Code == slack.CodeUsersNotFound {
			return Outcome{
				Status: domain.StatusError,
				Error:  fmt.Sprintf("User %s not found in Slack workspace", target.User.Email),
			}, nil
		}
		return Outcome{}, fmt.Errorf("lookup slack user: %w", err)
	}

	var all []slack.Channel
	err = s.call(ctx, func(ctx context.Context) (err error) {
		all, err = s.client.ListChannels(ctx, token)
		return err
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("list slack channels: %w", err)
	}
	byName := make(map[string]string, len(all))
	for _, ch := range all {
		byName[strings.ToLower(ch.Name)] = ch.ID
	}

	details := SlackDetails{
		SlackUserID:    member.ID,
		AddedChannels:  []string{},
		FailedChannels: []FailedChannel{},
	}
	// Repeated names reuse the first attempt's outcome.
	outcomes := make(map[string]string, len(channels))
	for _, name := range channels {
		key := strings.ToLower(name)
		failure, seen := outcomes[key]
		if !seen {
			failure = s.invite(ctx, token, byName[key], member.ID)
			outcomes[key] = failure
		}
		if failure == "" {
			details.AddedChannels = append(details.AddedChannels, name)
			continue
		}
		details.FailedChannels = append(details.FailedChannels, FailedChannel{Channel: name, Error: failure})
	}

	status := domain.StatusSuccess
	switch {
	case len(details.FailedChannels) == 0:
	case len(details.AddedChannels) == 0:
		status = domain.StatusFailed
	default:
		status = domain.StatusPartial
	}
	return Outcome{Status: status, Details: details}, nil
}

// invite returns an empty string once the user is in the channel, otherwise the failure reason.
func (s *Slack) invite(ctx context.Context, token, channelID, userID string) string {
	if channelID == "" {
		return MessageChannelNotFound
	}
	err := s.call(ctx, func(ctx context.Context) error {
		return s.client.InviteToChannel(ctx, token, channelID, userID)
	})
	if err == nil {
		return ""
	}
	var apiErr *slack.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == slack.CodeAlreadyInChannel {
			return ""
		}
		return apiErr.Code
	}
	return err.Error()
}

func (s *Slack) call(ctx context.Context, fn func(context.Context) error) error {
	if s.callTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return fn(callCtx)
}

// normalizeChannels strips a leading '#' and drops blank entries, keeping order.
func normalizeChannels(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#"))
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}
