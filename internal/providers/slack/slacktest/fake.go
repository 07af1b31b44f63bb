// Package slacktest provides an in-memory Slack workspace for tests.
package slacktest

import (
	"context"
	"strings"
	"sync"

	"github.com/abbydulski/Runway-sub000/internal/providers/slack"
)

// Workspace implements slack.Client against in-memory users and channels.
type Workspace struct {
	mu sync.Mutex

	users     map[string]string
	channels  []slack.Channel
	members   map[string]map[string]bool
	inviteErr map[string]string

	ListErr  error
	PostErr  error
	Lookups  int
	Invites  int
	Listings int
	Messages []Message
}

// Message is a chat.postMessage call captured by the fake.
type Message struct {
	Token   string
	Channel string
	Text    string
}

func NewWorkspace() *Workspace {
	return &Workspace{
		users:     map[string]string{},
		members:   map[string]map[string]bool{},
		inviteErr: map[string]string{},
	}
}

func (w *Workspace) AddUser(email, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.users[strings.ToLower(email)] = id
}

func (w *Workspace) AddChannel(id, name string, private bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.channels = append(w.channels, slack.Channel{ID: id, Name: name, IsPrivate: private})
	w.members[id] = map[string]bool{}
}

// FailInvites makes every invite to channelID fail with code.
func (w *Workspace) FailInvites(channelID, code string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inviteErr[channelID] = code
}

func (w *Workspace) IsMember(channelID, userID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.members[channelID][userID]
}

func (w *Workspace) LookupUserByEmail(ctx context.Context, _ string, email string) (*slack.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Lookups++
	id, ok := w.users[strings.ToLower(email)]
	if !ok {
		return nil, &slack.APIError{Method: "users.lookupByEmail", Code: slack.CodeUsersNotFound}
	}
	return &slack.User{ID: id}, nil
}

func (w *Workspace) ListChannels(ctx context.Context, _ string) ([]slack.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Listings++
	if w.ListErr != nil {
		return nil, w.ListErr
	}
	out := make([]slack.Channel, len(w.channels))
	copy(out, w.channels)
	return out, nil
}

func (w *Workspace) InviteToChannel(ctx context.Context, _ string, channelID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Invites++
	if code, ok := w.inviteErr[channelID]; ok {
		return &slack.APIError{Method: "conversations.invite", Code: code}
	}
	members, ok := w.members[channelID]
	if !ok {
		return &slack.APIError{Method: "conversations.invite", Code: slack.CodeChannelNotFound}
	}
	if members[userID] {
		return &slack.APIError{Method: "conversations.invite", Code: slack.CodeAlreadyInChannel}
	}
	members[userID] = true
	return nil
}

func (w *Workspace) TestAuth(ctx context.Context, _ string) (*slack.AuthInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &slack.AuthInfo{TeamID: "T000", Team: "Test"}, nil
}

func (w *Workspace) PostMessage(ctx context.Context, token, channelID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.PostErr != nil {
		return w.PostErr
	}
	w.Messages = append(w.Messages, Message{Token: token, Channel: channelID, Text: text})
	return nil
}
