// Package slack is a minimal Slack Web API client for workspace provisioning.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://slack.com/api"

	CodeAlreadyInChannel = "already_in_channel"
	CodeUsersNotFound    = "users_not_found"
	CodeChannelNotFound  = "channel_not_found"
)

// Client is the subset of the Slack Web API used for provisioning.
type Client interface {
	LookupUserByEmail(ctx context.Context, token, email string) (*User, error)
	ListChannels(ctx context.Context, token string) ([]Channel, error)
	InviteToChannel(ctx context.Context, token, channelID, userID string) error
	TestAuth(ctx context.Context, token string) (*AuthInfo, error)
}

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
}

type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

type AuthInfo struct {
	TeamID string `json:"team_id"`
	Team   string `json:"team"`
	UserID string `json:"user_id"`
	URL    string `json:"url"`
}

// APIError is a Slack response with ok=false. Code is Slack's error string, e.g. "already_in_channel".
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

type envelope struct {
	OK               bool   `json:"ok"`
	Error            string `json:"error"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type HTTPClient struct {
	client *resty.Client
}

type Option func(*resty.Client)

func WithBaseURL(baseURL string) Option {
	return func(c *resty.Client) { c.SetBaseURL(strings.TrimRight(baseURL, "/")) }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *resty.Client) {
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
	}
}

func New(opts ...Option) *HTTPClient {
	client := resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(client)
	}
	return &HTTPClient{client: client}
}

func (c *HTTPClient) LookupUserByEmail(ctx context.Context, token, email string) (*User, error) {
	var out struct {
		envelope
		User User `json:"user"`
	}
	if err := c.get(ctx, token, "users.lookupByEmail", map[string]string{"email": email}, &out, &out.envelope); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ListChannels returns every public and private channel visible to the token, following cursors.
func (c *HTTPClient) ListChannels(ctx context.Context, token string) ([]Channel, error) {
	var channels []Channel
	cursor := ""
	for {
		params := map[string]string{
			"types":            "public_channel,private_channel",
			"exclude_archived": "true",
			"limit":            "200",
		}
		if cursor != "" {
			params["cursor"] = cursor
		}

		var out struct {
			envelope
			Channels []Channel `json:"channels"`
		}
		if err := c.get(ctx, token, "conversations.list", params, &out, &out.envelope); err != nil {
			return nil, err
		}
		channels = append(channels, out.Channels...)

		cursor = strings.TrimSpace(out.ResponseMetadata.NextCursor)
		if cursor == "" {
			return channels, nil
		}
	}
}

func (c *HTTPClient) InviteToChannel(ctx context.Context, token, channelID, userID string) error {
	var out envelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(map[string]string{"channel": channelID, "users": userID}).
		SetResult(&out).
		Post("/conversations.invite")
	return check("conversations.invite", resp, err, &out)
}

func (c *HTTPClient) PostMessage(ctx context.Context, token, channelID, text string) error {
	var out envelope
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetBody(map[string]string{"channel": channelID, "text": text}).
		SetResult(&out).
		Post("/chat.postMessage")
	return check("chat.postMessage", resp, err, &out)
}

func (c *HTTPClient) TestAuth(ctx context.Context, token string) (*AuthInfo, error) {
	var out struct {
		envelope
		AuthInfo
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Post("/auth.test")
	if err := check("auth.test", resp, err, &out.envelope); err != nil {
		return nil, err
	}
	return &out.AuthInfo, nil
}

func (c *HTTPClient) get(ctx context.Context, token, method string, params map[string]string, result any, env *envelope) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(result).
		Get("/" + method)
	return check(method, resp, err, env)
}

func check(method string, resp *resty.Response, err error, env *envelope) error {
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return &APIError{Method: method, Code: "ratelimited"}
	}
	if resp.IsError() {
		return fmt.Errorf("slack %s: unexpected status %d", method, resp.StatusCode())
	}
	if !env.OK {
		code := strings.TrimSpace(env.Error)
		if code == "" {
			code = "unknown_error"
		}
		return &APIError{Method: method, Code: code}
	}
	return nil
}
