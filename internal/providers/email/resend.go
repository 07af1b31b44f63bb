package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const resendBaseURL = "https://api.resend.com"

// ResendProvider sends mail through the Resend HTTP API.
type ResendProvider struct {
	client *resty.Client
	from   string
}

func NewResend(apiKey, from string, opts ...func(*resty.Client)) *ResendProvider {
	client := resty.New().
		SetBaseURL(resendBaseURL).
		SetAuthToken(apiKey).
		SetTimeout(10 * time.Second)
	for _, opt := range opts {
		opt(client)
	}
	return &ResendProvider{client: client, from: from}
}

func (p *ResendProvider) Name() string { return "resend" }

func (p *ResendProvider) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	body := map[string]any{
		"from":    p.from,
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if strings.TrimSpace(msg.Text) != "" {
		body["text"] = msg.Text
	}

	var apiErr struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode(), apiErr.Message)
	}
	return nil
}
