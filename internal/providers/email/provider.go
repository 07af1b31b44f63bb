// Package email delivers transactional mail through Resend, SMTP or nowhere.
package email

import (
	"context"
	"errors"
)

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipients = errors.New("email: no recipients")

type NoOpProvider struct{}

func (NoOpProvider) Name() string { return "noop" }

func (NoOpProvider) Send(context.Context, Message) error { return nil }

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	return nil
}
