package slack

import "context"

// Provider posts plain-text messages with a workspace bot token.
type Provider interface {
	PostMessage(ctx context.Context, token, channelID, text string) error
}

type NoOpProvider struct{}

func (NoOpProvider) PostMessage(context.Context, string, string, string) error {
	return nil
}

var (
	_ Provider = NoOpProvider{}
	_ Provider = (*HTTPClient)(nil)
)
