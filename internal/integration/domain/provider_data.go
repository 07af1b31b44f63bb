package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SlackData struct {
	TeamID    string `json:"team_id"`
	TeamName  string `json:"team_name"`
	BotUserID string `json:"bot_user_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

type GitHubData struct {
	Login  string `json:"login"`
	UserID int64  `json:"user_id"`
	Scope  string `json:"scope,omitempty"`
}

type QuickBooksData struct {
	RealmID     string `json:"realm_id"`
	Environment string `json:"environment"`
}

type DeelData struct {
	Scope string `json:"scope,omitempty"`
}

type RampData struct {
	Scope string `json:"scope,omitempty"`
}

// SlackConfig is founder-editable Slack settings.
type SlackConfig struct {
	InviteLink string `json:"invite_link,omitempty"`
	// AlertChannel receives a message when a provisioning run needs attention.
	AlertChannel string `json:"alert_channel,omitempty"`
}

func (d SlackData) Validate() error {
	if strings.TrimSpace(d.TeamID) == "" {
		return fmt.Errorf("%w: slack team_id", ErrInvalidProviderData)
	}
	return nil
}

func (d GitHubData) Validate() error {
	if strings.TrimSpace(d.Login) == "" {
		return fmt.Errorf("%w: github login", ErrInvalidProviderData)
	}
	return nil
}

func (d QuickBooksData) Validate() error {
	if strings.TrimSpace(d.RealmID) == "" {
		return fmt.Errorf("%w: quickbooks realm_id", ErrInvalidProviderData)
	}
	return nil
}

func (DeelData) Validate() error { return nil }
func (RampData) Validate() error { return nil }

type validator interface{ Validate() error }

// DecodeData parses raw provider_data into T and validates it.
func DecodeData[T validator](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, out.Validate()
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidProviderData, err)
	}
	return out, out.Validate()
}

// ValidateProviderData checks raw against the typed shape registered for provider.
func ValidateProviderData(provider string, raw json.RawMessage) error {
	var err error
	switch provider {
	case "slack":
		_, err = DecodeData[SlackData](raw)
	case "github":
		_, err = DecodeData[GitHubData](raw)
	case "quickbooks":
		_, err = DecodeData[QuickBooksData](raw)
	case "deel":
		_, err = DecodeData[DeelData](raw)
	case "ramp":
		_, err = DecodeData[RampData](raw)
	}
	return err
}
