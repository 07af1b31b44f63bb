package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// State is the opaque value round-tripped through the provider.
type State struct {
	OrganizationID string `json:"organization_id"`
	Nonce          string `json:"nonce"`
}

func newState(orgID snowflake.ID) (State, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return State{}, err
	}
	return State{OrganizationID: orgID.String(), Nonce: hex.EncodeToString(buf)}, nil
}

func EncodeState(s State) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeState(value string) (State, snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return State{}, 0, ErrInvalidState
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return State{}, 0, ErrInvalidState
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, 0, ErrInvalidState
	}
	orgID, err := snowflake.ParseString(s.OrganizationID)
	if err != nil || orgID == 0 {
		return State{}, 0, ErrInvalidState
	}
	return s, orgID, nil
}
