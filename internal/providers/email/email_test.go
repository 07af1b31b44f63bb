package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestResendSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	p := NewResend("re_123", "Runway <hi@runway.dev>", func(c *resty.Client) { c.SetBaseURL(srv.URL) })
	err := p.Send(context.Background(), Message{To: []string{"bob@acme.io"}, Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Hi", got["subject"])
	assert.Equal(t, []any{"bob@acme.io"}, got["to"])
}

func TestResendSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"bad from"}`))
	}))
	defer srv.Close()

	p := NewResend("re_123", "x", func(c *resty.Client) { c.SetBaseURL(srv.URL) })
	err := p.Send(context.Background(), Message{To: []string{"a@b.c"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad from")
}

func TestSendRequiresRecipients(t *testing.T) {
	assert.ErrorIs(t, NewSMTP(SMTPConfig{}).Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestNewFromConfigSelection(t *testing.T) {
	log := zaptest.NewLogger(t)
	assert.Equal(t, "noop", NewFromConfig(config.Config{}, log).Name())
	assert.Equal(t, "smtp", NewFromConfig(config.Config{Email: config.EmailConfig{SMTPHost: "mail"}}, log).Name())
	assert.Equal(t, "resend", NewFromConfig(config.Config{Email: config.EmailConfig{ResendAPIKey: "k", SMTPHost: "mail"}}, log).Name())
}

func TestRenderInvite(t *testing.T) {
	html, err := Render("invite", InviteData{
		OrganizationName: "Acme",
		InviteeEmail:     "bob@acme.io",
		Position:         "Engineer",
		AcceptURL:        "https://app/join?token=abc",
		ExpiresAt:        "Mar 8, 2026",
	})
	require.NoError(t, err)
	assert.Contains(t, html, "join Acme")
	assert.Contains(t, html, "https://app/join?token=abc")
	assert.Contains(t, html, "Engineer")
}
