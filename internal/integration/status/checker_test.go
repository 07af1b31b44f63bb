package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"accounts":[]}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	build := func(mercuryKey, rampKey string) *Checker {
		return New(config.Config{MercuryAPIKey: mercuryKey, RampAPIKey: rampKey}, zaptest.NewLogger(t),
			WithBaseURL(config.ProviderMercury, srv.URL),
			WithBaseURL(config.ProviderRamp, srv.URL),
		)
	}

	t.Run("connected", func(t *testing.T) {
		st := build("good", "").Check(ctx, "mercury")
		assert.True(t, st.Connected)
		assert.Empty(t, st.Reason)
		assert.Equal(t, "****", st.KeyHint)
	})

	t.Run("not configured", func(t *testing.T) {
		st := build("good", "").Check(ctx, "ramp")
		assert.False(t, st.Connected)
		assert.Equal(t, ReasonNotConfigured, st.Reason)
	})

	t.Run("invalid key", func(t *testing.T) {
		st := build("", "bad").Check(ctx, "Ramp")
		assert.Equal(t, ReasonInvalidCredentials, st.Reason)
	})

	t.Run("unexpected status", func(t *testing.T) {
		st := build("broken", "").Check(ctx, "mercury")
		assert.Equal(t, ReasonUnexpectedStatus, st.Reason)
	})

	t.Run("unreachable", func(t *testing.T) {
		c := New(config.Config{MercuryAPIKey: "good"}, zaptest.NewLogger(t), WithBaseURL(config.ProviderMercury, "http://127.0.0.1:1"))
		assert.Equal(t, ReasonUnreachable, c.Check(ctx, "mercury").Reason)
	})

	assert.False(t, build("", "").Supports("slack"))
}

func TestMaskKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"mercury-api-key-123456", "****3456"},
		{"secret_token_abcdef9876", "secret_token_****9876"},
		{"ramp:live:zzzz", "ramp:live:****"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, maskKey(tc.in), tc.in)
	}
}
