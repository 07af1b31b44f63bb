package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListChannelsFollowsCursor(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations.list", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-1", r.Header.Get("Authorization"))
		assert.Equal(t, "public_channel,private_channel", r.URL.Query().Get("types"))
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = w.Write([]byte(`{"ok":true,"channels":[{"id":"C1","name":"general"}],"response_metadata":{"next_cursor":"page2"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"channels":[{"id":"C2","name":"eng","is_private":true}],"response_metadata":{"next_cursor":""}}`))
	}))
	defer srv.Close()

	channels, err := New(WithBaseURL(srv.URL)).ListChannels(context.Background(), "xoxb-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, channels, 2)
	assert.Equal(t, "eng", channels[1].Name)
	assert.True(t, channels[1].IsPrivate)
}

func TestInviteSurfacesSlackErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "C1", body["channel"])
		assert.Equal(t, "U1", body["users"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"already_in_channel"}`))
	}))
	defer srv.Close()

	err := New(WithBaseURL(srv.URL)).InviteToChannel(context.Background(), "xoxb-1", "C1", "U1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeAlreadyInChannel, apiErr.Code)
}

func TestLookupUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("email") == "bob@acme.io" {
			_, _ = w.Write([]byte(`{"ok":true,"user":{"id":"U42","name":"bob"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"error":"users_not_found"}`))
	}))
	defer srv.Close()

	client := New(WithBaseURL(srv.URL))
	user, err := client.LookupUserByEmail(context.Background(), "t", "bob@acme.io")
	require.NoError(t, err)
	assert.Equal(t, "U42", user.ID)

	_, err = client.LookupUserByEmail(context.Background(), "t", "ghost@acme.io")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUsersNotFound, apiErr.Code)
}

func TestPostMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-1", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "founders", body["channel"])
		assert.Equal(t, "hello", body["text"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, New(WithBaseURL(srv.URL)).PostMessage(context.Background(), "xoxb-1", "founders", "hello"))
	assert.NoError(t, NoOpProvider{}.PostMessage(context.Background(), "", "", ""))
}
