package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/abbydulski/Runway-sub000/internal/authorization"
	"github.com/abbydulski/Runway-sub000/internal/config"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/integration/oauth"
	"github.com/abbydulski/Runway-sub000/internal/integration/status"
	onboardingdomain "github.com/abbydulski/Runway-sub000/internal/onboarding/domain"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testOrgID      snowflake.ID = 7
	testFounderID  snowflake.ID = 100
	testEmployeeID snowflake.ID = 200
)

type fakeUsers struct {
	userdomain.Service
}

func (fakeUsers) Get(_ context.Context, id snowflake.ID) (*userdomain.User, error) {
	switch id {
	case testFounderID:
		return &userdomain.User{ID: id, OrgID: testOrgID, Role: userdomain.RoleFounder}, nil
	case testEmployeeID:
		return &userdomain.User{ID: id, OrgID: testOrgID, Role: userdomain.RoleEmployee}, nil
	}
	return nil, userdomain.ErrNotFound
}

// fakeAuthz lets founders do everything and employees only use the wizard and trigger themselves.
type fakeAuthz struct{}

func (fakeAuthz) Authorize(_ context.Context, actor, _, _, action string) error {
	if actor == "user:"+testFounderID.String() {
		return nil
	}
	switch action {
	case authorization.ActionOnboardingWizardUse, authorization.ActionProvisioningTriggerSelf:
		return nil
	}
	return authorization.ErrForbidden
}

type fakeProvisioning struct {
	provisioningdomain.Service
	requests []provisioningdomain.Request
}

func (f *fakeProvisioning) Provision(_ context.Context, req provisioningdomain.Request) (*provisioningdomain.Response, error) {
	f.requests = append(f.requests, req)
	if req.UserID == "" {
		return nil, provisioningdomain.ErrInvalidUserID
	}
	if req.UserID != testFounderID.String() && req.UserID != testEmployeeID.String() {
		return nil, provisioningdomain.ErrUserNotFound
	}
	return &provisioningdomain.Response{
		Success: true,
		RunID:   "run-1",
		Results: []provisioningdomain.Result{{Provider: "slack", Status: provisioningdomain.StatusSuccess}},
	}, nil
}

type fakeOnboarding struct {
	onboardingdomain.Service
}

func (fakeOnboarding) SaveSteps(_ context.Context, _ snowflake.ID, req onboardingdomain.SaveStepsRequest) ([]onboardingdomain.Step, error) {
	if len(req.Steps) > 0 && req.Steps[0].Title == "" {
		return nil, &onboardingdomain.ValidationError{Fields: []onboardingdomain.FieldError{
			{Field: "steps[0].title", Code: "required"},
		}}
	}
	return []onboardingdomain.Step{}, nil
}

func (fakeOnboarding) CompleteStep(_ context.Context, _, stepID snowflake.ID) (*onboardingdomain.CompleteResult, error) {
	if stepID == 1 {
		return nil, onboardingdomain.ErrDocumentNotAcknowledged
	}
	return nil, onboardingdomain.ErrStepNotFound
}

func (fakeOnboarding) Finish(context.Context, snowflake.ID) (*onboardingdomain.Wizard, error) {
	return &onboardingdomain.Wizard{AllComplete: true, CanFinish: true, OnboardingCompleted: true}, nil
}

type noIntegrations struct {
	integrationdomain.Service
}

type testServer struct {
	engine       *gin.Engine
	provisioning *fakeProvisioning
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	cfg := config.Config{
		AppURL: "https://app.runway.test",
		OAuthClients: map[string]config.OAuthClientConfig{
			"slack": {ClientID: "cid", ClientSecret: "secret"},
		},
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	provisioning := &fakeProvisioning{}
	NewServer(ServerParams{
		Gin:             engine,
		Cfg:             cfg,
		UserSvc:         fakeUsers{},
		IntegrationSvc:  noIntegrations{},
		Connector:       oauth.New(cfg, noIntegrations{}, log),
		Checker:         status.New(cfg, log),
		ProvisioningSvc: provisioning,
		OnboardingSvc:   fakeOnboarding{},
		AuthzSvc:        fakeAuthz{},
		Sessions:        session.NewManager(cfg),
	})
	return &testServer{engine: engine, provisioning: provisioning}
}

func (ts *testServer) do(method, path string, userID snowflake.ID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(session.HeaderUserID, userID.String())
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestTriggerProvisioning(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		caller snowflake.ID
		body   map[string]string
		status int
	}{
		{"no session", 0, map[string]string{"user_id": "200", "organization_id": "7"}, http.StatusUnauthorized},
		{"employee for self", testEmployeeID, map[string]string{"user_id": "200", "organization_id": "7"}, http.StatusOK},
		{"employee for someone else", testEmployeeID, map[string]string{"user_id": "100", "organization_id": "7"}, http.StatusForbidden},
		{"founder for employee", testFounderID, map[string]string{"user_id": "200", "organization_id": "7", "team_id": "9"}, http.StatusOK},
		{"other organization", testFounderID, map[string]string{"user_id": "200", "organization_id": "8"}, http.StatusForbidden},
		{"unknown user", testFounderID, map[string]string{"user_id": "300", "organization_id": "7"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/provisioning/trigger", tc.caller, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	t.Run("response body", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/provisioning/trigger", testEmployeeID, map[string]string{"user_id": "200", "organization_id": "7"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"run_id":"run-1","results":[{"provider":"slack","status":"success"}]}`, w.Body.String())
	})

	t.Run("missing user_id is a validation error", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/provisioning/trigger", testFounderID, map[string]string{"organization_id": "7"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		payload := decodeError(t, w)
		assert.Equal(t, "validation_error", payload.Type)
		require.Len(t, payload.Errors, 1)
		assert.Equal(t, "user_id", payload.Errors[0].Field)
		assert.Equal(t, "invalid_user_id", payload.Errors[0].Code)
	})

	t.Run("missing ids are rejected before authorization", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/provisioning/trigger", testEmployeeID, map[string]string{"organization_id": "7"})
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "user_id", decodeError(t, w).Errors[0].Field)

		w = ts.do(http.MethodPost, "/api/provisioning/trigger", testEmployeeID, map[string]string{"user_id": "200"})
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "organization_id", decodeError(t, w).Errors[0].Field)
	})
}

func TestOnboardingErrors(t *testing.T) {
	ts := newTestServer(t)

	t.Run("step validation lists fields", func(t *testing.T) {
		w := ts.do(http.MethodPut, "/api/onboarding/steps", testFounderID, map[string]any{
			"steps": []map[string]string{{"step_type": "manual"}},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		payload := decodeError(t, w)
		require.Len(t, payload.Errors, 1)
		assert.Equal(t, "steps[0].title", payload.Errors[0].Field)
		assert.Equal(t, "required", payload.Errors[0].Code)
	})

	t.Run("employees cannot edit steps", func(t *testing.T) {
		w := ts.do(http.MethodPut, "/api/onboarding/steps", testEmployeeID, map[string]any{"steps": []any{}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unacknowledged document conflicts", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/onboarding/steps/1/complete", testEmployeeID, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "invalid_state", decodeError(t, w).Type)
	})

	t.Run("unknown step", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/onboarding/steps/2/complete", testEmployeeID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = ts.do(http.MethodPost, "/api/onboarding/steps/abc/complete", testEmployeeID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("finish", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/onboarding/finish", testEmployeeID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"onboarding_completed":true`)
	})
}

func TestIntegrationConnectFlow(t *testing.T) {
	ts := newTestServer(t)

	t.Run("configured provider redirects with state and nonce cookie", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/integrations/slack/connect?organization_id=7", 0, nil)
		require.Equal(t, http.StatusFound, w.Code)

		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "slack.com", loc.Host)
		state, orgID, err := oauth.DecodeState(loc.Query().Get("state"))
		require.NoError(t, err)
		assert.Equal(t, testOrgID, orgID)

		cookie := w.Header().Get("Set-Cookie")
		assert.True(t, strings.HasPrefix(cookie, "_runway_oauth_slack="+state.Nonce), cookie)
	})

	t.Run("unconfigured provider reports not_configured", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/integrations/github/connect?organization_id=7", 0, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.runway.test/integrations?error=not_configured", w.Header().Get("Location"))
	})

	t.Run("missing organization", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/integrations/slack/connect", 0, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("callback with a forged state", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/integrations/slack/callback?code=abc&state=garbage", 0, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.runway.test/integrations?error=invalid_state", w.Header().Get("Location"))
	})

	t.Run("provider denied consent", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/integrations/slack/callback?error=access_denied", 0, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.runway.test/integrations?error=access_denied", w.Header().Get("Location"))
	})
}

func TestIntegrationStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/integrations/mercury/status", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connected":false,"reason":"not_configured"}`, w.Body.String())

	w = ts.do(http.MethodGet, "/api/integrations/slack/status", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{userdomain.ErrEmailTaken, http.StatusConflict, "conflict"},
		{userdomain.ErrInvalidEmail, http.StatusBadRequest, "validation_error"},
		{integrationdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{session.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{onboardingdomain.ErrStepsIncomplete, http.StatusConflict, "invalid_state"},
		{onboardingdomain.ErrStepOutOfOrder, http.StatusConflict, "invalid_state"},
		{context.Canceled, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, payload.Type)
		})
	}
}
