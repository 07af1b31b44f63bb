package server

import (
	"net/http"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/config"
	integrationdomain "github.com/abbydulski/Runway-sub000/internal/integration/domain"
	"github.com/abbydulski/Runway-sub000/internal/integration/oauth"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) ListIntegrations(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	items, err := s.integrationSvc.List(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// ConnectIntegration redirects the browser to the provider consent page.
// Provider failures are reported on the redirect back to the app, not as JSON.
func (s *Server) ConnectIntegration(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	orgID, err := snowflake.ParseString(strings.TrimSpace(c.Query("organization_id")))
	if err != nil || orgID == 0 {
		AbortWithError(c, newValidationError("organization_id", "invalid_organization_id", "organization_id is required"))
		return
	}

	result, err := s.connector.Authorize(c.Request.Context(), provider, orgID)
	if err != nil {
		logger.FromContext(c.Request.Context()).Info("integration connect rejected",
			zap.String("provider", provider),
			zap.Error(err),
		)
		c.Redirect(http.StatusFound, s.connector.ResultURL(provider, err))
		return
	}

	s.sessions.SetNonce(c, provider, result.State.Nonce)
	c.Redirect(http.StatusFound, result.URL)
}

func (s *Server) IntegrationCallback(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	nonce, _ := s.sessions.ReadNonce(c, provider)
	s.sessions.ClearNonce(c, provider)

	orgID, err := s.connector.Complete(c.Request.Context(), provider, oauth.CallbackRequest{
		Query:         c.Request.URL.Query(),
		ExpectedNonce: nonce,
	})
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("integration callback failed",
			zap.String("provider", provider),
			zap.String("organization_id", orgID.String()),
			zap.String("reason", oauth.Reason(err)),
			zap.Error(err),
		)
	}

	c.Redirect(http.StatusFound, s.connector.ResultURL(provider, err))
}

// IntegrationStatus probes API-key providers with the server-side key.
func (s *Server) IntegrationStatus(c *gin.Context) {
	provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
	if s.checker == nil || !s.checker.Supports(provider) {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, s.checker.Check(c.Request.Context(), provider))
}

type updateIntegrationRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) UpdateIntegration(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req updateIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "required", "is_active is required"))
		return
	}

	summary, err := s.integrationSvc.SetActive(c.Request.Context(), sess.OrgID, c.Param("provider"), *req.IsActive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) DisconnectIntegration(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	if err := s.integrationSvc.Disconnect(c.Request.Context(), sess.OrgID, c.Param("provider")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateSlackConfig(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req integrationdomain.SlackConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.integrationSvc.UpdateSlackConfig(c.Request.Context(), sess.OrgID, req); err != nil {
		AbortWithError(c, err)
		return
	}

	summary, err := s.integrationSvc.List(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	for _, item := range summary {
		if item.Provider == config.ProviderSlack {
			c.JSON(http.StatusOK, gin.H{"data": item})
			return
		}
	}
	AbortWithError(c, integrationdomain.ErrNotFound)
}
