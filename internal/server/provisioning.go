package server

import (
	"net/http"
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/authorization"
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/gin-gonic/gin"
)

// TriggerProvisioning runs the orchestrator synchronously for one user and returns every provider result.
func (s *Server) TriggerProvisioning(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req provisioningdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.OrganizationID = strings.TrimSpace(req.OrganizationID)
	req.TeamID = strings.TrimSpace(req.TeamID)

	if req.UserID == "" {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "user_id is required"))
		return
	}
	if req.OrganizationID == "" {
		AbortWithError(c, newValidationError("organization_id", "invalid_organization_id", "organization_id is required"))
		return
	}
	if req.OrganizationID != sess.OrgID.String() {
		AbortWithError(c, ErrForbidden)
		return
	}
	action := authorization.ActionProvisioningTriggerAny
	if req.UserID == sess.UserID.String() {
		action = authorization.ActionProvisioningTriggerSelf
	}
	if err := s.authorizeOrgActionWithContext(c, authorization.ObjectProvisioning, action); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.provisioningSvc.Provision(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListProvisioningLogs(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	filter, page, err := logQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.provisioningSvc.ListLogs(c.Request.Context(), sess.OrgID, filter, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
