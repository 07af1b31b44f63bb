package server

import (
	"net/http"

	orgdomain "github.com/abbydulski/Runway-sub000/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetOrganization(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	org, err := s.organizationSvc.Get(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req orgdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Update(c.Request.Context(), sess.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) CompleteOrganizationSetup(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req orgdomain.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.CompleteSetup(c.Request.Context(), sess.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}
