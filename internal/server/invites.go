package server

import (
	"net/http"

	invitationdomain "github.com/abbydulski/Runway-sub000/internal/invitation/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateInvite(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req invitationdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.inviteSvc.Create(c.Request.Context(), sess.OrgID, sess.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (s *Server) ListInvites(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	invites, err := s.inviteSvc.List(c.Request.Context(), sess.OrgID, c.Query("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invites})
}

// LookupInvite backs the public join page; expired and accepted tokens are not found.
func (s *Server) LookupInvite(c *gin.Context) {
	result, err := s.inviteSvc.Lookup(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
