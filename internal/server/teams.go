package server

import (
	"net/http"
	"strings"

	teamdomain "github.com/abbydulski/Runway-sub000/internal/team/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListTeams(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	teams, err := s.teamSvc.List(c.Request.Context(), sess.OrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": teams})
}

func (s *Server) CreateTeam(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req teamdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Create(c.Request.Context(), sess.OrgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": team})
}

func (s *Server) GetTeam(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	team, err := s.teamSvc.Get(c.Request.Context(), sess.OrgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": team})
}

func (s *Server) UpdateTeam(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req teamdomain.UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Update(c.Request.Context(), sess.OrgID, id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": team})
}

func (s *Server) DeleteTeam(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.teamSvc.Delete(c.Request.Context(), sess.OrgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses a snowflake path parameter; malformed ids are reported as not found.
func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		AbortWithError(c, ErrNotFound)
		return 0, false
	}
	return id, true
}
