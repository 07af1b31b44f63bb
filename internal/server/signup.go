package server

import (
	"net/http"

	signupdomain "github.com/abbydulski/Runway-sub000/internal/signup/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) Signup(c *gin.Context) {
	var req signupdomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupSvc.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Join accepts an invite. Provisioning for the new employee is scheduled, not awaited.
func (s *Server) Join(c *gin.Context) {
	var req signupdomain.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.signupSvc.Join(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
