package server

import (
	"strings"

	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/gin-gonic/gin"
)

// authorizeOrgAction gates a route on the caller's role inside their own organization.
func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeOrgActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeOrgActionWithContext(c *gin.Context, object string, action string) error {
	sess, ok := session.FromGin(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(
		c.Request.Context(),
		sess.Actor(),
		sess.OrgID.String(),
		strings.TrimSpace(object),
		strings.TrimSpace(action),
	)
}

func mustSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromGin(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return nil, false
	}
	return sess, true
}
