// Package session resolves the calling user into an explicit Session carried on the gin context.
package session

import (
	"errors"
	"net/http"
	"strings"

	obscontext "github.com/abbydulski/Runway-sub000/internal/observability/context"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const (
	HeaderUserID = "X-User-ID"
	contextKey   = "runway.session"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Session struct {
	UserID snowflake.ID
	OrgID  snowflake.ID
	Role   string
}

func (s Session) Actor() string { return "user:" + s.UserID.String() }

func (s Session) IsFounder() bool { return s.Role == userdomain.RoleFounder }

// Middleware resolves X-User-ID into a Session. Requests without a resolvable user are rejected
// with 401 by RequireSession, not here.
func Middleware(users userdomain.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			c.Next()
			return
		}
		user, err := users.Get(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, userdomain.ErrNotFound) {
				_ = c.Error(err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Next()
			return
		}

		sess := &Session{UserID: user.ID, OrgID: user.OrgID, Role: user.Role}
		c.Set(contextKey, sess)
		ctx := obscontext.WithOrgID(c.Request.Context(), user.OrgID.String())
		ctx = obscontext.WithActor(ctx, "user", user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSession aborts with ErrUnauthenticated when Middleware resolved no user.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromGin(c); !ok {
			_ = c.Error(ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Next()
	}
}

func FromGin(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok && sess != nil
}
