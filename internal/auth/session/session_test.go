package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubUsers struct {
	userdomain.Service
	users map[snowflake.ID]*userdomain.User
}

func (s stubUsers) Get(_ context.Context, id snowflake.ID) (*userdomain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, userdomain.ErrNotFound
}

func TestMiddlewareResolvesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	users := stubUsers{users: map[snowflake.ID]*userdomain.User{
		42: {ID: 42, OrgID: 7, Role: userdomain.RoleFounder},
	}}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 && !c.Writer.Written() {
			c.AbortWithStatus(http.StatusUnauthorized)
		}
	})
	r.Use(Middleware(users))
	r.GET("/me", RequireSession(), func(c *gin.Context) {
		sess, _ := FromGin(c)
		c.JSON(http.StatusOK, gin.H{"org": sess.OrgID.String(), "founder": sess.IsFounder(), "actor": sess.Actor()})
	})
	r.GET("/open", func(c *gin.Context) {
		_, ok := FromGin(c)
		c.JSON(http.StatusOK, gin.H{"session": ok})
	})

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"known user", "/me", "42", http.StatusOK, `{"actor":"user:42","founder":true,"org":"7"}`},
		{"unknown user", "/me", "43", http.StatusUnauthorized, ""},
		{"garbage header", "/open", "abc", http.StatusOK, `{"session":false}`},
		{"no header", "/open", "", http.StatusOK, `{"session":false}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(HeaderUserID, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, w.Body.String())
			} else {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}
