package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/gin-gonic/gin"
)

const (
	DefaultCookieName = "_runway_oauth"
	nonceTTL          = 10 * time.Minute
)

// Manager owns the short-lived cookie that binds an OAuth callback to the browser that started it.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.IsProduction(),
	}
}

func (m *Manager) CookieName(provider string) string {
	return m.cookieName + "_" + strings.ToLower(strings.TrimSpace(provider))
}

func (m *Manager) ReadNonce(c *gin.Context, provider string) (string, bool) {
	nonce, err := c.Cookie(m.CookieName(provider))
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(nonce) == "" {
		return "", false
	}
	return nonce, true
}

func (m *Manager) SetNonce(c *gin.Context, provider, nonce string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.CookieName(provider), nonce, int(nonceTTL.Seconds()), "/api/integrations", "", m.secure, true)
}

func (m *Manager) ClearNonce(c *gin.Context, provider string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.CookieName(provider), "", -1, "/api/integrations", "", m.secure, true)
}
