package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/auth/session"
	"github.com/abbydulski/Runway-sub000/internal/observability/logger"
	"github.com/abbydulski/Runway-sub000/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProvisioningTriggerRateLimit throttles manual runs per calling user. Limiter failures let the request through.
func (s *Server) ProvisioningTriggerRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		sess, ok := session.FromGin(c)
		if !ok {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := s.limiter.AllowProvisioningTrigger(ctx, sess.UserID.String())
		if err != nil {
			logger.FromContext(ctx).Warn("provisioning trigger rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			logger.FromContext(ctx).Warn("provisioning trigger rate limit exceeded",
				zap.String("user_id", sess.UserID.String()),
				zap.String("endpoint", normalizeRateLimitEndpoint(c)),
			)
			c.Header("Retry-After", retryAfterSeconds(res.RetryAfter))
			AbortWithError(c, ratelimit.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

func retryAfterSeconds(d time.Duration) string {
	if d <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
