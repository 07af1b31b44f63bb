package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyProvisioningTrigger = "runway:ratelimit:provision:user:%s"
	keyInviteSend          = "runway:ratelimit:invite:org:%s"
)

// ErrRateLimited is returned by callers when a Result is not Allowed.
var ErrRateLimited = errors.New("rate_limited")

// Policy is a token bucket refilling Rate tokens per second up to Burst.
type Policy struct {
	Rate  float64
	Burst int
}

var (
	// Manual triggers hit every provider the org has connected.
	DefaultTriggerPolicy = Policy{Rate: 1.0 / 10, Burst: 3}
	DefaultInvitePolicy  = Policy{Rate: 1, Burst: 20}
)

// Limiter guards outbound-heavy endpoints. A nil Limiter, or one without Redis, allows everything.
type Limiter struct {
	bucket  *TokenBucket
	log     *zap.Logger
	trigger Policy
	invite  Policy
}

func NewLimiter(client *redis.Client, log *zap.Logger) *Limiter {
	l := &Limiter{
		log:     log.Named("ratelimit"),
		trigger: DefaultTriggerPolicy,
		invite:  DefaultInvitePolicy,
	}
	if client != nil {
		l.bucket = NewTokenBucket(client)
	}
	return l
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *Limiter) AllowProvisioningTrigger(ctx context.Context, userID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.allow(ctx, fmt.Sprintf(keyProvisioningTrigger, strings.TrimSpace(userID)), l.trigger)
}

func (l *Limiter) AllowInvite(ctx context.Context, orgID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.allow(ctx, fmt.Sprintf(keyInviteSend, strings.TrimSpace(orgID)), l.invite)
}

// allow fails open: a Redis outage must not block onboarding.
func (l *Limiter) allow(ctx context.Context, key string, p Policy) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, key, p.Rate, p.Burst)
	if err != nil {
		l.log.Warn("rate limiter unavailable; allowing request", zap.String("key", key), zap.Error(err))
		return &Result{Allowed: true}, nil
	}
	return res, nil
}
