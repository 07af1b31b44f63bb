package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLimiterWithoutRedisAllows(t *testing.T) {
	l := NewLimiter(nil, zaptest.NewLogger(t))
	assert.False(t, l.Enabled())

	for i := 0; i < 10; i++ {
		res, err := l.AllowProvisioningTrigger(context.Background(), "42")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	var nilLimiter *Limiter
	res, err := nilLimiter.AllowInvite(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNilLockerGrants(t *testing.T) {
	var l *Locker
	token, ok, err := l.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, l.Release(context.Background(), "k", token))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 60*time.Second, bucketTTL(0.1, 3))
	assert.Equal(t, time.Second, bucketTTL(100, 1))
}
