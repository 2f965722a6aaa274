package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewRateLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "action %d should be allowed", i)
	}
	assert.False(t, limiter.Allow(), "fourth action within the window should be rate limited")
}

func TestRateLimiter_AvailableReflectsUsage(t *testing.T) {
	limiter := NewRateLimiter(5)
	require.Equal(t, 5, limiter.Available())

	limiter.Allow()
	limiter.Allow()
	assert.Equal(t, 3, limiter.Available())
}

func TestRateLimiter_ZeroOrNegativeDefaultsTo60(t *testing.T) {
	limiter := NewRateLimiter(0)
	assert.Equal(t, 60, limiter.Available())

	limiter = NewRateLimiter(-5)
	assert.Equal(t, 60, limiter.Available())
}

func TestRateLimiter_Reset(t *testing.T) {
	limiter := NewRateLimiter(2)
	limiter.Allow()
	limiter.Allow()
	require.False(t, limiter.Allow())

	limiter.Reset()
	assert.True(t, limiter.Allow(), "actions should be allowed again after Reset")
}

func TestRateLimiter_PrunesExpiredActions(t *testing.T) {
	limiter := NewRateLimiter(1)
	limiter.windowDuration = 10 * time.Millisecond

	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, limiter.Allow(), "action should be allowed again once the window expires")
}
