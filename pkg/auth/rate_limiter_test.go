package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_ExhaustsAndDenies(t *testing.T) {
	limiter := NewTokenBucketLimiter(2, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, allowed)

	allowed, _ = limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, allowed, "third request within the window must be denied")

	// Other keys have their own bucket
	allowed, _ = limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_SetRateTakesEffect(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Minute)
	ctx := context.Background()

	allowed, _ := limiter.Allow(ctx, "before")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "before")
	assert.False(t, allowed)

	limiter.SetRate(3)

	// New keys start with the raised capacity
	for i := 0; i < 3; i++ {
		allowed, _ = limiter.Allow(ctx, "after")
		assert.True(t, allowed, "request %d should pass under the raised rate", i+1)
	}
	allowed, _ = limiter.Allow(ctx, "after")
	assert.False(t, allowed)

	// A reset key refills to the raised capacity too
	require.NoError(t, limiter.Reset(ctx, "before"))
	allowed, _ = limiter.Allow(ctx, "before")
	assert.True(t, allowed)
}

func TestTokenBucketLimiter_SetRateIgnoresNonPositive(t *testing.T) {
	limiter := NewTokenBucketLimiter(1, time.Minute)
	ctx := context.Background()

	limiter.SetRate(0)
	limiter.SetRate(-5)

	allowed, _ := limiter.Allow(ctx, "key")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow(ctx, "key")
	assert.False(t, allowed, "capacity must stay at 1 after ignored updates")
}
