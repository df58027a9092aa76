package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesTokensPerKey(t *testing.T) {
	limiter := New(2, time.Hour)

	assert.True(t, limiter.Allow("/related_nodes"))
	assert.True(t, limiter.Allow("/related_nodes"))
	assert.False(t, limiter.Allow("/related_nodes"), "the bucket is empty")

	// Other keys have their own bucket
	assert.True(t, limiter.Allow("/search"))
}

func TestTokensRefillOverTime(t *testing.T) {
	limiter := New(1, 10*time.Millisecond)

	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))

	time.Sleep(25 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))
}

func TestRefillNeverExceedsCapacity(t *testing.T) {
	limiter := New(2, time.Millisecond)

	assert.True(t, limiter.Allow("k"))
	assert.True(t, limiter.Allow("k"))

	// A long idle stretch refills to capacity, not beyond it
	time.Sleep(20 * time.Millisecond)
	assert.True(t, limiter.Allow("k"))
	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))
}

func TestReset(t *testing.T) {
	limiter := New(1, time.Hour)

	assert.True(t, limiter.Allow("k"))
	assert.False(t, limiter.Allow("k"))

	limiter.Reset("k")
	assert.True(t, limiter.Allow("k"))
}
