package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1), "third send inside the window must be rejected")

	// a rejected send is not recorded, so it doesn't extend the lockout
	assert.False(t, rl.Allow(1))
	assert.Len(t, rl.entries[1], 2)
}

func TestRateLimiter_perUser(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "users are limited independently")
	assert.False(t, rl.Allow(1))
}

func TestRateLimiter_windowExpiry(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow(1), "expired timestamps must not count against the limit")
}

func TestRateLimiter_sweep(t *testing.T) {
	rl := NewRateLimiter(2, 10*time.Millisecond)

	rl.Allow(1)
	rl.Allow(2)
	time.Sleep(20 * time.Millisecond)

	rl.sweep()
	assert.Empty(t, rl.entries, "idle users should be dropped")
}

func TestRateLimiter_stop(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	rl.Run()
	rl.Stop()
}
