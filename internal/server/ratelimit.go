package server

import (
	"sync"
	"time"
)

const sweepInterval = time.Minute

// RateLimiter throttles message sends with a sliding window per user.
// Safe for concurrent use from multiple connections of the same user.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[int][]time.Time
	stop    chan struct{}
	done    chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[int][]time.Time),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Allow records a send for userId if it is under the limit and reports
// whether the send may proceed.
func (rl *RateLimiter) Allow(userId int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.entries[userId][:0]
	for _, ts := range rl.entries[userId] {
		if now.Sub(ts) < rl.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.limit {
		rl.entries[userId] = recent
		return false
	}

	rl.entries[userId] = append(recent, now)
	return true
}

// Run sweeps entries for users who stopped sending so the map does not
// grow unboundedly. Sweep timing is a liveness concern only.
func (rl *RateLimiter) Run() {
	go func() {
		defer close(rl.done)

		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.sweep()
			case <-rl.stop:
				return
			}
		}
	}()
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for userId, timestamps := range rl.entries {
		idle := true
		for _, ts := range timestamps {
			if now.Sub(ts) < rl.window {
				idle = false
				break
			}
		}

		if idle {
			delete(rl.entries, userId)
		}
	}
}

func (rl *RateLimiter) Stop() {
	close(rl.stop)
	<-rl.done
}
