package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowAdmitsExactlyLimitPerMinute(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 30, 0, time.UTC)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.AllowAt(1, 5, now), "beacon %d should be admitted", i+1)
	}
	assert.False(t, limiter.AllowAt(1, 5, now), "beacon 6 should be rejected")
	assert.False(t, limiter.AllowAt(1, 5, now.Add(20*time.Second)), "still the same minute")
}

func TestAllowResetsOnWindowRollover(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 59, 0, time.UTC)

	assert.True(t, limiter.AllowAt(1, 2, now))
	assert.True(t, limiter.AllowAt(1, 2, now))
	assert.False(t, limiter.AllowAt(1, 2, now))

	nextMinute := now.Add(time.Second)
	assert.True(t, limiter.AllowAt(1, 2, nextMinute), "fresh window admits again")
}

func TestAllowIsPerDomain(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.AllowAt(1, 1, now))
	assert.False(t, limiter.AllowAt(1, 1, now))
	assert.True(t, limiter.AllowAt(2, 1, now), "another domain has its own window")
}

func TestAllowZeroLimitMeansUnlimited(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 1000; i++ {
		assert.True(t, limiter.AllowAt(1, 0, now))
	}
}

func TestAllowNeverExceedsLimitUnderConcurrency(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	const workers = 100
	const limit = 37

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.AllowAt(7, limit, now) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, admitted, "no lost updates, no over-admission")
}

func TestPruneDropsOldWindowsOnly(t *testing.T) {
	limiter := NewLimiter()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, limiter.AllowAt(1, 1, now))
	assert.True(t, limiter.AllowAt(1, 1, now.Add(time.Minute)))

	limiter.Prune(now.Add(time.Minute))

	// Current window survives the prune.
	assert.False(t, limiter.AllowAt(1, 1, now.Add(time.Minute)))

	limiter.mu.Lock()
	assert.Len(t, limiter.windows, 1)
	limiter.mu.Unlock()
}
