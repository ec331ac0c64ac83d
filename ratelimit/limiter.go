package ratelimit

import (
	"sync"
	"time"
)

type windowKey struct {
	domainID int
	minute   int64 // unix minute
}

// Limiter is a fixed-window counter keyed by (domain id, current minute).
// The capacity is passed on every call because domain settings can change
// between two beacons; the new limit applies immediately.
type Limiter struct {
	mu      sync.Mutex
	windows map[windowKey]int
}

func NewLimiter() *Limiter {
	return &Limiter{
		windows: make(map[windowKey]int),
	}
}

// Allow reports whether one more beacon fits in the domain's current minute
// window, and consumes a slot if it does. A limit <= 0 disables limiting.
func (l *Limiter) Allow(domainID, limit int) bool {
	return l.AllowAt(domainID, limit, time.Now())
}

func (l *Limiter) AllowAt(domainID, limit int, now time.Time) bool {
	if limit <= 0 {
		return true
	}

	key := windowKey{domainID: domainID, minute: now.Unix() / 60}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.windows[key] >= limit {
		return false
	}
	l.windows[key]++
	return true
}

// Prune drops counters for windows before the current minute. Expired
// windows are never consulted again, so this is purely a memory bound.
func (l *Limiter) Prune(now time.Time) {
	minute := now.Unix() / 60

	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.windows {
		if key.minute < minute {
			delete(l.windows, key)
		}
	}
}

// StartPruning runs Prune on a ticker until stop is closed.
func (l *Limiter) StartPruning(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Prune(time.Now())
			case <-stop:
				return
			}
		}
	}()
}
