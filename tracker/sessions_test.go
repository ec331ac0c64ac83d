package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	mu    sync.Mutex
	ended []endedSession
}

type endedSession struct {
	domainID int
	duration time.Duration
	hits     int
}

func (o *recordingObserver) SessionEnded(domainID int, duration time.Duration, hits int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ended = append(o.ended, endedSession{domainID: domainID, duration: duration, hits: hits})
}

func (o *recordingObserver) all() []endedSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]endedSession(nil), o.ended...)
}

const timeout = 30 * time.Second

func TestTouchNewVersusContinuing(t *testing.T) {
	sessions := NewSessions(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, sessions.Touch(1, "v1", timeout, now), "first beacon starts a session")
	assert.False(t, sessions.Touch(1, "v1", timeout, now.Add(10*time.Second)), "beacon within timeout continues")
	assert.True(t, sessions.Touch(1, "v2", timeout, now), "different visitor is a different session")
	assert.True(t, sessions.Touch(2, "v1", timeout, now), "same visitor on another domain is a different session")
}

func TestTouchAfterTimeoutStartsNewSession(t *testing.T) {
	observer := &recordingObserver{}
	sessions := NewSessions(observer)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "v1", timeout, now)
	sessions.Touch(1, "v1", timeout, now.Add(10*time.Second))

	assert.True(t, sessions.Touch(1, "v1", timeout, now.Add(50*time.Second)), "beacon past the timeout starts over")

	ended := observer.all()
	assert.Len(t, ended, 1, "the stale session was closed out first")
	assert.Equal(t, 1, ended[0].domainID)
	assert.Equal(t, 10*time.Second, ended[0].duration)
	assert.Equal(t, 2, ended[0].hits)
}

func TestActiveCountExcludesExpired(t *testing.T) {
	sessions := NewSessions(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "v1", timeout, now)
	sessions.Touch(1, "v2", timeout, now.Add(20*time.Second))

	assert.Equal(t, 2, sessions.ActiveCount(1, now.Add(29*time.Second)), "both inside the timeout")
	assert.Equal(t, 1, sessions.ActiveCount(1, now.Add(31*time.Second)), "v1 expired, even before any sweep")
	assert.Equal(t, 0, sessions.ActiveCount(2, now), "other domains are empty")
}

func TestActiveCountNotBeforeTimeout(t *testing.T) {
	sessions := NewSessions(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "v1", timeout, now)

	assert.Equal(t, 1, sessions.ActiveCount(1, now.Add(timeout)), "still active at exactly the timeout")
	assert.Equal(t, 0, sessions.ActiveCount(1, now.Add(timeout+time.Second)))
}

func TestSweepEndsExpiredSessionsOnce(t *testing.T) {
	observer := &recordingObserver{}
	sessions := NewSessions(observer)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "bouncer", timeout, now)
	sessions.Touch(1, "reader", timeout, now)
	sessions.Touch(1, "reader", timeout, now.Add(15*time.Second))

	sessions.Sweep(now.Add(20 * time.Second))
	assert.Empty(t, observer.all(), "nothing expired yet")

	sessions.Sweep(now.Add(50 * time.Second))
	ended := observer.all()
	assert.Len(t, ended, 2)

	bounces := 0
	for _, e := range ended {
		if e.hits == 1 {
			bounces++
		}
	}
	assert.Equal(t, 1, bounces, "only the one-hit session is a bounce")

	sessions.Sweep(now.Add(2 * time.Minute))
	assert.Len(t, observer.all(), 2, "a session ends exactly once")
}

func TestSweepCoversAllDomains(t *testing.T) {
	observer := &recordingObserver{}
	sessions := NewSessions(observer)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "v1", timeout, now)
	sessions.Touch(2, "v1", timeout, now)
	sessions.Touch(3, "v1", timeout, now.Add(20*time.Second))

	sessions.Sweep(now.Add(45 * time.Second))

	ended := observer.all()
	assert.Len(t, ended, 2)
	domains := map[int]bool{}
	for _, e := range ended {
		domains[e.domainID] = true
	}
	assert.True(t, domains[1] && domains[2], "expired sessions on every domain are closed")
	assert.Equal(t, 1, sessions.ActiveCount(3, now.Add(45*time.Second)), "the fresh session survives the sweep")
}

func TestConcurrentTouchAndCountAcrossDomains(t *testing.T) {
	sessions := NewSessions(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for d := 1; d <= 4; d++ {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				sessions.Touch(d, fmt.Sprintf("v%d", i%50), timeout, now)
				sessions.ActiveCount(d, now)
			}
		}()
	}
	wg.Wait()

	for d := 1; d <= 4; d++ {
		assert.Equal(t, 50, sessions.ActiveCount(d, now))
	}
}

func TestSessionTimeoutChangeAppliesOnNextBeacon(t *testing.T) {
	sessions := NewSessions(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sessions.Touch(1, "v1", 30*time.Second, now)
	sessions.Touch(1, "v1", 5*time.Minute, now.Add(10*time.Second))

	assert.Equal(t, 1, sessions.ActiveCount(1, now.Add(4*time.Minute)), "the longer timeout is in effect")
}
