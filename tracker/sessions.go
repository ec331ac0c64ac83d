package tracker

import (
	"sync"
	"time"
)

type session struct {
	firstSeen time.Time
	lastSeen  time.Time
	hits      int
	timeout   time.Duration
}

func (s *session) expired(now time.Time) bool {
	return now.Sub(s.lastSeen) > s.timeout
}

// EndObserver is told about every session that ends, so bounce and
// session-time accounting happen exactly once per session.
type EndObserver interface {
	SessionEnded(domainID int, duration time.Duration, hits int)
}

// domainSessions owns one domain's visitors. Each domain has its own
// mutex, so a poll or a beacon for one domain never waits on another's.
type domainSessions struct {
	mu       sync.Mutex
	visitors map[string]*session
}

// Sessions tracks one session per (domain, visitor). A beacon within the
// domain's timeout continues the session; anything later starts a new one.
type Sessions struct {
	mu       sync.RWMutex
	domains  map[int]*domainSessions
	observer EndObserver
}

func NewSessions(observer EndObserver) *Sessions {
	return &Sessions{
		domains:  make(map[int]*domainSessions),
		observer: observer,
	}
}

func (s *Sessions) domain(domainID int) *domainSessions {
	s.mu.RLock()
	ds, ok := s.domains[domainID]
	s.mu.RUnlock()
	if ok {
		return ds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.domains[domainID]; ok {
		return ds
	}
	ds = &domainSessions{visitors: make(map[string]*session)}
	s.domains[domainID] = ds
	return ds
}

// Touch records a beacon and reports whether it started a new session. The
// timeout comes from the domain's current settings, so a settings change
// applies from the next beacon on.
func (s *Sessions) Touch(domainID int, visitorID string, timeout time.Duration, now time.Time) bool {
	ds := s.domain(domainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	if sess, ok := ds.visitors[visitorID]; ok {
		if !sess.expired(now) {
			sess.lastSeen = now
			sess.hits++
			sess.timeout = timeout
			return false
		}
		// Expired but not yet swept: close it out before starting over.
		s.end(domainID, sess)
	}

	ds.visitors[visitorID] = &session{
		firstSeen: now,
		lastSeen:  now,
		hits:      1,
		timeout:   timeout,
	}
	return true
}

// ActiveCount returns the number of visitors with a live session on the
// domain. Expired entries are excluded even if the sweeper hasn't reached
// them yet. Only this domain's visitors are scanned, and only this
// domain's lock is held.
func (s *Sessions) ActiveCount(domainID int, now time.Time) int {
	ds := s.domain(domainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	count := 0
	for _, sess := range ds.visitors {
		if !sess.expired(now) {
			count++
		}
	}
	return count
}

// Sweep removes expired sessions and notifies the observer for each one,
// one domain at a time.
func (s *Sessions) Sweep(now time.Time) {
	s.mu.RLock()
	all := make(map[int]*domainSessions, len(s.domains))
	for domainID, ds := range s.domains {
		all[domainID] = ds
	}
	s.mu.RUnlock()

	for domainID, ds := range all {
		ds.mu.Lock()
		for visitorID, sess := range ds.visitors {
			if sess.expired(now) {
				s.end(domainID, sess)
				delete(ds.visitors, visitorID)
			}
		}
		ds.mu.Unlock()
	}
}

// StartSweeping runs Sweep on a ticker until stop is closed. The interval
// should stay well under the smallest configurable session timeout so the
// active-visitor count doesn't go stale.
func (s *Sessions) StartSweeping(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(time.Now())
			case <-stop:
				return
			}
		}
	}()
}

func (s *Sessions) end(domainID int, sess *session) {
	if s.observer != nil {
		s.observer.SessionEnded(domainID, sess.lastSeen.Sub(sess.firstSeen), sess.hits)
	}
}
