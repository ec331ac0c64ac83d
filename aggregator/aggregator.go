package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/nesohq/krakens/models"
)

const visitorWindow = 24 * time.Hour

// domainStats is the exclusively-owned aggregate for one domain. Every
// mutation happens under its own mutex, so two domains never contend and a
// bad update can't touch anyone else's numbers.
type domainStats struct {
	mu sync.Mutex

	window    minuteWindow
	pages     map[string]int
	referrers map[string]int
	devices   map[string]int
	browsers  map[string]int
	countries map[string]int

	totalHits int64
	visitors  map[string]time.Time // visitor id -> last seen, pruned past 24h

	sessionSeconds float64
	endedSessions  int64
	bounces        int64
}

func newDomainStats() *domainStats {
	return &domainStats{
		pages:     make(map[string]int),
		referrers: make(map[string]int),
		devices:   make(map[string]int),
		browsers:  make(map[string]int),
		countries: make(map[string]int),
		visitors:  make(map[string]time.Time),
	}
}

// Aggregator holds all live aggregate state, in memory only. A restart
// loses it; the long-term numbers live elsewhere, this layer exists to
// answer the dashboard's 5-second polls.
type Aggregator struct {
	mu      sync.RWMutex
	domains map[int]*domainStats
}

func New() *Aggregator {
	return &Aggregator{
		domains: make(map[int]*domainStats),
	}
}

func (a *Aggregator) stats(domainID int) *domainStats {
	a.mu.RLock()
	ds, ok := a.domains[domainID]
	a.mu.RUnlock()
	if ok {
		return ds
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if ds, ok := a.domains[domainID]; ok {
		return ds
	}
	ds = newDomainStats()
	a.domains[domainID] = ds
	return ds
}

// Record folds one normalized event into the domain's aggregates.
func (a *Aggregator) Record(event models.Event) {
	ds := a.stats(event.DomainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.window.add(event.Timestamp.Unix() / 60)
	ds.pages[event.Path]++
	if event.Referrer != "" && event.Referrer != "direct" {
		ds.referrers[event.Referrer]++
	}
	ds.devices[event.Device]++
	ds.browsers[event.Browser]++
	ds.countries[event.Country]++
	ds.totalHits++
	ds.visitors[event.VisitorID] = event.Timestamp
}

// SessionEnded implements tracker.EndObserver. A session that ended with a
// single hit counts as a bounce.
func (a *Aggregator) SessionEnded(domainID int, duration time.Duration, hits int) {
	ds := a.stats(domainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.endedSessions++
	ds.sessionSeconds += duration.Seconds()
	if hits == 1 {
		ds.bounces++
	}
}

// PruneVisitors drops unique-visitor entries older than 24 hours, across
// all domains. Run from the sweep ticker.
func (a *Aggregator) PruneVisitors(now time.Time) {
	a.mu.RLock()
	all := make([]*domainStats, 0, len(a.domains))
	for _, ds := range a.domains {
		all = append(all, ds)
	}
	a.mu.RUnlock()

	cutoff := now.Add(-visitorWindow)
	for _, ds := range all {
		ds.mu.Lock()
		for id, seen := range ds.visitors {
			if seen.Before(cutoff) {
				delete(ds.visitors, id)
			}
		}
		ds.mu.Unlock()
	}
}

// StartPruning runs PruneVisitors on a ticker until stop is closed.
func (a *Aggregator) StartPruning(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.PruneVisitors(time.Now())
			case <-stop:
				return
			}
		}
	}()
}

// Realtime copies the domain's live aggregates under its lock and hands
// back an independent snapshot; marshaling never blocks ingestion. The
// active visitor count comes from the session tracker.
func (a *Aggregator) Realtime(domainID int, activeVisitors int, now time.Time) models.RealtimeStats {
	ds := a.stats(domainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	return models.RealtimeStats{
		ActiveVisitors: activeVisitors,
		HitsPerMinute:  ds.window.series(now.Unix() / 60),
		TopPages:       topPages(ds.pages, 5),
		TopReferrers:   topReferrers(ds.referrers, 5),
		Devices:        copyCounts(ds.devices),
		Browsers:       copyCounts(ds.browsers),
		Countries:      copyCounts(ds.countries),
	}
}

// Overview returns the all-time totals plus the rolling 24-hour unique
// visitor count. Stale visitor entries are pruned here too, so a lagging
// sweeper never inflates the number.
func (a *Aggregator) Overview(domainID int, now time.Time) models.OverviewStats {
	ds := a.stats(domainID)

	ds.mu.Lock()
	defer ds.mu.Unlock()

	cutoff := now.Add(-visitorWindow)
	for id, seen := range ds.visitors {
		if seen.Before(cutoff) {
			delete(ds.visitors, id)
		}
	}

	stats := models.OverviewStats{
		TotalHits:      ds.totalHits,
		UniqueVisitors: len(ds.visitors),
	}
	if ds.endedSessions > 0 {
		stats.AvgSessionTime = ds.sessionSeconds / float64(ds.endedSessions)
		stats.BounceRate = float64(ds.bounces) / float64(ds.endedSessions)
	}
	return stats
}

type labelCount struct {
	label string
	count int
}

// rank sorts by count descending, ties broken by label ascending, so the
// same input sequence always produces the same top list.
func rank(counts map[string]int, n int) []labelCount {
	ranked := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		ranked = append(ranked, labelCount{label: label, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].label < ranked[j].label
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func topPages(counts map[string]int, n int) []models.PageHits {
	top := make([]models.PageHits, 0, n)
	for _, lc := range rank(counts, n) {
		top = append(top, models.PageHits{Path: lc.label, Hits: lc.count})
	}
	return top
}

func topReferrers(counts map[string]int, n int) []models.ReferrerHits {
	top := make([]models.ReferrerHits, 0, n)
	for _, lc := range rank(counts, n) {
		top = append(top, models.ReferrerHits{Referrer: lc.label, Hits: lc.count})
	}
	return top
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for label, count := range counts {
		out[label] = count
	}
	return out
}
