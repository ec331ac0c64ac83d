package models

// RealtimeStats is the snapshot the dashboard polls every few seconds.
type RealtimeStats struct {
	ActiveVisitors int            `json:"activeVisitors"`
	HitsPerMinute  []MinuteHits   `json:"hitsPerMinute"` // oldest to newest, 60 entries
	TopPages       []PageHits     `json:"topPages"`
	TopReferrers   []ReferrerHits `json:"topReferrers"`
	Devices        map[string]int `json:"devices"`
	Browsers       map[string]int `json:"browsers"`
	Countries      map[string]int `json:"countries"`
}

type MinuteHits struct {
	Minute string `json:"minute"` // HH:MM, UTC
	Hits   int    `json:"hits"`
}

type PageHits struct {
	Path string `json:"path"`
	Hits int    `json:"hits"`
}

type ReferrerHits struct {
	Referrer string `json:"referrer"`
	Hits     int    `json:"hits"`
}

type OverviewStats struct {
	TotalHits      int64   `json:"totalHits"`
	UniqueVisitors int     `json:"uniqueVisitors"` // rolling 24 hours
	AvgSessionTime float64 `json:"avgSessionTime"` // seconds, over ended sessions
	BounceRate     float64 `json:"bounceRate"`     // 0..1, over ended sessions
}
