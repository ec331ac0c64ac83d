package models

import "time"

// Beacon is the raw tracking payload sent by the embedded snippet.
type Beacon struct {
	DomainID  int    `json:"domain_id"`
	Path      string `json:"path"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	VisitorID string `json:"visitor_id"`
}

// Event is a normalized beacon. Events live only as long as the aggregation
// windows they are folded into; nothing here is persisted.
type Event struct {
	DomainID  int       `json:"domainId"`
	VisitorID string    `json:"visitorId"`
	Path      string    `json:"path"`
	Referrer  string    `json:"referrer"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	Country   string    `json:"country"`
	IP        string    `json:"-"` // already anonymized when the domain requires it
	Timestamp time.Time `json:"timestamp"`
}
