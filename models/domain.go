package models

import (
	"errors"
	"strings"
	"time"
)

type Domain struct {
	ID        int            `json:"id"`
	UserID    int            `json:"userId"` // Foreign key to User model
	Host      string         `json:"host"`
	Verified  bool           `json:"verified"`
	Settings  DomainSettings `json:"settings"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// DomainSettings are re-read from the database on every beacon, so a change
// takes effect on the next request.
type DomainSettings struct {
	AnonymizeIP      bool   `json:"anonymizeIp"`
	RateLimit        int    `json:"rateLimit"` // beacons per minute
	TrackQueryParams bool   `json:"trackQueryParams"`
	SessionTimeout   int    `json:"sessionTimeout"` // seconds of inactivity before a session ends
	Timezone         string `json:"timezone"`
}

func DefaultSettings() DomainSettings {
	return DomainSettings{
		AnonymizeIP:      true,
		RateLimit:        600,
		TrackQueryParams: false,
		SessionTimeout:   1800,
		Timezone:         "UTC",
	}
}

type DomainInsert struct {
	Host string `json:"host"`
}

func (d *DomainInsert) Validate() error {
	if d.Host == "" {
		return errors.New("host is required")
	}
	if strings.Contains(d.Host, "://") {
		return errors.New("host must not include a scheme")
	}
	if strings.ContainsAny(d.Host, "/ ?") {
		return errors.New("host must be a bare domain name")
	}
	if !strings.Contains(d.Host, ".") {
		return errors.New("invalid host")
	}
	return nil
}

type DomainSettingsUpdate struct {
	Settings DomainSettings `json:"settings"`
}

func (d *DomainSettingsUpdate) Validate() error {
	if d.Settings.RateLimit < 0 {
		return errors.New("rateLimit must not be negative")
	}
	if d.Settings.SessionTimeout < 30 {
		return errors.New("sessionTimeout must be at least 30 seconds")
	}
	if d.Settings.Timezone == "" {
		return errors.New("timezone is required")
	}
	return nil
}
