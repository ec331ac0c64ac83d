package models

import (
	"errors"
	"time"
)

type APIKey struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"` // Foreign key to User model
	Prefix    string    `json:"prefix"` // first characters of the secret, for display
	DomainIDs []int     `json:"domainIds"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"createdAt"`
}

type APIKeyInsert struct {
	DomainIDs []int `json:"domainIds"`
}

func (k *APIKeyInsert) Validate() error {
	if len(k.DomainIDs) == 0 {
		return errors.New("at least one domain id is required")
	}
	for _, id := range k.DomainIDs {
		if id <= 0 {
			return errors.New("domain ids must be greater than zero")
		}
	}
	return nil
}

// APIKeyCreated is returned once, at creation time. The secret is never
// stored or shown again.
type APIKeyCreated struct {
	APIKey
	Secret string `json:"secret"`
}
