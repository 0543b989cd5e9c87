// Package applications implements the planning application registry for
// Verdict. An application is the long-lived case a council tracks; each
// round of submitted documents is stored against it as a submission.
package applications

import (
	"time"

	"github.com/google/uuid"
)

// Application represents a registered planning application. SiteAddress,
// Postcode, and Proposal are caches refreshed from the latest validated
// submission's extracted fields; read paths fall back to those fields
// when a cache column is unset.
type Application struct {
	ID          uuid.UUID  `json:"id"`
	Reference   string     `json:"reference"`
	SiteAddress *string    `json:"site_address"`
	Postcode    *string    `json:"postcode"`
	Proposal    *string    `json:"proposal"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to register an application.
// Reference must be unique across the registry.
type CreateCommand struct {
	Reference   string  `json:"reference"`
	SiteAddress *string `json:"site_address,omitempty"`
	Postcode    *string `json:"postcode,omitempty"`
	Proposal    *string `json:"proposal,omitempty"`
}

// CacheCommand carries refreshed cache values taken from a validated
// submission. Nil fields leave the existing cache untouched.
type CacheCommand struct {
	SiteAddress *string `json:"site_address,omitempty"`
	Postcode    *string `json:"postcode,omitempty"`
	Proposal    *string `json:"proposal,omitempty"`
}
