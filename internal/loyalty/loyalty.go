package loyalty

import (
	"errors"
	"time"
)

var (
	// ErrEmptySelection means the user submitted a scan without marking
	// any item as a front-shelf pick
	ErrEmptySelection = errors.New("no front-shelf items selected")

	// ErrProfileNotFound means the submission target no longer exists
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is a loyalty member with cumulative reward totals. Rank is
// always recomputed from TotalPoints on update, never set directly.
type Profile struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	DisplayName      string    `json:"display_name"`
	Bio              string    `json:"bio,omitempty"`
	TotalPoints      int       `json:"total_points"`
	TotalReductionKg float64   `json:"total_reduction_kg"`
	Rank             string    `json:"rank"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Activity is the frozen record of one confirmed scan. Append-only: no
// updates or deletes are defined for activities.
type Activity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	StoreName    string    `json:"store_name"`
	Items        []string  `json:"items"` // names of the selected items
	Points       int       `json:"points"`
	ReductionKg  float64   `json:"reduction_kg"`
	ReceiptTotal int       `json:"receipt_total"`
	CreatedAt    time.Time `json:"created_at"`
}
