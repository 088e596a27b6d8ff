package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Deal is the persistent record of a matched listing, keyed by the
// source's external id.
type Deal struct {
	ID            int64          `db:"id"`
	ExternalID    string         `db:"external_id"`
	CategoryID    int64          `db:"category_id"`
	Title         string         `db:"title"`
	Description   *string        `db:"description"`
	CurrentPrice  *float64       `db:"current_price"`
	Location      *string        `db:"location"`
	PostalCode    *string        `db:"postal_code"`
	URL           string         `db:"url"`
	FirstSeenAt   time.Time      `db:"first_seen_at"`
	LastSeenAt    time.Time      `db:"last_seen_at"`
	LastCheckedAt time.Time      `db:"last_checked_at"`
	IsActive      bool           `db:"is_active"`
	ViewCount     *int           `db:"view_count"`
	ExtraData     types.JSONText `db:"extra_data"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// PriceHistoryEntry is one recorded price for a deal. Append-only; no
// two entries for a deal share the same (price, changed_at).
type PriceHistoryEntry struct {
	ID        int64     `db:"id"`
	DealID    int64     `db:"deal_id"`
	Price     float64   `db:"price"`
	ChangedAt time.Time `db:"changed_at"`
}

type DealImage struct {
	ID        int64     `db:"id"`
	DealID    int64     `db:"deal_id"`
	ImageURL  string    `db:"image_url"`
	IsPrimary bool      `db:"is_primary"`
	CreatedAt time.Time `db:"created_at"`
}

type Category struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"` // "vehicle" or "land"
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}
