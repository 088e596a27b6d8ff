package domain

import "time"

// Scraping run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ScrapingRun tracks one execution of the pipeline for a category.
type ScrapingRun struct {
	ID                   int64      `db:"id"`
	CategoryID           int64      `db:"category_id"`
	StartedAt            time.Time  `db:"started_at"`
	CompletedAt          *time.Time `db:"completed_at"`
	Status               string     `db:"status"`
	ListingsProcessed    int        `db:"listings_processed"`
	NewDealsFound        int        `db:"new_deals_found"`
	PriceChangesDetected int        `db:"price_changes_detected"`
	DealsDisappeared     int        `db:"deals_disappeared"`
	ErrorMessage         *string    `db:"error_message"`
}

// RunUpdate carries the terminal state of a scraping run.
type RunUpdate struct {
	Status               string
	ListingsProcessed    int
	NewDealsFound        int
	PriceChangesDetected int
	DealsDisappeared     int
	ErrorMessage         *string
}

// RunStats holds counters for one pipeline run.
type RunStats struct {
	CategoryID        int64
	ListingsProcessed int
	QuickRejected     int
	FullRejected      int
	Matches           int
	NewDeals          int
	PriceChanges      int
	Disappeared       int
	Errors            int
	Duration          time.Duration
}
