package domain

import "time"

// Listing is one classified ad as delivered by a source adapter.
// List pages populate the base fields; MergeDetail folds in the fields
// that are only available on the detail page.
type Listing struct {
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Price       *float64   `json:"price"`
	PriceText   string     `json:"price_text,omitempty"`
	Location    string     `json:"location"`
	PostalCode  string     `json:"postal_code"`
	URL         string     `json:"url"`
	ViewCount   *int       `json:"view_count"`
	PostedAt    *time.Time `json:"posted_at"`
	ImageURL    string     `json:"image_url"`
	Images      []string   `json:"images,omitempty"`
}

// Detail holds the fields scraped from a listing's detail page.
type Detail struct {
	Description string
	Images      []string
	PostedAt    *time.Time
}

// MergeDetail merges detail-page fields into the listing. Only fields
// present in the detail payload overwrite; absent fields keep the
// list-page values.
func (l *Listing) MergeDetail(d Detail) {
	if d.Description != "" {
		l.Description = d.Description
	}
	if len(d.Images) > 0 {
		l.Images = d.Images
		if l.ImageURL == "" {
			l.ImageURL = d.Images[0]
		}
	}
	if d.PostedAt != nil {
		l.PostedAt = d.PostedAt
	}
}

// CombinedText returns the text the filters match against.
func (l *Listing) CombinedText() string {
	if l.Description == "" {
		return l.Title
	}
	return l.Title + " " + l.Description
}
