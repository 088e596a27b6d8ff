package snapshot

import "dealwatch/internal/domain"

// WatchedFields are the listing fields compared by default when
// detecting changes between snapshots.
var WatchedFields = []string{"title", "description", "price", "location"}

// FieldChange records one differing field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Changes is the result of diffing a new payload against the latest
// snapshot.
type Changes struct {
	Changed bool
	// Reason is set instead of Fields when there is no prior snapshot.
	Reason string
	Fields map[string]FieldChange
}

// ReasonNewListing marks a diff against a listing with no prior
// snapshot.
const ReasonNewListing = "new_listing"

// Diff compares the watched fields of a new payload against the latest
// snapshot payload. A nil prev reports changed=true with
// ReasonNewListing and no per-field diffs.
func Diff(prev *domain.Listing, next domain.Listing, fields []string) Changes {
	if prev == nil {
		return Changes{Changed: true, Reason: ReasonNewListing}
	}

	diffs := make(map[string]FieldChange)
	for _, field := range fields {
		oldVal := fieldValue(*prev, field)
		newVal := fieldValue(next, field)
		if !equal(oldVal, newVal) {
			diffs[field] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return Changes{Changed: len(diffs) > 0, Fields: diffs}
}

func fieldValue(l domain.Listing, field string) any {
	switch field {
	case "title":
		return l.Title
	case "description":
		return l.Description
	case "price":
		if l.Price == nil {
			return nil
		}
		return *l.Price
	case "location":
		return l.Location
	case "postal_code":
		return l.PostalCode
	case "url":
		return l.URL
	default:
		return nil
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b
}
