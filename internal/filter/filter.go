// Package filter implements the two-phase listing filters: a cheap
// quick pass over list-page fields and a full pass over detail-page
// text.
package filter

import (
	"fmt"
	"log/slog"

	"dealwatch/internal/domain"
)

// Phase selects which evaluation tier runs.
type Phase int

const (
	// PhaseQuick evaluates list-page data only. It must never depend on
	// fields that list pages truncate (notably the description): a quick
	// reject is terminal and a false one is unrecoverable.
	PhaseQuick Phase = iota
	// PhaseFull evaluates the merged listing after the detail fetch.
	PhaseFull
)

func (p Phase) String() string {
	if p == PhaseQuick {
		return "quick"
	}
	return "full"
}

// Verdict is the outcome of one evaluation.
type Verdict struct {
	Pass   bool
	Reason string
}

func pass() Verdict { return Verdict{Pass: true} }

func reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Filter evaluates a listing in a given phase.
type Filter interface {
	Evaluate(listing *domain.Listing, phase Phase) Verdict
}

// Criteria holds the configuration of one filter. Immutable after
// construction; filters never write to it.
type Criteria struct {
	KeywordsAny      []string
	KeywordsAll      []string
	KeywordsEngine   []string
	KeywordsExcluded []string

	PriceMin *float64
	PriceMax *float64

	AreaMin           float64
	AreaUnits         map[string]float64
	LandKeywords      []string
	FloorAreaKeywords []string
	LikelyLandMin     float64

	// MinRealisticPrice flags prices below it as mislabeled per-unit
	// prices. 0 disables the heuristic.
	MinRealisticPrice float64
}

// Category types understood by the factory.
const (
	TypeVehicle = "vehicle"
	TypeLand    = "land"
)

// New builds the filter for a category type.
func New(categoryType string, c Criteria, logger *slog.Logger) (Filter, error) {
	switch categoryType {
	case TypeVehicle:
		return newVehicleFilter(c, logger), nil
	case TypeLand:
		return newLandFilter(c, logger), nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", categoryType)
	}
}

// checkPriceBounds applies min/max against a validated price. A listing
// with no usable price passes bounds; full-phase concerns about
// missing prices belong to the concrete filters.
func checkPriceBounds(price *float64, c Criteria) Verdict {
	if price == nil {
		return pass()
	}
	if c.PriceMin != nil && *price < *c.PriceMin {
		return reject("price %.0f below minimum %.0f", *price, *c.PriceMin)
	}
	if c.PriceMax != nil && *price > *c.PriceMax {
		return reject("price %.0f above maximum %.0f", *price, *c.PriceMax)
	}
	return pass()
}
