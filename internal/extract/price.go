package extract

import (
	"strings"

	"dealwatch/internal/textmatch"
)

// priceSentinels are price texts that carry no numeric price at all.
var priceSentinels = []string{"dohodou", "v texte"}

// perUnitMarkers flag a price quoted per unit of area rather than as a
// total. Matching runs on normalized text, so "EUR/m²" arrives as
// "eur/m2".
var perUnitMarkers = []string{
	"/m2", "za m2", "za meter", "/ar", "za ar", "/ha",
}

// PriceConfig configures ValidatePrice. MinRealisticPrice of 0 disables
// the absolute-floor heuristic.
type PriceConfig struct {
	MinRealisticPrice float64
}

// ValidatePrice decides whether a scraped price is usable as the
// listing's total price. It returns nil when the raw text is a
// no-price sentinel, when the raw text or surrounding context carries a
// per-unit marker, or when the value falls below the configured floor.
// A price too small to be a real total is almost always a mislabeled
// per-square-meter price.
func ValidatePrice(price *float64, rawText, context string, cfg PriceConfig) *float64 {
	raw := textmatch.Normalize(rawText)
	for _, s := range priceSentinels {
		if raw == s {
			return nil
		}
	}

	combined := raw + " " + textmatch.Normalize(context)
	for _, marker := range perUnitMarkers {
		if strings.Contains(combined, marker) {
			return nil
		}
	}

	if price == nil {
		return nil
	}
	if cfg.MinRealisticPrice > 0 && *price < cfg.MinRealisticPrice {
		return nil
	}
	return price
}
