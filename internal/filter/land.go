package filter

import (
	"log/slog"

	"dealwatch/internal/domain"
	"dealwatch/internal/extract"
	"dealwatch/internal/textmatch"
)

// landFilter matches land listings: plot area above a minimum, price
// within bounds, no excluded keywords, per-unit prices rejected.
type landFilter struct {
	criteria Criteria
	area     *extract.AreaExtractor
	priceCfg extract.PriceConfig
	logger   *slog.Logger
}

func newLandFilter(c Criteria, logger *slog.Logger) *landFilter {
	return &landFilter{
		criteria: c,
		area: extract.NewAreaExtractor(extract.AreaConfig{
			Units:             c.AreaUnits,
			LandKeywords:      c.LandKeywords,
			FloorAreaKeywords: c.FloorAreaKeywords,
			LikelyLandMin:     c.LikelyLandMin,
		}),
		priceCfg: extract.PriceConfig{MinRealisticPrice: c.MinRealisticPrice},
		logger:   logger.With("filter", TypeLand),
	}
}

func (f *landFilter) Evaluate(listing *domain.Listing, phase Phase) Verdict {
	if phase == PhaseQuick {
		return f.quick(listing)
	}
	return f.full(listing)
}

// quick checks the list-page price only. Area extraction is deliberately
// deferred: list pages truncate descriptions and the area is frequently
// missing from them.
func (f *landFilter) quick(listing *domain.Listing) Verdict {
	price := extract.ValidatePrice(listing.Price, listing.PriceText, listing.PriceText, f.priceCfg)
	if v := checkPriceBounds(price, f.criteria); !v.Pass {
		return f.rejected(listing, PhaseQuick, v)
	}
	return pass()
}

func (f *landFilter) full(listing *domain.Listing) Verdict {
	text := listing.CombinedText()

	if !textmatch.ExcludesAll(text, f.criteria.KeywordsExcluded) {
		return f.rejected(listing, PhaseFull, reject("contains excluded keyword"))
	}

	if listing.Price != nil {
		price := extract.ValidatePrice(listing.Price, listing.PriceText, text, f.priceCfg)
		if price == nil {
			return f.rejected(listing, PhaseFull, reject("per-unit or unrealistic price %.2f", *listing.Price))
		}
		if v := checkPriceBounds(price, f.criteria); !v.Pass {
			return f.rejected(listing, PhaseFull, v)
		}
	}

	area, ok := f.area.Extract(text)
	if !ok {
		return f.rejected(listing, PhaseFull, reject("no land area found"))
	}
	if area < f.criteria.AreaMin {
		return f.rejected(listing, PhaseFull, reject("area %.0f m2 below minimum %.0f m2", area, f.criteria.AreaMin))
	}

	f.logger.Debug("listing matched",
		"external_id", listing.ExternalID,
		"area_m2", area,
		"price", listing.Price,
	)
	return pass()
}

func (f *landFilter) rejected(listing *domain.Listing, phase Phase, v Verdict) Verdict {
	f.logger.Debug("listing rejected",
		"external_id", listing.ExternalID,
		"phase", phase.String(),
		"reason", v.Reason,
	)
	return v
}
