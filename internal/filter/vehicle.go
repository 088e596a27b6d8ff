package filter

import (
	"log/slog"

	"dealwatch/internal/domain"
	"dealwatch/internal/extract"
	"dealwatch/internal/textmatch"
)

// vehicleFilter matches car listings by model/engine keywords and price
// bounds.
type vehicleFilter struct {
	criteria Criteria
	priceCfg extract.PriceConfig
	logger   *slog.Logger
}

func newVehicleFilter(c Criteria, logger *slog.Logger) *vehicleFilter {
	return &vehicleFilter{
		criteria: c,
		priceCfg: extract.PriceConfig{MinRealisticPrice: c.MinRealisticPrice},
		logger:   logger.With("filter", TypeVehicle),
	}
}

func (f *vehicleFilter) Evaluate(listing *domain.Listing, phase Phase) Verdict {
	if phase == PhaseQuick {
		price := extract.ValidatePrice(listing.Price, listing.PriceText, listing.PriceText, f.priceCfg)
		if v := checkPriceBounds(price, f.criteria); !v.Pass {
			return f.rejected(listing, PhaseQuick, v)
		}
		return pass()
	}

	text := listing.CombinedText()

	if len(f.criteria.KeywordsAny) > 0 && !textmatch.ContainsAny(text, f.criteria.KeywordsAny) {
		return f.rejected(listing, PhaseFull, reject("no model keyword matched"))
	}
	if !textmatch.ContainsAll(text, f.criteria.KeywordsAll) {
		return f.rejected(listing, PhaseFull, reject("missing required keyword"))
	}
	if len(f.criteria.KeywordsEngine) > 0 && !textmatch.ContainsAny(text, f.criteria.KeywordsEngine) {
		return f.rejected(listing, PhaseFull, reject("no engine keyword matched"))
	}
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

	f.logger.Debug("listing matched", "external_id", listing.ExternalID, "price", listing.Price)
	return pass()
}

func (f *vehicleFilter) rejected(listing *domain.Listing, phase Phase, v Verdict) Verdict {
	f.logger.Debug("listing rejected",
		"external_id", listing.ExternalID,
		"phase", phase.String(),
		"reason", v.Reason,
	)
	return v
}
