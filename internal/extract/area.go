// Package extract turns free-form Slovak listing text into typed facts:
// a canonical land area and a validated price.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"dealwatch/internal/textmatch"
)

// DefaultAreaUnits maps normalized unit tokens to square-meter
// multipliers. Normalization folds "m²" into "m2" and "hektár" into
// "hektar" before lookup.
var DefaultAreaUnits = map[string]float64{
	"m2":                 1,
	"metrov stvorcovych": 1,
	"metrov":             1,
	"ha":                 10000,
	"hektar":             10000,
	"hektara":            10000,
	"hektare":            10000,
	"hektarov":           10000,
	"ar":                 100,
	"are":                100,
	"arov":               100,
}

// DefaultLandKeywords mark a quantity as referring to the plot itself.
var DefaultLandKeywords = []string{
	"pozemok", "pozemku", "pozemkom", "parcela", "parcele", "parcely",
	"vymera", "orna poda", "luka", "les", "pole",
}

// DefaultFloorAreaKeywords mark a quantity as a floor or usable area,
// which must not be mistaken for the land area.
var DefaultFloorAreaKeywords = []string{
	"uzitkova", "podlahova", "obytna", "zastavana", "plocha domu",
	"plocha chaty",
}

// DefaultLikelyLandMin is the square-meter value above which a quantity
// is taken as land even when its context labels it as floor area.
// Listings label areas unreliably and no building has a floor this big.
const DefaultLikelyLandMin = 5000.0

// contextWindow bounds how much text around an occurrence is inspected
// for classifying keywords.
const contextWindow = 40

// AreaConfig configures an AreaExtractor. Zero values fall back to the
// package defaults.
type AreaConfig struct {
	Units             map[string]float64
	LandKeywords      []string
	FloorAreaKeywords []string
	LikelyLandMin     float64
}

// AreaExtractor scans text for number+unit occurrences and selects the
// quantity most likely to be the listing's land area in square meters.
type AreaExtractor struct {
	units         map[string]float64
	landKw        []string
	floorKw       []string
	likelyLandMin float64
	re            *regexp.Regexp
}

// candidate is one parsed number+unit occurrence with its surrounding
// context. Ephemeral; produced and consumed within a single Extract.
type candidate struct {
	value     float64 // in m²
	unit      string
	left      string
	right     string
	isLand    bool
	isFloorAr bool
}

func NewAreaExtractor(cfg AreaConfig) *AreaExtractor {
	units := cfg.Units
	if len(units) == 0 {
		units = DefaultAreaUnits
	}
	landKw := cfg.LandKeywords
	if len(landKw) == 0 {
		landKw = DefaultLandKeywords
	}
	floorKw := cfg.FloorAreaKeywords
	if len(floorKw) == 0 {
		floorKw = DefaultFloorAreaKeywords
	}
	likelyLandMin := cfg.LikelyLandMin
	if likelyLandMin == 0 {
		likelyLandMin = DefaultLikelyLandMin
	}

	normalized := make(map[string]float64, len(units))
	tokens := make([]string, 0, len(units))
	for token, mult := range units {
		t := textmatch.Normalize(token)
		normalized[t] = mult
		tokens = append(tokens, t)
	}
	// Longest tokens first so "hektarov" wins over "ha" and
	// "metrov stvorcovych" over "metrov".
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	for i, t := range tokens {
		tokens[i] = regexp.QuoteMeta(t)
	}

	pattern := `(\d+(?:[ ,]\d+)*(?:[.,]\d+)?)\s*(` + strings.Join(tokens, "|") + `)\b`

	return &AreaExtractor{
		units:         normalized,
		landKw:        normalizeAll(landKw),
		floorKw:       normalizeAll(floorKw),
		likelyLandMin: likelyLandMin,
		re:            regexp.MustCompile(pattern),
	}
}

// Extract returns the canonical land area in square meters, or false
// when the text yields no credible land quantity.
//
// Occurrences whose context names the plot ("pozemok", "parcela", ...)
// take precedence; a land label overrides a floor-area label when both
// appear. Unlabeled occurrences are eligible too. When every occurrence
// is labeled as floor area, the maximum is still accepted if it exceeds
// the likely-land threshold.
func (e *AreaExtractor) Extract(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	normalized := textmatch.Normalize(text)

	var eligible, floorOnly []candidate
	for _, idx := range e.re.FindAllStringSubmatchIndex(normalized, -1) {
		numberText := normalized[idx[2]:idx[3]]
		unit := normalized[idx[4]:idx[5]]

		value, err := parseNumber(numberText)
		if err != nil {
			continue
		}

		c := candidate{
			value: value * e.units[unit],
			unit:  unit,
			left:  window(normalized, idx[0], -contextWindow),
			right: window(normalized, idx[1], contextWindow),
		}
		context := c.left + " " + c.right
		c.isLand = containsAnyToken(context, e.landKw)
		c.isFloorAr = containsAnyToken(context, e.floorKw)

		if c.isFloorAr && !c.isLand {
			floorOnly = append(floorOnly, c)
		} else {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) > 0 {
		return maxValue(eligible), true
	}
	if len(floorOnly) > 0 {
		if max := maxValue(floorOnly); max > e.likelyLandMin {
			return max, true
		}
	}
	return 0, false
}

// parseNumber parses a grouped Slovak number: internal spaces are
// grouping, a comma is a decimal comma.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, fmt.Errorf("ambiguous number %q", s)
	}
	return strconv.ParseFloat(s, 64)
}

// window slices a bounded context around a match. Offsets are byte
// offsets into normalized text; a clipped rune at the edge only affects
// keywords that would straddle the window boundary anyway.
func window(s string, at, span int) string {
	if span < 0 {
		start := at + span
		if start < 0 {
			start = 0
		}
		return s[start:at]
	}
	end := at + span
	if end > len(s) {
		end = len(s)
	}
	return s[at:end]
}

func normalizeAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := textmatch.Normalize(kw); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// containsAnyToken matches pre-normalized keywords against
// pre-normalized text.
func containsAnyToken(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func maxValue(cands []candidate) float64 {
	max := cands[0].value
	for _, c := range cands[1:] {
		if c.value > max {
			max = c.value
		}
	}
	return max
}
