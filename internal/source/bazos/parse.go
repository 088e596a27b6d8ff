package bazos

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealwatch/internal/domain"
)

var (
	listingIDRe  = regexp.MustCompile(`/inzerat/(\d+)/`)
	priceRe      = regexp.MustCompile(`[^\d,.]`)
	postalCodeRe = regexp.MustCompile(`(\d{3}\s?\d{2})$`)
	viewCountRe  = regexp.MustCompile(`(\d+)\s*x`)
	postedDateRe = regexp.MustCompile(`\[(\d{2}\.\d{2}\.\s*\d{4})\]`)
)

// parseListPage extracts listings from a category list page. Listings
// that cannot be parsed are skipped with a warning; one broken item
// never fails the page.
func (s *Source) parseListPage(doc *goquery.Document) []domain.Listing {
	var listings []domain.Listing

	doc.Find("div.inzeraty").Each(func(_ int, sel *goquery.Selection) {
		listing, ok := s.parseListItem(sel)
		if !ok {
			s.logger.Warn("skipping unparseable list item")
			return
		}
		listings = append(listings, listing)
	})

	return listings
}

func (s *Source) parseListItem(sel *goquery.Selection) (domain.Listing, bool) {
	titleLink := sel.Find("a.nadpis").First()
	if titleLink.Length() == 0 {
		return domain.Listing{}, false
	}

	href, _ := titleLink.Attr("href")
	fullURL := s.resolveURL(href)

	externalID := ExtractListingID(fullURL)
	if externalID == "" {
		return domain.Listing{}, false
	}

	listing := domain.Listing{
		ExternalID:  externalID,
		Title:       strings.TrimSpace(titleLink.Text()),
		URL:         fullURL,
		Description: strings.TrimSpace(sel.Find("div.popis").First().Text()),
	}

	priceText := strings.TrimSpace(sel.Find("div.inzeratycena").First().Text())
	listing.PriceText = priceText
	listing.Price = ParsePrice(priceText)

	locationText := strings.TrimSpace(sel.Find("div.inzeratylok").First().Text())
	listing.Location, listing.PostalCode = ParseLocation(locationText)

	sel.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if m := viewCountRe.FindStringSubmatch(span.Text()); m != nil {
			if count, err := strconv.Atoi(m[1]); err == nil {
				listing.ViewCount = &count
			}
			return false
		}
		return true
	})

	if src, ok := sel.Find("img").First().Attr("src"); ok && src != "" {
		listing.ImageURL = s.resolveURL(src)
	}

	return listing, true
}

// parseDetailPage extracts the detail-only fields of a listing.
func (s *Source) parseDetailPage(doc *goquery.Document) domain.Detail {
	detail := domain.Detail{
		Description: strings.TrimSpace(doc.Find("div.popisdetail").First().Text()),
	}

	doc.Find("div.carousel-item img").Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			detail.Images = append(detail.Images, s.resolveURL(src))
		}
	})

	if m := postedDateRe.FindStringSubmatch(doc.Text()); m != nil {
		if posted, err := ParsePostedDate(m[1]); err == nil {
			detail.PostedAt = &posted
		} else {
			s.logger.Warn("unparseable posted date", "raw", m[1])
		}
	}

	return detail
}

func (s *Source) resolveURL(href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(s.categoryURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ExtractListingID pulls the numeric listing id out of a bazos listing
// URL (/inzerat/<id>/...).
func ExtractListingID(listingURL string) string {
	if m := listingIDRe.FindStringSubmatch(listingURL); m != nil {
		return m[1]
	}
	return ""
}

// ParsePrice parses a bazos price text such as "12 500 €". Sentinel
// texts ("Dohodou", "V texte") and unparseable values yield nil.
func ParsePrice(priceText string) *float64 {
	trimmed := strings.ToLower(strings.TrimSpace(priceText))
	if trimmed == "" || trimmed == "dohodou" || trimmed == "v texte" {
		return nil
	}

	cleaned := priceRe.ReplaceAllString(priceText, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return nil
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}

// ParseLocation splits "Bratislava 821 01" into town and postal code.
func ParseLocation(locationText string) (location, postalCode string) {
	locationText = strings.TrimSpace(locationText)
	if m := postalCodeRe.FindStringSubmatchIndex(locationText); m != nil {
		return strings.TrimSpace(locationText[:m[2]]), strings.TrimSpace(locationText[m[2]:m[3]])
	}
	return locationText, ""
}

// ParsePostedDate parses the "[dd.mm. yyyy]" date shown on detail
// pages.
func ParsePostedDate(raw string) (time.Time, error) {
	return time.Parse("02.01. 2006", strings.TrimSpace(raw))
}
