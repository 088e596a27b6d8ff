package bazos

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealwatch/testdata/utils"
)

const listPageHTML = `
<html><body>
<div class="inzeraty">
  <h2 class="nadpis"><a class="nadpis" href="/inzerat/123456789/predam-pozemok.php">Predám pozemok 5000 m2</a></h2>
  <div class="popis">Predám pekný pozemok v tichej lokalite, výmera 5000 m2.</div>
  <div class="inzeratycena">12 500 €</div>
  <div class="inzeratylok">Nitra<br>949 01</div>
  <span>TOP</span>
  <span> 154x </span>
  <img src="/img/1t/789/123456789.jpg">
</div>
<div class="inzeraty">
  <h2 class="nadpis"><a class="nadpis" href="/inzerat/987654321/chata-s-pozemkom.php">Chata s pozemkom</a></h2>
  <div class="popis">Chata na parcele 4.2 ha.</div>
  <div class="inzeratycena">Dohodou</div>
  <div class="inzeratylok">Banská Bystrica</div>
</div>
<div class="inzeraty">
  <div class="popis">Miscellaneous block without a title link.</div>
</div>
</body></html>`

const detailPageHTML = `
<html><body>
<div class="listadvlevo">Inzerát bol vložený [01.06. 2025]</div>
<div class="popisdetail">Predám ornú pôdu, výmera pozemku 50 000 m². Cena 25 000 EUR.</div>
<div class="carousel-item"><img src="//www.bazos.sk/img/1/789/123456789.jpg"></div>
<div class="carousel-item"><img src="//www.bazos.sk/img/2/789/123456789.jpg"></div>
</body></html>`

func testSource(t *testing.T) *Source {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(Config{
		CategoryURL: "https://reality.bazos.sk/predam/pozemok/",
		Category:    "pozemky",
	}, logger)
}

func TestParseListPage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listPageHTML))
	require.NoError(t, err)

	listings := testSource(t).parseListPage(doc)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "123456789", first.ExternalID)
	assert.Equal(t, "Predám pozemok 5000 m2", first.Title)
	assert.Equal(t, "https://reality.bazos.sk/inzerat/123456789/predam-pozemok.php", first.URL)
	assert.Contains(t, first.Description, "výmera 5000 m2")
	assert.Equal(t, "12 500 €", first.PriceText)
	require.NotNil(t, first.Price)
	assert.Equal(t, 12500.0, *first.Price)
	assert.Equal(t, "Nitra", first.Location)
	assert.Equal(t, "949 01", first.PostalCode)
	require.NotNil(t, first.ViewCount)
	assert.Equal(t, 154, *first.ViewCount)
	assert.Equal(t, "https://reality.bazos.sk/img/1t/789/123456789.jpg", first.ImageURL)

	second := listings[1]
	assert.Equal(t, "987654321", second.ExternalID)
	assert.Nil(t, second.Price)
	assert.Equal(t, "Dohodou", second.PriceText)
	assert.Equal(t, "Banská Bystrica", second.Location)
	assert.Empty(t, second.PostalCode)
	assert.Nil(t, second.ViewCount)
}

func TestParseDetailPage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(detailPageHTML))
	require.NoError(t, err)

	detail := testSource(t).parseDetailPage(doc)

	assert.Contains(t, detail.Description, "výmera pozemku 50 000 m²")
	require.Len(t, detail.Images, 2)
	assert.Equal(t, "https://www.bazos.sk/img/1/789/123456789.jpg", detail.Images[0])
	require.NotNil(t, detail.PostedAt)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), *detail.PostedAt)
}

func TestExtractListingID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://reality.bazos.sk/inzerat/123456789/predam-pozemok.php", "123456789"},
		{"/inzerat/42/whatever.php", "42"},
		{"https://reality.bazos.sk/predam/pozemok/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractListingID(tt.url), tt.url)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"12 500 €", utils.Ptr(12500.0)},
		{"1 €", utils.Ptr(1.0)},
		{"3,50 €", utils.Ptr(3.5)},
		{"Dohodou", nil},
		{"V texte", nil},
		{"", nil},
		{"€", nil},
	}

	for _, tt := range tests {
		got := ParsePrice(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.Equal(t, *tt.want, *got, tt.in)
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in         string
		location   string
		postalCode string
	}{
		{"Nitra 949 01", "Nitra", "949 01"},
		{"Banská Bystrica 97401", "Banská Bystrica", "97401"},
		{"Bratislava", "Bratislava", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		location, postalCode := ParseLocation(tt.in)
		assert.Equal(t, tt.location, location, tt.in)
		assert.Equal(t, tt.postalCode, postalCode, tt.in)
	}
}

func TestParsePostedDate(t *testing.T) {
	got, err := ParsePostedDate("01.06. 2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParsePostedDate("not a date")
	assert.Error(t, err)
}
