// Package bazos scrapes classified listings from bazos.sk category and
// detail pages.
package bazos

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"dealwatch/internal/domain"
)

const (
	// SourceID partitions snapshots and identifies the site.
	SourceID = "bazos"

	listingsPerPage = 20

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
)

// Config holds bazos source configuration.
type Config struct {
	CategoryURL    string
	Category       string
	Timeout        time.Duration
	RequestDelay   time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches and parses one bazos category. Requests are sequential
// and rate-limited; the site bans aggressive clients.
type Source struct {
	httpClient     *http.Client
	categoryURL    string
	category       string
	userAgent      string
	requestDelay   time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	lastRequest    time.Time
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Source{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		categoryURL:    strings.TrimRight(cfg.CategoryURL, "/"),
		category:       cfg.Category,
		userAgent:      userAgent,
		requestDelay:   cfg.RequestDelay,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID, "category", cfg.Category),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Category returns the configured category label.
func (s *Source) Category() string {
	return s.category
}

// FetchListings scrapes up to maxPages list pages, in page order. An
// empty page ends pagination. A mid-run fetch failure returns the
// listings collected so far along with the error.
func (s *Source) FetchListings(ctx context.Context, maxPages int) ([]domain.Listing, error) {
	var all []domain.Listing

	for page := 0; page < maxPages; page++ {
		doc, err := s.fetchDocument(ctx, s.pageURL(page))
		if err != nil {
			return all, fmt.Errorf("fetch page %d: %w", page, err)
		}

		listings := s.parseListPage(doc)
		if len(listings) == 0 {
			break
		}
		all = append(all, listings...)

		s.logger.Debug("fetched list page",
			"page", page,
			"listings", len(listings),
			"total", len(all),
		)
	}

	return all, nil
}

// FetchDetail scrapes a listing's detail page.
func (s *Source) FetchDetail(ctx context.Context, listingURL string) (domain.Detail, error) {
	doc, err := s.fetchDocument(ctx, listingURL)
	if err != nil {
		return domain.Detail{}, fmt.Errorf("fetch detail page: %w", err)
	}
	return s.parseDetailPage(doc), nil
}

// pageURL builds the URL for a 0-indexed list page. Bazos paginates by
// listing offset in the path.
func (s *Source) pageURL(page int) string {
	if page == 0 {
		return s.categoryURL + "/"
	}
	return fmt.Sprintf("%s/%d/", s.categoryURL, page*listingsPerPage)
}

func (s *Source) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var doc *goquery.Document
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if waitErr := s.rateLimit(ctx); waitErr != nil {
			return nil, waitErr
		}

		doc, err = s.doRequest(ctx, url)
		if err == nil {
			return doc, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) doRequest(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "sk,en;q=0.7")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// rateLimit enforces the configured delay between requests.
func (s *Source) rateLimit(ctx context.Context) error {
	if s.requestDelay <= 0 || s.lastRequest.IsZero() {
		s.lastRequest = time.Now()
		return nil
	}
	wait := s.requestDelay - time.Since(s.lastRequest)
	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	s.lastRequest = time.Now()
	return nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
