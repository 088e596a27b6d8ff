package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"dealwatch/internal/domain"
	"dealwatch/internal/filter"
	"dealwatch/internal/snapshot"
)

// WatchService runs one scraping pass for a single source/category pair:
// fetch listings, filter them in two phases, snapshot and diff, upsert,
// and finally mark deals that disappeared from the site.
type WatchService struct {
	source     Source
	filter     ListingFilter
	upserter   Upserter
	runs       RunStore
	snapshots  SnapshotStore
	publisher  Publisher
	logger     *slog.Logger
	categoryID int64
	maxPages   int
	now        func() time.Time
}

func NewWatchService(
	source Source,
	listingFilter ListingFilter,
	upserter Upserter,
	runs RunStore,
	snapshots SnapshotStore,
	publisher Publisher,
	logger *slog.Logger,
	categoryID int64,
	maxPages int,
) *WatchService {
	return &WatchService{
		source:     source,
		filter:     listingFilter,
		upserter:   upserter,
		runs:       runs,
		snapshots:  snapshots,
		publisher:  publisher,
		logger:     logger.With("source", source.ID(), "category", source.Category()),
		categoryID: categoryID,
		maxPages:   maxPages,
		now:        time.Now,
	}
}

func (s *WatchService) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := s.now()
	s.logger.Info("starting watch run", "max_pages", s.maxPages)

	runID, err := s.runs.Create(ctx, s.categoryID)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	stats := &domain.RunStats{CategoryID: s.categoryID}

	listings, err := s.source.FetchListings(ctx, s.maxPages)
	if err != nil {
		if len(listings) == 0 {
			s.failRun(ctx, runID, stats, err)
			return nil, fmt.Errorf("fetch listings: %w", err)
		}
		// Some pages came through before the failure; process what we have.
		s.logger.Warn("partial listing fetch", "error", err, "count", len(listings))
	}

	s.logger.Info("fetched listings", "count", len(listings))

	seen := make([]string, 0, len(listings))
	for i := range listings {
		if ctx.Err() != nil {
			s.failRun(ctx, runID, stats, ctx.Err())
			return nil, ctx.Err()
		}

		listing := &listings[i]
		stats.ListingsProcessed++
		seen = append(seen, listing.ExternalID)

		if verdict := s.filter.Evaluate(listing, filter.PhaseQuick); !verdict.Pass {
			stats.QuickRejected++
			continue
		}

		if err := s.enrich(ctx, listing); err != nil {
			s.logger.Warn("detail fetch failed, skipping listing",
				"listing_id", listing.ExternalID, "error", err)
			stats.Errors++
			continue
		}

		if verdict := s.filter.Evaluate(listing, filter.PhaseFull); !verdict.Pass {
			stats.FullRejected++
			continue
		}
		stats.Matches++

		changes := s.detectChanges(listing)

		deal, isNew, priceChanged, err := s.upserter.Upsert(ctx, listing, s.categoryID)
		if err != nil {
			if isConnectivityErr(err) {
				s.failRun(ctx, runID, stats, err)
				return nil, fmt.Errorf("upsert listing %s: %w", listing.ExternalID, err)
			}
			s.logger.Error("upsert failed", "listing_id", listing.ExternalID, "error", err)
			stats.Errors++
			continue
		}

		if _, err := s.snapshots.Save(s.source.ID(), s.source.Category(), listing.ExternalID, *listing, s.now()); err != nil {
			s.logger.Warn("snapshot save failed", "listing_id", listing.ExternalID, "error", err)
		}

		if isNew {
			stats.NewDeals++
		}
		if priceChanged {
			stats.PriceChanges++
		}
		s.publish(ctx, deal, isNew, priceChanged, changes)
	}

	disappeared, err := s.upserter.MarkDisappeared(ctx, s.categoryID, seen)
	if err != nil {
		s.logger.Error("marking disappeared deals failed", "error", err)
		stats.Errors++
	}
	stats.Disappeared = int(disappeared)

	stats.Duration = s.now().Sub(startTime)

	if err := s.runs.Update(ctx, runID, domain.RunUpdate{
		Status:               domain.RunStatusCompleted,
		ListingsProcessed:    stats.ListingsProcessed,
		NewDealsFound:        stats.NewDeals,
		PriceChangesDetected: stats.PriceChanges,
		DealsDisappeared:     stats.Disappeared,
	}); err != nil {
		s.logger.Error("run update failed", "run_id", runID, "error", err)
	}

	s.logger.Info("watch run completed",
		"processed", stats.ListingsProcessed,
		"quick_rejected", stats.QuickRejected,
		"full_rejected", stats.FullRejected,
		"matches", stats.Matches,
		"new_deals", stats.NewDeals,
		"price_changes", stats.PriceChanges,
		"disappeared", stats.Disappeared,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// enrich fetches the detail page and merges it into the listing.
func (s *WatchService) enrich(ctx context.Context, listing *domain.Listing) error {
	if listing.URL == "" {
		return errors.New("listing has no URL")
	}
	detail, err := s.source.FetchDetail(ctx, listing.URL)
	if err != nil {
		return err
	}
	listing.MergeDetail(detail)
	return nil
}

// detectChanges diffs the listing against its previous snapshot. A read
// failure degrades to treating the listing as new.
func (s *WatchService) detectChanges(listing *domain.Listing) snapshot.Changes {
	prev, err := s.snapshots.Latest(s.source.ID(), s.source.Category(), listing.ExternalID)
	if err != nil {
		s.logger.Warn("snapshot read failed, treating listing as new",
			"listing_id", listing.ExternalID, "error", err)
		prev = nil
	}
	var prevListing *domain.Listing
	if prev != nil {
		prevListing = &prev.Data
	}
	return snapshot.Diff(prevListing, *listing, snapshot.WatchedFields)
}

func (s *WatchService) publish(ctx context.Context, deal *domain.Deal, isNew, priceChanged bool, changes snapshot.Changes) {
	if s.publisher == nil {
		return
	}
	if isNew {
		if err := s.publisher.PublishNewDeal(ctx, deal); err != nil {
			s.logger.Error("publish new deal failed", "deal_id", deal.ID, "error", err)
		}
		return
	}
	if priceChanged {
		oldPrice := previousPrice(changes)
		if err := s.publisher.PublishPriceChange(ctx, deal, oldPrice); err != nil {
			s.logger.Error("publish price change failed", "deal_id", deal.ID, "error", err)
		}
	}
}

func (s *WatchService) failRun(ctx context.Context, runID int64, stats *domain.RunStats, cause error) {
	msg := cause.Error()
	if err := s.runs.Update(ctx, runID, domain.RunUpdate{
		Status:               domain.RunStatusFailed,
		ListingsProcessed:    stats.ListingsProcessed,
		NewDealsFound:        stats.NewDeals,
		PriceChangesDetected: stats.PriceChanges,
		ErrorMessage:         &msg,
	}); err != nil {
		s.logger.Error("run update failed", "run_id", runID, "error", err)
	}
}

func previousPrice(changes snapshot.Changes) *float64 {
	change, ok := changes.Fields["price"]
	if !ok {
		return nil
	}
	if old, ok := change.Old.(float64); ok {
		return &old
	}
	return nil
}

// isConnectivityErr reports whether the database itself is unreachable,
// as opposed to a row-level failure worth skipping over.
func isConnectivityErr(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
