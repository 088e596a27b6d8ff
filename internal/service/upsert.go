package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx/types"

	"dealwatch/internal/domain"
)

// DealUpserter is the idempotent create-or-update engine for deals.
// Every Upsert runs inside one transaction: the deal row, its price
// history and its images commit together or not at all.
type DealUpserter struct {
	deals     DealStore
	txManager TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewDealUpserter(deals DealStore, txManager TransactionManager, logger *slog.Logger) *DealUpserter {
	return &DealUpserter{
		deals:     deals,
		txManager: txManager,
		logger:    logger.With("component", "upserter"),
		now:       time.Now,
	}
}

// Upsert creates the deal for a listing or updates the existing one.
// Updates overwrite only fields present in the listing; a reappearing
// deal is reactivated. A price different from the stored current price
// updates the deal and appends exactly one price-history entry.
func (u *DealUpserter) Upsert(ctx context.Context, listing *domain.Listing, categoryID int64) (*domain.Deal, bool, bool, error) {
	var (
		deal         *domain.Deal
		isNew        bool
		priceChanged bool
	)

	err := u.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := u.deals.GetByExternalID(txCtx, listing.ExternalID)
		if err != nil {
			return fmt.Errorf("get deal: %w", err)
		}

		if existing == nil {
			isNew = true
			deal, err = u.createDeal(txCtx, listing, categoryID)
			return err
		}

		deal = existing
		priceChanged, err = u.updateDeal(txCtx, existing, listing)
		return err
	})
	if err != nil {
		return nil, false, false, err
	}

	if isNew {
		u.logger.Info("created new deal",
			"external_id", deal.ExternalID,
			"title", deal.Title,
			"price", deal.CurrentPrice,
		)
	} else if priceChanged {
		u.logger.Info("price changed",
			"external_id", deal.ExternalID,
			"price", deal.CurrentPrice,
		)
	}

	return deal, isNew, priceChanged, nil
}

func (u *DealUpserter) createDeal(ctx context.Context, listing *domain.Listing, categoryID int64) (*domain.Deal, error) {
	now := u.now().UTC()

	deal := &domain.Deal{
		ExternalID:    listing.ExternalID,
		CategoryID:    categoryID,
		Title:         listing.Title,
		CurrentPrice:  listing.Price,
		URL:           listing.URL,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		LastCheckedAt: now,
		IsActive:      true,
		ViewCount:     listing.ViewCount,
		ExtraData:     extraData(listing),
	}
	if listing.Description != "" {
		deal.Description = &listing.Description
	}
	if listing.Location != "" {
		deal.Location = &listing.Location
	}
	if listing.PostalCode != "" {
		deal.PostalCode = &listing.PostalCode
	}

	if err := u.deals.Insert(ctx, deal); err != nil {
		return nil, fmt.Errorf("insert deal: %w", err)
	}

	if listing.Price != nil {
		if err := u.deals.AddPriceHistory(ctx, deal.ID, *listing.Price, now); err != nil {
			return nil, fmt.Errorf("record initial price: %w", err)
		}
	}

	if listing.ImageURL != "" {
		if err := u.deals.AddImage(ctx, deal.ID, listing.ImageURL, true); err != nil {
			return nil, fmt.Errorf("record primary image: %w", err)
		}
	}
	for _, img := range listing.Images {
		if img == listing.ImageURL {
			continue
		}
		if err := u.deals.AddImage(ctx, deal.ID, img, false); err != nil {
			return nil, fmt.Errorf("record image: %w", err)
		}
	}

	return deal, nil
}

func (u *DealUpserter) updateDeal(ctx context.Context, deal *domain.Deal, listing *domain.Listing) (bool, error) {
	now := u.now().UTC()

	// Absent listing fields keep the stored values.
	if listing.Title != "" {
		deal.Title = listing.Title
	}
	if listing.Description != "" {
		deal.Description = &listing.Description
	}
	if listing.Location != "" {
		deal.Location = &listing.Location
	}
	if listing.PostalCode != "" {
		deal.PostalCode = &listing.PostalCode
	}
	if listing.ViewCount != nil {
		deal.ViewCount = listing.ViewCount
	}
	if extra := extraData(listing); extra != nil {
		deal.ExtraData = extra
	}

	priceChanged := false
	if listing.Price != nil && (deal.CurrentPrice == nil || *deal.CurrentPrice != *listing.Price) {
		deal.CurrentPrice = listing.Price
		priceChanged = true
	}

	deal.LastSeenAt = now
	deal.LastCheckedAt = now
	deal.IsActive = true

	if err := u.deals.Update(ctx, deal); err != nil {
		return false, fmt.Errorf("update deal: %w", err)
	}

	if priceChanged {
		if err := u.deals.AddPriceHistory(ctx, deal.ID, *listing.Price, now); err != nil {
			return false, fmt.Errorf("record price change: %w", err)
		}
	}

	return priceChanged, nil
}

// MarkInactive bulk-deactivates the given external ids.
func (u *DealUpserter) MarkInactive(ctx context.Context, externalIDs []string) (int64, error) {
	count, err := u.deals.MarkInactive(ctx, externalIDs)
	if err != nil {
		return 0, fmt.Errorf("mark inactive: %w", err)
	}
	if count > 0 {
		u.logger.Info("marked deals inactive", "count", count)
	}
	return count, nil
}

// MarkDisappeared deactivates active deals of a category that were not
// seen in the current run. Disappearance is an explicit signal; it is
// never inferred from anything else.
func (u *DealUpserter) MarkDisappeared(ctx context.Context, categoryID int64, seenExternalIDs []string) (int64, error) {
	active, err := u.deals.ActiveExternalIDs(ctx, categoryID)
	if err != nil {
		return 0, fmt.Errorf("list active deals: %w", err)
	}

	seen := make(map[string]struct{}, len(seenExternalIDs))
	for _, id := range seenExternalIDs {
		seen[id] = struct{}{}
	}

	var disappeared []string
	for _, id := range active {
		if _, ok := seen[id]; !ok {
			disappeared = append(disappeared, id)
		}
	}
	if len(disappeared) == 0 {
		return 0, nil
	}

	return u.MarkInactive(ctx, disappeared)
}

// extraData packs listing fields without dedicated columns into the
// deal's JSON blob.
func extraData(listing *domain.Listing) types.JSONText {
	extra := make(map[string]any)
	if listing.PostedAt != nil {
		extra["posted_at"] = listing.PostedAt.UTC().Format(time.RFC3339)
	}
	if len(listing.Images) > 0 {
		extra["images"] = listing.Images
	}
	if len(extra) == 0 {
		return nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil
	}
	return types.JSONText(data)
}
