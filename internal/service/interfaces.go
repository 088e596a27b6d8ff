package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"dealwatch/internal/domain"
	"dealwatch/internal/filter"
	"dealwatch/internal/snapshot"
)

// Source delivers listings from one external site category.
type Source interface {
	ID() string
	Category() string
	FetchListings(ctx context.Context, maxPages int) ([]domain.Listing, error)
	FetchDetail(ctx context.Context, listingURL string) (domain.Detail, error)
}

// ListingFilter evaluates a listing in the quick or full phase.
type ListingFilter interface {
	Evaluate(listing *domain.Listing, phase filter.Phase) filter.Verdict
}

// DealStore persists deals, their price trail and images.
type DealStore interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Deal, error)
	Insert(ctx context.Context, deal *domain.Deal) error
	Update(ctx context.Context, deal *domain.Deal) error
	MarkInactive(ctx context.Context, externalIDs []string) (int64, error)
	ActiveExternalIDs(ctx context.Context, categoryID int64) ([]string, error)
	AddPriceHistory(ctx context.Context, dealID int64, price float64, changedAt time.Time) error
	AddImage(ctx context.Context, dealID int64, imageURL string, isPrimary bool) error
}

// RunStore records scraping-run bookkeeping.
type RunStore interface {
	Create(ctx context.Context, categoryID int64) (int64, error)
	Update(ctx context.Context, runID int64, upd domain.RunUpdate) error
}

// SnapshotStore captures listing payloads for history and diffing.
type SnapshotStore interface {
	Save(source, category, id string, listing domain.Listing, capturedAt time.Time) (string, error)
	Latest(source, category, id string) (*snapshot.Envelope, error)
}

// Upserter is the change-detection/upsert engine.
type Upserter interface {
	Upsert(ctx context.Context, listing *domain.Listing, categoryID int64) (deal *domain.Deal, isNew, priceChanged bool, err error)
	MarkDisappeared(ctx context.Context, categoryID int64, seenExternalIDs []string) (int64, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Publisher emits deal events to downstream consumers.
type Publisher interface {
	PublishNewDeal(ctx context.Context, deal *domain.Deal) error
	PublishPriceChange(ctx context.Context, deal *domain.Deal, oldPrice *float64) error
	Close() error
}
