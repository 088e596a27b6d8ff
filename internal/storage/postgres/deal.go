package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dealwatch/internal/domain"
)

type DealStore struct {
	db *sqlx.DB
}

func NewDealStore(db *sqlx.DB) *DealStore {
	return &DealStore{db: db}
}

// GetByExternalID returns the deal for an external id, or nil when none
// exists. External id is the sole external-to-internal identity.
func (s *DealStore) GetByExternalID(ctx context.Context, externalID string) (*domain.Deal, error) {
	query := `
		SELECT id, external_id, category_id, title, description, current_price,
		       location, postal_code, url, first_seen_at, last_seen_at,
		       last_checked_at, is_active, view_count, extra_data,
		       created_at, updated_at
		FROM deals
		WHERE external_id = $1`

	var deal domain.Deal
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &deal, query, externalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// Insert creates a new deal row and fills in its id.
func (s *DealStore) Insert(ctx context.Context, deal *domain.Deal) error {
	query := `
		INSERT INTO deals (
			external_id, category_id, title, description, current_price,
			location, postal_code, url, first_seen_at, last_seen_at,
			last_checked_at, is_active, view_count, extra_data
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		RETURNING id, created_at, updated_at`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		deal.ExternalID,
		deal.CategoryID,
		deal.Title,
		deal.Description,
		deal.CurrentPrice,
		deal.Location,
		deal.PostalCode,
		deal.URL,
		deal.FirstSeenAt,
		deal.LastSeenAt,
		deal.LastCheckedAt,
		deal.IsActive,
		deal.ViewCount,
		deal.ExtraData,
	).Scan(&deal.ID, &deal.CreatedAt, &deal.UpdatedAt)
}

// Update overwrites the mutable descriptive fields of an existing deal
// and refreshes its seen/checked timestamps. Reappearance reactivates:
// is_active is forced true.
func (s *DealStore) Update(ctx context.Context, deal *domain.Deal) error {
	query := `
		UPDATE deals SET
			title = $1,
			description = $2,
			current_price = $3,
			location = $4,
			postal_code = $5,
			view_count = $6,
			extra_data = $7,
			last_seen_at = $8,
			last_checked_at = $9,
			is_active = TRUE,
			updated_at = NOW()
		WHERE id = $10`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		deal.Title,
		deal.Description,
		deal.CurrentPrice,
		deal.Location,
		deal.PostalCode,
		deal.ViewCount,
		deal.ExtraData,
		deal.LastSeenAt,
		deal.LastCheckedAt,
		deal.ID,
	)
	return err
}

// MarkInactive bulk-deactivates deals whose external id is in the set.
// Only is_active and updated_at are touched; already-inactive deals are
// not counted again.
func (s *DealStore) MarkInactive(ctx context.Context, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}

	query := `
		UPDATE deals SET is_active = FALSE, updated_at = NOW()
		WHERE external_id = ANY($1) AND is_active`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, pq.Array(externalIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActiveExternalIDs lists external ids of active deals in a category.
func (s *DealStore) ActiveExternalIDs(ctx context.Context, categoryID int64) ([]string, error) {
	query := `SELECT external_id FROM deals WHERE category_id = $1 AND is_active`

	var ids []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids, query, categoryID)
	return ids, err
}

// AddPriceHistory appends one price-history entry. The unique
// constraint on (deal_id, price, changed_at) keeps the trail free of
// exact duplicates.
func (s *DealStore) AddPriceHistory(ctx context.Context, dealID int64, price float64, changedAt time.Time) error {
	query := `
		INSERT INTO price_history (deal_id, price, changed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT price_history_unique DO NOTHING`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, dealID, price, changedAt)
	return err
}

// PriceHistory returns a deal's price trail, newest first.
func (s *DealStore) PriceHistory(ctx context.Context, dealID int64) ([]domain.PriceHistoryEntry, error) {
	query := `
		SELECT id, deal_id, price, changed_at
		FROM price_history
		WHERE deal_id = $1
		ORDER BY changed_at DESC, id DESC`

	var entries []domain.PriceHistoryEntry
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &entries, query, dealID)
	return entries, err
}

// AddImage records an image URL for a deal.
func (s *DealStore) AddImage(ctx context.Context, dealID int64, imageURL string, isPrimary bool) error {
	query := `
		INSERT INTO deal_images (deal_id, image_url, is_primary)
		VALUES ($1, $2, $3)
		ON CONFLICT (deal_id, image_url) DO NOTHING`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, dealID, imageURL, isPrimary)
	return err
}
