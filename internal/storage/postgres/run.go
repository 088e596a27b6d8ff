package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"dealwatch/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Create opens a scraping run in the running state and returns its id.
func (s *RunStore) Create(ctx context.Context, categoryID int64) (int64, error) {
	query := `
		INSERT INTO scraping_runs (category_id, started_at, status)
		VALUES ($1, NOW(), $2)
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query, categoryID, domain.RunStatusRunning).Scan(&id)
	return id, err
}

// Update closes a run with its final status and counters.
func (s *RunStore) Update(ctx context.Context, runID int64, upd domain.RunUpdate) error {
	query := `
		UPDATE scraping_runs SET
			status = $1,
			completed_at = NOW(),
			listings_processed = $2,
			new_deals_found = $3,
			price_changes_detected = $4,
			deals_disappeared = $5,
			error_message = $6
		WHERE id = $7`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		upd.Status,
		upd.ListingsProcessed,
		upd.NewDealsFound,
		upd.PriceChangesDetected,
		upd.DealsDisappeared,
		upd.ErrorMessage,
		runID,
	)
	return err
}

// Get fetches one run row.
func (s *RunStore) Get(ctx context.Context, runID int64) (*domain.ScrapingRun, error) {
	query := `
		SELECT id, category_id, started_at, completed_at, status,
		       listings_processed, new_deals_found, price_changes_detected,
		       deals_disappeared, error_message
		FROM scraping_runs
		WHERE id = $1`

	var run domain.ScrapingRun
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &run, query, runID); err != nil {
		return nil, err
	}
	return &run, nil
}

// StaleRunCutoff marks runs still "running" after this long as failed.
const StaleRunCutoff = 24 * time.Hour

// FailStaleRuns closes runs that never reported completion, typically
// after a crash.
func (s *RunStore) FailStaleRuns(ctx context.Context) (int64, error) {
	query := `
		UPDATE scraping_runs SET
			status = $1,
			completed_at = NOW(),
			error_message = 'run never completed'
		WHERE status = $2 AND started_at < $3`

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		domain.RunStatusFailed,
		domain.RunStatusRunning,
		time.Now().Add(-StaleRunCutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
