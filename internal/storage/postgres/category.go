package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"dealwatch/internal/domain"
)

type CategoryStore struct {
	db *sqlx.DB
}

func NewCategoryStore(db *sqlx.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Ensure upserts a category by name and returns its id. Called at
// startup for each configured scraper.
func (s *CategoryStore) Ensure(ctx context.Context, name, categoryType, url string) (int64, error) {
	query := `
		INSERT INTO categories (name, type, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type,
			url = EXCLUDED.url
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query, name, categoryType, url).Scan(&id)
	return id, err
}

// GetByID returns a category, or nil when it does not exist.
func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	query := `SELECT id, name, type, url, created_at FROM categories WHERE id = $1`

	var cat domain.Category
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &cat, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}
