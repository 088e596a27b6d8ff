//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"dealwatch/internal/domain"
	"dealwatch/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_deals.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM deal_images")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM price_history")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM scraping_runs")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM deals")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM categories")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) createCategory() int64 {
	store := NewCategoryStore(s.db)
	id, err := store.Ensure(s.ctx, "pozemky", "land", "https://reality.bazos.sk/predam/pozemok/")
	s.Require().NoError(err)
	return id
}

func (s *PostgresIntegrationSuite) newDeal(categoryID int64, externalID string) *domain.Deal {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Deal{
		ExternalID:    externalID,
		CategoryID:    categoryID,
		Title:         "Pozemok 5000 m2",
		Description:   utils.Ptr("Predám pozemok"),
		CurrentPrice:  utils.Ptr(25000.0),
		Location:      utils.Ptr("Nitra"),
		PostalCode:    utils.Ptr("949 01"),
		URL:           "https://reality.bazos.sk/inzerat/" + externalID + "/x.php",
		FirstSeenAt:   now,
		LastSeenAt:    now,
		LastCheckedAt: now,
		IsActive:      true,
		ViewCount:     utils.Ptr(42),
	}
}

func (s *PostgresIntegrationSuite) TestDealStore_InsertAndGet() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)

	deal := s.newDeal(categoryID, "123")
	err := store.Insert(s.ctx, deal)
	s.NoError(err)
	s.Greater(deal.ID, int64(0))
	s.False(deal.CreatedAt.IsZero())

	got, err := store.GetByExternalID(s.ctx, "123")
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal(deal.ID, got.ID)
	s.Equal("Pozemok 5000 m2", got.Title)
	s.Equal(25000.0, *got.CurrentPrice)
	s.True(got.IsActive)
}

func (s *PostgresIntegrationSuite) TestDealStore_GetMissingReturnsNil() {
	got, err := NewDealStore(s.db).GetByExternalID(s.ctx, "does-not-exist")
	s.NoError(err)
	s.Nil(got)
}

func (s *PostgresIntegrationSuite) TestDealStore_Update() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)

	deal := s.newDeal(categoryID, "123")
	s.Require().NoError(store.Insert(s.ctx, deal))

	deal.Title = "Pozemok 5000 m2, znížená cena"
	deal.CurrentPrice = utils.Ptr(22000.0)
	deal.IsActive = false
	s.Require().NoError(store.Update(s.ctx, deal))

	got, err := store.GetByExternalID(s.ctx, "123")
	s.NoError(err)
	s.Require().NotNil(got)
	s.Equal("Pozemok 5000 m2, znížená cena", got.Title)
	s.Equal(22000.0, *got.CurrentPrice)
	// Update always reactivates.
	s.True(got.IsActive)
}

func (s *PostgresIntegrationSuite) TestDealStore_MarkInactive() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)

	for _, id := range []string{"1", "2", "3"} {
		s.Require().NoError(store.Insert(s.ctx, s.newDeal(categoryID, id)))
	}

	count, err := store.MarkInactive(s.ctx, []string{"1", "2"})
	s.NoError(err)
	s.Equal(int64(2), count)

	// Repeating is a no-op: already-inactive rows are not counted.
	count, err = store.MarkInactive(s.ctx, []string{"1", "2"})
	s.NoError(err)
	s.Equal(int64(0), count)

	// Unknown ids are ignored.
	count, err = store.MarkInactive(s.ctx, []string{"nope"})
	s.NoError(err)
	s.Equal(int64(0), count)

	ids, err := store.ActiveExternalIDs(s.ctx, categoryID)
	s.NoError(err)
	s.Equal([]string{"3"}, ids)
}

func (s *PostgresIntegrationSuite) TestDealStore_MarkInactiveEmptySet() {
	count, err := NewDealStore(s.db).MarkInactive(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(0), count)
}

func (s *PostgresIntegrationSuite) TestDealStore_PriceHistory() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)

	deal := s.newDeal(categoryID, "123")
	s.Require().NoError(store.Insert(s.ctx, deal))

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(store.AddPriceHistory(s.ctx, deal.ID, 25000, t0))
	s.Require().NoError(store.AddPriceHistory(s.ctx, deal.ID, 22000, t0.Add(time.Hour)))

	// Exact duplicate is absorbed by the unique constraint.
	s.Require().NoError(store.AddPriceHistory(s.ctx, deal.ID, 22000, t0.Add(time.Hour)))

	entries, err := store.PriceHistory(s.ctx, deal.ID)
	s.NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(22000.0, entries[0].Price)
	s.Equal(25000.0, entries[1].Price)
}

func (s *PostgresIntegrationSuite) TestDealStore_AddImage() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)

	deal := s.newDeal(categoryID, "123")
	s.Require().NoError(store.Insert(s.ctx, deal))

	s.NoError(store.AddImage(s.ctx, deal.ID, "https://img/1.jpg", true))
	s.NoError(store.AddImage(s.ctx, deal.ID, "https://img/2.jpg", false))
	s.NoError(store.AddImage(s.ctx, deal.ID, "https://img/1.jpg", true))

	var count int
	err := s.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM deal_images WHERE deal_id = $1", deal.ID)
	s.NoError(err)
	s.Equal(2, count)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_RollsBackOnError() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)
	txManager := NewTransactionManager(s.db)

	err := txManager.WithTransaction(s.ctx, func(txCtx context.Context) error {
		if err := store.Insert(txCtx, s.newDeal(categoryID, "123")); err != nil {
			return err
		}
		// Duplicate external id violates the unique constraint and
		// poisons the whole transaction.
		return store.Insert(txCtx, s.newDeal(categoryID, "123"))
	})
	s.Error(err)

	got, err := store.GetByExternalID(s.ctx, "123")
	s.NoError(err)
	s.Nil(got)
}

func (s *PostgresIntegrationSuite) TestTransactionManager_Commits() {
	categoryID := s.createCategory()
	store := NewDealStore(s.db)
	txManager := NewTransactionManager(s.db)

	err := txManager.WithTransaction(s.ctx, func(txCtx context.Context) error {
		deal := s.newDeal(categoryID, "123")
		if err := store.Insert(txCtx, deal); err != nil {
			return err
		}
		return store.AddPriceHistory(txCtx, deal.ID, 25000, time.Now().UTC())
	})
	s.NoError(err)

	got, err := store.GetByExternalID(s.ctx, "123")
	s.NoError(err)
	s.Require().NotNil(got)

	entries, err := store.PriceHistory(s.ctx, got.ID)
	s.NoError(err)
	s.Len(entries, 1)
}

func (s *PostgresIntegrationSuite) TestCategoryStore_EnsureIdempotent() {
	store := NewCategoryStore(s.db)

	id1, err := store.Ensure(s.ctx, "pozemky", "land", "https://reality.bazos.sk/predam/pozemok/")
	s.NoError(err)

	id2, err := store.Ensure(s.ctx, "pozemky", "land", "https://reality.bazos.sk/predam/pozemok/")
	s.NoError(err)
	s.Equal(id1, id2)

	cat, err := store.GetByID(s.ctx, id1)
	s.NoError(err)
	s.Require().NotNil(cat)
	s.Equal("pozemky", cat.Name)
	s.Equal("land", cat.Type)
}

func (s *PostgresIntegrationSuite) TestRunStore_Lifecycle() {
	categoryID := s.createCategory()
	store := NewRunStore(s.db)

	runID, err := store.Create(s.ctx, categoryID)
	s.NoError(err)
	s.Greater(runID, int64(0))

	run, err := store.Get(s.ctx, runID)
	s.NoError(err)
	s.Require().NotNil(run)
	s.Equal(domain.RunStatusRunning, run.Status)

	err = store.Update(s.ctx, runID, domain.RunUpdate{
		Status:               domain.RunStatusCompleted,
		ListingsProcessed:    40,
		NewDealsFound:        3,
		PriceChangesDetected: 1,
		DealsDisappeared:     2,
	})
	s.NoError(err)

	run, err = store.Get(s.ctx, runID)
	s.NoError(err)
	s.Require().NotNil(run)
	s.Equal(domain.RunStatusCompleted, run.Status)
	s.Equal(40, run.ListingsProcessed)
	s.Equal(3, run.NewDealsFound)
	s.Require().NotNil(run.CompletedAt)
}

func (s *PostgresIntegrationSuite) TestRunStore_FailedWithMessage() {
	categoryID := s.createCategory()
	store := NewRunStore(s.db)

	runID, err := store.Create(s.ctx, categoryID)
	s.NoError(err)

	err = store.Update(s.ctx, runID, domain.RunUpdate{
		Status:       domain.RunStatusFailed,
		ErrorMessage: utils.Ptr("fetch listings: blocked"),
	})
	s.NoError(err)

	run, err := store.Get(s.ctx, runID)
	s.NoError(err)
	s.Require().NotNil(run)
	s.Equal(domain.RunStatusFailed, run.Status)
	s.Require().NotNil(run.ErrorMessage)
	s.Contains(*run.ErrorMessage, "blocked")
}
