package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a Postgres container, applies schema.sql and returns the pool
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("ipo_calendar"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	config := shared.NewDefaultUnifiedConfiguration().Database
	db, err := Open(dsn, &config)
	require.NoError(t, err, "failed to open pool")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, MigrateDB(db, "schema.sql"))

	return db
}

func TestIPOCalendarRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIPOCalendarRepository(db, kst, 1)
	ctx := context.Background()

	t.Run("create and find round-trips every column", func(t *testing.T) {
		low, high, final := int64(30000), int64(35000), int64(34000)
		underwriter := "미래에셋증권"

		created, err := repo.Create(ctx, models.IPOFields{
			CompanyName:       "에이피알",
			SubscriptionStart: dayPtr(2025, 1, 14),
			SubscriptionEnd:   dayPtr(2025, 1, 15),
			ListingDate:       dayPtr(2025, 1, 24),
			PriceRangeLow:     &low,
			PriceRangeHigh:    &high,
			FinalPrice:        &final,
			LeadUnderwriter:   &underwriter,
			Status:            models.IPOStatusCompleted,
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, created.ID)

		found, err := repo.FindByCompanyName(ctx, "에이피알")
		require.NoError(t, err)
		require.NotNil(t, found)

		assert.Equal(t, created.ID, found.ID)
		assert.True(t, dayPtr(2025, 1, 14).Equal(*found.SubscriptionStart))
		assert.True(t, dayPtr(2025, 1, 15).Equal(*found.SubscriptionEnd))
		assert.True(t, dayPtr(2025, 1, 24).Equal(*found.ListingDate))
		assert.Equal(t, kst, found.ListingDate.Location())
		assert.Equal(t, low, *found.PriceRangeLow)
		assert.Equal(t, high, *found.PriceRangeHigh)
		assert.Equal(t, final, *found.FinalPrice)
		assert.Equal(t, underwriter, *found.LeadUnderwriter)
		assert.Nil(t, found.Ticker)
		assert.Equal(t, models.IPOStatusCompleted, found.Status)
		assert.False(t, found.StatusLocked)
	})

	t.Run("missing entries return nil without error", func(t *testing.T) {
		found, err := repo.FindByCompanyName(ctx, "없는회사")
		require.NoError(t, err)
		assert.Nil(t, found)

		byID, err := repo.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, byID)
	})

	t.Run("update overwrites fields and bumps updated_at", func(t *testing.T) {
		created, err := repo.Create(ctx, models.IPOFields{CompanyName: "데이원컴퍼니", Status: models.IPOStatusUpcoming})
		require.NoError(t, err)

		fields := created.Fields()
		ticker := "373160"
		fields.Ticker = &ticker
		fields.Status = models.IPOStatusListed
		fields.StatusLocked = true

		updated, err := repo.Update(ctx, created.ID, fields)
		require.NoError(t, err)
		assert.Equal(t, ticker, *updated.Ticker)
		assert.Equal(t, models.IPOStatusListed, updated.Status)
		assert.True(t, updated.StatusLocked)
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		_, err = repo.Update(ctx, uuid.New(), fields)
		assert.ErrorIs(t, err, services.ErrIPONotFound)
	})

	t.Run("status check constraint rejects unknown values", func(t *testing.T) {
		_, err := repo.Create(ctx, models.IPOFields{CompanyName: "잘못된상태", Status: models.IPOStatus("WITHDRAWN")})
		require.Error(t, err)
		assert.Equal(t, shared.ErrorCategoryDatabase, shared.ErrorCategoryOf(err))
		assert.False(t, shared.IsRetryableError(err))
	})

	t.Run("list filters by status and orders by subscription start", func(t *testing.T) {
		_, err := repo.Create(ctx, models.IPOFields{
			CompanyName:       "미트박스글로벌",
			SubscriptionStart: dayPtr(2025, 1, 1),
			Status:            models.IPOStatusCompleted,
		})
		require.NoError(t, err)

		completed, err := repo.List(ctx, models.IPOStatusCompleted)
		require.NoError(t, err)
		require.Len(t, completed, 2)
		assert.Equal(t, "미트박스글로벌", completed[0].CompanyName)
		assert.Equal(t, "에이피알", completed[1].CompanyName)

		all, err := repo.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.Nil(t, all[2].SubscriptionStart)
	})
}

func TestIPOCalendarRepository_BacksSync(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIPOCalendarRepository(db, kst, 1)

	source := services.Source(&fixedSource{records: []models.ScrapedRecord{
		{CompanyName: "A", SubscriptionStart: dayPtr(2025, 3, 3), SubscriptionEnd: dayPtr(2025, 3, 4), Status: models.IPOStatusUpcoming},
		{CompanyName: "B", Status: models.IPOStatusUpcoming},
	}})
	service := services.NewIPOCalendarSyncService(
		services.NewReconciler(repo, services.StatusOwnershipAdminLock),
		services.MergeFirstWins,
		5*time.Second,
		source,
	)

	first := service.RunSync(context.Background())
	assert.Equal(t, 2, first.Added)
	assert.Empty(t, first.Errors)

	second := service.RunSync(context.Background())
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Updated)

	records, err := repo.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

type fixedSource struct {
	records []models.ScrapedRecord
}

func (s *fixedSource) Name() string { return "fixed" }

func (s *fixedSource) Fetch(ctx context.Context) services.SourceResult {
	return services.SourceResult{Source: "fixed", Records: s.records}
}
