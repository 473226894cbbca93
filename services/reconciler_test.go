package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/fenilmodi00/ipo-calendar-sync/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergedOf(records ...models.ScrapedRecord) map[string]models.ScrapedRecord {
	return MergeByPrecedence(MergeFirstWins, records)
}

func TestReconciler_CreatesThenUpdates(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, StatusOwnershipAdminLock)

	merged := mergedOf(
		models.ScrapedRecord{CompanyName: "A", Status: models.IPOStatusUpcoming},
		models.ScrapedRecord{CompanyName: "B", Status: models.IPOStatusSubscription},
		models.ScrapedRecord{CompanyName: "C", Status: models.IPOStatusCompleted},
	)

	first := reconciler.Reconcile(context.Background(), merged)
	assert.Equal(t, 3, first.Added)
	assert.Equal(t, 0, first.Updated)
	assert.Empty(t, first.Errors)

	second := reconciler.Reconcile(context.Background(), merged)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 3, second.Updated)
	assert.Empty(t, second.Errors)

	assert.Equal(t, 3, store.creates)
	assert.Equal(t, 3, store.updates)
}

func TestReconciler_EmptyInput(t *testing.T) {
	result := NewReconciler(newFakeStore(), StatusOwnershipSync).Reconcile(context.Background(), nil)

	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.NotNil(t, result.Errors)
	assert.Empty(t, result.Errors)
}

func TestReconciler_FailingRecordDoesNotStopOthers(t *testing.T) {
	store := newFakeStore()
	store.failCreate["B"] = errDatabaseDown
	reconciler := NewReconciler(store, StatusOwnershipAdminLock)

	result := reconciler.Reconcile(context.Background(), mergedOf(
		models.ScrapedRecord{CompanyName: "A"},
		models.ScrapedRecord{CompanyName: "B"},
		models.ScrapedRecord{CompanyName: "C"},
	))

	assert.Equal(t, 2, result.Added)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "B")
	assert.Contains(t, result.Errors[0], "connection reset by peer")
	assert.NotNil(t, store.byName("A"))
	assert.Nil(t, store.byName("B"))
	assert.NotNil(t, store.byName("C"))
}

func TestReconciler_PanicBecomesRecordError(t *testing.T) {
	store := newFakeStore()
	store.panicOn["B"] = true
	reconciler := NewReconciler(store, StatusOwnershipAdminLock)

	var result ReconcileResult
	assert.NotPanics(t, func() {
		result = reconciler.Reconcile(context.Background(), mergedOf(
			models.ScrapedRecord{CompanyName: "A"},
			models.ScrapedRecord{CompanyName: "B"},
		))
	})

	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "store exploded")
}

func TestReconciler_UpdateFailureIsReported(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, StatusOwnershipAdminLock)
	reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{CompanyName: "A"}))

	store.failUpdate["A"] = errDatabaseDown
	result := reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{CompanyName: "A"}))

	assert.Equal(t, 0, result.Updated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "update failed")
}

func TestReconciler_NewRecordDefaultsToUpcoming(t *testing.T) {
	store := newFakeStore()
	NewReconciler(store, StatusOwnershipAdminLock).Reconcile(context.Background(),
		mergedOf(models.ScrapedRecord{CompanyName: "A"}))

	rec := store.byName("A")
	require.NotNil(t, rec)
	assert.Equal(t, models.IPOStatusUpcoming, rec.Status)
	assert.False(t, rec.StatusLocked)
}

func TestReconciler_UnsetFieldsKeepStoredValues(t *testing.T) {
	store := newFakeStore()
	reconciler := NewReconciler(store, StatusOwnershipAdminLock)

	reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{
		CompanyName:       "A",
		SubscriptionStart: dayPtr(2025, 1, 27),
		SubscriptionEnd:   dayPtr(2025, 1, 28),
		PriceRangeLow:     ptr(int64(30000)),
		PriceRangeHigh:    ptr(int64(35000)),
		LeadUnderwriter:   ptr("미래에셋증권"),
		Status:            models.IPOStatusUpcoming,
	}))

	reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{
		CompanyName: "A",
		FinalPrice:  ptr(int64(34000)),
		Status:      models.IPOStatusSubscription,
	}))

	rec := store.byName("A")
	require.NotNil(t, rec)
	assert.True(t, day(2025, 1, 27).Equal(*rec.SubscriptionStart))
	assert.True(t, day(2025, 1, 28).Equal(*rec.SubscriptionEnd))
	assert.Equal(t, int64(30000), *rec.PriceRangeLow)
	assert.Equal(t, int64(35000), *rec.PriceRangeHigh)
	assert.Equal(t, int64(34000), *rec.FinalPrice)
	assert.Equal(t, "미래에셋증권", *rec.LeadUnderwriter)
	assert.Equal(t, models.IPOStatusSubscription, rec.Status)
}

func TestReconciler_ListedIsNeverDemoted(t *testing.T) {
	for _, ownership := range []StatusOwnership{StatusOwnershipSync, StatusOwnershipAdminLock} {
		t.Run(string(ownership), func(t *testing.T) {
			store := newFakeStore()
			reconciler := NewReconciler(store, ownership)

			reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{
				CompanyName: "A", Status: models.IPOStatusListed,
			}))
			result := reconciler.Reconcile(context.Background(), mergedOf(models.ScrapedRecord{
				CompanyName: "A", Status: models.IPOStatusUpcoming, PriceRangeLow: ptr(int64(5000)),
			}))

			assert.Equal(t, 1, result.Updated)
			rec := store.byName("A")
			assert.Equal(t, models.IPOStatusListed, rec.Status)
			assert.Equal(t, int64(5000), *rec.PriceRangeLow)
		})
	}
}

func TestReconciler_StatusOwnership(t *testing.T) {
	seedLocked := func(store *fakeStore) {
		_, err := store.Create(context.Background(), models.IPOFields{
			CompanyName:  "A",
			Status:       models.IPOStatusCompleted,
			StatusLocked: true,
		})
		require.NoError(t, err)
	}

	t.Run("admin-lock keeps a locked status", func(t *testing.T) {
		store := newFakeStore()
		seedLocked(store)

		NewReconciler(store, StatusOwnershipAdminLock).Reconcile(context.Background(),
			mergedOf(models.ScrapedRecord{CompanyName: "A", Status: models.IPOStatusSubscription}))

		rec := store.byName("A")
		assert.Equal(t, models.IPOStatusCompleted, rec.Status)
		assert.True(t, rec.StatusLocked)
	})

	t.Run("sync overwrites a locked status", func(t *testing.T) {
		store := newFakeStore()
		seedLocked(store)

		NewReconciler(store, StatusOwnershipSync).Reconcile(context.Background(),
			mergedOf(models.ScrapedRecord{CompanyName: "A", Status: models.IPOStatusSubscription}))

		rec := store.byName("A")
		assert.Equal(t, models.IPOStatusSubscription, rec.Status)
	})
}

func TestParseStatusOwnership(t *testing.T) {
	assert.Equal(t, StatusOwnershipSync, ParseStatusOwnership("sync"))
	assert.Equal(t, StatusOwnershipAdminLock, ParseStatusOwnership("admin-lock"))
	assert.Equal(t, StatusOwnershipAdminLock, ParseStatusOwnership(""))
}

func TestReconcilerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("added + updated + errors equals the number of merged records", prop.ForAll(
		func(count int, failing []int) bool {
			store := newFakeStore()
			records := make([]models.ScrapedRecord, count)
			for i := range records {
				records[i] = models.ScrapedRecord{CompanyName: fmt.Sprintf("company-%02d", i)}
			}
			for _, i := range failing {
				store.failCreate[fmt.Sprintf("company-%02d", i)] = errDatabaseDown
			}

			merged := mergedOf(records...)
			result := NewReconciler(store, StatusOwnershipAdminLock).Reconcile(context.Background(), merged)
			return result.Added+result.Updated+len(result.Errors) == len(merged)
		},
		gen.IntRange(0, 20),
		gen.SliceOf(gen.IntRange(0, 19)),
	))

	properties.Property("a second identical pass only updates", prop.ForAll(
		func(count int) bool {
			store := newFakeStore()
			records := make([]models.ScrapedRecord, count)
			for i := range records {
				records[i] = models.ScrapedRecord{CompanyName: fmt.Sprintf("company-%02d", i)}
			}
			reconciler := NewReconciler(store, StatusOwnershipSync)
			merged := mergedOf(records...)

			first := reconciler.Reconcile(context.Background(), merged)
			second := reconciler.Reconcile(context.Background(), merged)
			return first.Added == count && first.Updated == 0 &&
				second.Added == 0 && second.Updated == count
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
