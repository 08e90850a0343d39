package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotwatch/internal/domain"
	"lotwatch/internal/storage"
)

func testDate(d int) time.Time {
	return time.Date(2025, 8, d, 0, 0, 0, 0, time.UTC)
}

func testVehicleRecord(id int64, validFrom time.Time) *domain.VehicleRecord {
	reg := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	return &domain.VehicleRecord{
		RowID:            uuid.New(),
		VehicleID:        id,
		ModelName:        "i4 eDrive40",
		Price:            decimal.New(4890050, -2),
		Kilometers:       21000,
		RegistrationDate: &reg,
		PowerKW:          ptr(250),
		PowerPS:          ptr(340),
		BatteryRangeKM:   ptr(480),
		Link:             "https://example.test/vehicle/42",
		FirstSeen:        validFrom,
		LastSeen:         validFrom,
		ValidFrom:        validFrom,
		IsLatest:         true,
		Status:           domain.StatusActive,
		ScrapedAt:        validFrom.Add(6 * time.Hour),
	}
}

func TestVehicleHistoryStore_InsertAndGetLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	rec := testVehicleRecord(42, testDate(15))
	require.NoError(t, store.InsertVersion(ctx, rec))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)

	got := latest[0]
	assert.Equal(t, rec.RowID, got.RowID)
	assert.Equal(t, rec.VehicleID, got.VehicleID)
	assert.Equal(t, rec.ModelName, got.ModelName)
	assert.True(t, rec.Price.Equal(got.Price), "price %s != %s", got.Price, rec.Price)
	assert.Equal(t, rec.Kilometers, got.Kilometers)
	require.NotNil(t, got.RegistrationDate)
	assert.True(t, rec.RegistrationDate.Equal(*got.RegistrationDate))
	assert.Equal(t, *rec.PowerKW, *got.PowerKW)
	assert.Equal(t, *rec.BatteryRangeKM, *got.BatteryRangeKM)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.True(t, got.IsLatest)
	assert.Nil(t, got.ValidTo)
}

func TestVehicleHistoryStore_DuplicateVersionKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertVersion(ctx, testVehicleRecord(42, testDate(15))))

	err := store.InsertVersion(ctx, testVehicleRecord(42, testDate(15)))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestVehicleHistoryStore_VersionChain(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	v1 := testVehicleRecord(42, testDate(10))
	require.NoError(t, store.InsertVersion(ctx, v1))

	require.NoError(t, store.CloseVersion(ctx, v1.RowID, testDate(15)))

	v2 := testVehicleRecord(42, testDate(15))
	v2.Price = decimal.NewFromInt(46900)
	require.NoError(t, store.InsertVersion(ctx, v2))

	chain, err := store.GetByVehicleID(ctx, 42)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	assert.False(t, chain[0].IsLatest)
	require.NotNil(t, chain[0].ValidTo)
	assert.True(t, chain[0].ValidTo.Equal(testDate(15)))
	assert.True(t, chain[1].IsLatest)
	assert.Nil(t, chain[1].ValidTo)
	assert.True(t, chain[1].ValidFrom.Equal(testDate(15)))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, v2.RowID, latest[0].RowID)
}

func TestVehicleHistoryStore_CloseVersionIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	rec := testVehicleRecord(42, testDate(10))
	require.NoError(t, store.InsertVersion(ctx, rec))
	require.NoError(t, store.CloseVersion(ctx, rec.RowID, testDate(15)))

	// Closing a closed row again must not move valid_to.
	require.NoError(t, store.CloseVersion(ctx, rec.RowID, testDate(20)))

	chain, err := store.GetByVehicleID(ctx, 42)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.True(t, chain[0].ValidTo.Equal(testDate(15)))

	err = store.CloseVersion(ctx, uuid.New(), testDate(15))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVehicleHistoryStore_OneLatestEnforced(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertVersion(ctx, testVehicleRecord(42, testDate(10))))

	// A second open latest row for the same vehicle violates the partial
	// unique index.
	err := store.InsertVersion(ctx, testVehicleRecord(42, testDate(11)))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestVehicleHistoryStore_TouchLastSeen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	rec := testVehicleRecord(42, testDate(10))
	require.NoError(t, store.InsertVersion(ctx, rec))

	scraped := testDate(16).Add(6 * time.Hour)
	require.NoError(t, store.TouchLastSeen(ctx, rec.RowID, testDate(16), scraped))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.True(t, latest[0].LastSeen.Equal(testDate(16)))
	assert.True(t, latest[0].ScrapedAt.Equal(scraped))

	err = store.TouchLastSeen(ctx, uuid.New(), testDate(16), scraped)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVehicleHistoryStore_NullableFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewVehicleHistoryStore(pool)
	ctx := context.Background()

	rec := testVehicleRecord(42, testDate(10))
	rec.RegistrationDate = nil
	rec.PowerKW = nil
	rec.PowerPS = nil
	rec.BatteryRangeKM = nil
	require.NoError(t, store.InsertVersion(ctx, rec))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Nil(t, latest[0].RegistrationDate)
	assert.Nil(t, latest[0].PowerKW)
	assert.Nil(t, latest[0].PowerPS)
	assert.Nil(t, latest[0].BatteryRangeKM)
}
