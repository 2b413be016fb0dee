package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
)

func setupTestRepo(t *testing.T) LabResultRepository {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: ":memory:"}, nil)
	require.NoError(t, err, "failed to open test database")
	return NewLabResultRepository(db, nil)
}

func testRecord(date, rawName, value string) *entity.LabResult {
	d, _ := time.Parse("2006-01-02", date)
	return &entity.LabResult{
		SourceFile: "report.pdf",
		TestDate:   d,
		RawName:    rawName,
		Value:      value,
	}
}

func TestLoadReturnsEmptyCollectionWhenNoPriorState(t *testing.T) {
	repo := setupTestRepo(t)

	collection, err := repo.Load(context.Background())

	require.NoError(t, err, "load must not fail for missing prior state")
	assert.Zero(t, collection.Len())
}

func TestUpsertDeduplicatesOnNaturalKey(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := entity.NewCollection()
	c.Append(
		testRecord("2024-01-01", "HBA1C", "5.4"),
		testRecord("2024-01-01", "HBA1C", "9.9"), // same key, differing value
	)

	_, err := repo.UpsertAll(ctx, c)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len(), "exactly one record per (test_date, raw_name)")
	assert.Equal(t, "5.4", loaded.Records[0].Value, "first write wins")
}

func TestUpsertIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := entity.NewCollection()
	c.Append(testRecord("2024-01-01", "HBA1C", "5.4"))

	inserted, err := repo.UpsertAll(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Re-saving the same collection is a no-op.
	c2 := entity.NewCollection()
	c2.Append(testRecord("2024-01-01", "HBA1C", "5.4"))
	inserted, err = repo.UpsertAll(ctx, c2)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}

func TestUpsertBackfillsCanonicalName(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	unmapped := entity.NewCollection()
	unmapped.Append(testRecord("2024-01-01", "ALBUMIN, U (NHGD)", "30"))
	_, err := repo.UpsertAll(ctx, unmapped)
	require.NoError(t, err)

	// A later run resolved the name; the stored row picks it up.
	mapped := testRecord("2024-01-01", "ALBUMIN, U (NHGD)", "30")
	canonical := "Albumin, Urine"
	mapped.CanonicalName = &canonical
	c := entity.NewCollection()
	c.Append(mapped)
	_, err = repo.UpsertAll(ctx, c)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	require.NotNil(t, loaded.Records[0].CanonicalName)
	assert.Equal(t, "Albumin, Urine", *loaded.Records[0].CanonicalName)
	assert.Equal(t, "30", loaded.Records[0].Value, "other fields keep their first write")
}

func TestUpsertSkipsInvalidRecords(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := entity.NewCollection()
	c.Append(
		testRecord("2024-01-01", "", "5.4"), // no raw name
		&entity.LabResult{SourceFile: "r.pdf", RawName: "HBA1C", Value: "5.4"}, // no test date
		testRecord("2024-01-01", "HBA1C", "5.4"),
	)

	inserted, err := repo.UpsertAll(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "records missing either half of the natural key never reach the store")
}

func TestListBetweenFiltersByDateWindow(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := entity.NewCollection()
	c.Append(
		testRecord("2024-01-01", "HBA1C", "5.4"),
		testRecord("2024-06-01", "HBA1C", "5.6"),
		testRecord("2024-12-01", "HBA1C", "5.8"),
	)
	_, err := repo.UpsertAll(ctx, c)
	require.NoError(t, err)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	window, err := repo.ListBetween(ctx, &from, &to)
	require.NoError(t, err)
	require.Equal(t, 1, window.Len())
	assert.Equal(t, "5.6", window.Records[0].Value)

	all, err := repo.ListBetween(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())
}

func TestRoundTripPreservesOptionalFields(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	r := testRecord("2024-01-01", "HBA1C", "9.1")
	unit := "%"
	reason := "above reference range"
	recommendation := "consult your physician"
	r.Unit = &unit
	r.Reason = &reason
	r.Recommendation = &recommendation

	c := entity.NewCollection()
	c.Append(r)
	_, err := repo.UpsertAll(ctx, c)
	require.NoError(t, err)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	got := loaded.Records[0]
	assert.Equal(t, "%", *got.Unit)
	assert.Equal(t, "above reference range", *got.Reason)
	assert.Equal(t, "consult your physician", *got.Recommendation)
	assert.Nil(t, got.CanonicalName)
}
