package standardize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm"
)

// stubGrouper scripts the reasoning-service responses for engine tests.
type stubGrouper struct {
	corrections []llm.NameCorrection
	err         error

	calls        int
	lastKnown    []llm.KnownMapping
	lastUnmapped []string
}

func (s *stubGrouper) GroupNames(_ context.Context, known []llm.KnownMapping, unmapped []string) ([]llm.NameCorrection, error) {
	s.calls++
	s.lastKnown = known
	s.lastUnmapped = unmapped
	return s.corrections, s.err
}

func record(date string, rawName string, canonical string) *entity.LabResult {
	d, _ := time.Parse("2006-01-02", date)
	r := &entity.LabResult{TestDate: d, RawName: rawName, Value: "1.0"}
	if canonical != "" {
		r.CanonicalName = &canonical
	}
	return r
}

func TestReconcileAppliesGroupingDecisions(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(
		record("2024-01-01", "ALBUMIN, U (NHGD)", ""),
		record("2024-01-01", "Creatinine", "Creatinine"),
	)

	grouper := &stubGrouper{
		corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "Albumin, Urine"},
		},
	}
	engine := NewEngine(grouper, nil)

	err := engine.Reconcile(context.Background(), collection)
	require.NoError(t, err)

	require.NotNil(t, collection.Records[0].CanonicalName)
	assert.Equal(t, "Albumin, Urine", *collection.Records[0].CanonicalName)
	assert.Equal(t, "Creatinine", *collection.Records[1].CanonicalName)

	// Known mappings were passed through as context, new names as the
	// grouping payload.
	assert.Equal(t, []llm.KnownMapping{{CanonicalName: "Creatinine", RawName: "Creatinine"}}, grouper.lastKnown)
	assert.Equal(t, []string{"ALBUMIN, U (NHGD)"}, grouper.lastUnmapped)
}

func TestReconcileIsIdempotent(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(record("2024-01-01", "ALBUMIN, U (NHGD)", ""))

	grouper := &stubGrouper{
		corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "Albumin, Urine"},
		},
	}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))
	require.Equal(t, 1, grouper.calls)

	before := collection.Clone()
	// Second call with nothing new unmapped must be a no-op and must not
	// consult the service again.
	require.NoError(t, engine.Reconcile(context.Background(), collection))
	assert.Equal(t, 1, grouper.calls)
	assert.Equal(t, before, collection.Clone())
}

func TestReconcileNoopOnFullyMappedCollection(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(record("2024-01-01", "Creatinine", "Creatinine"))

	grouper := &stubGrouper{err: errors.New("should not be called")}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))
	assert.Zero(t, grouper.calls)
}

func TestReconcileKeepsEstablishedMappingsStable(t *testing.T) {
	// A raw name whose mapping is already known must keep its canonical name
	// even when the service proposes a different one alongside new names.
	collection := entity.NewCollection()
	collection.Append(
		record("2024-01-01", "ALBUMIN, U (NHGD)", "Albumin, Urine"),
		record("2024-02-01", "ALBUMIN, U (NHGD)", ""),
		record("2024-02-01", "HbA1c (IFCC)", ""),
	)

	grouper := &stubGrouper{
		corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "Urine Albumin"}, // drift attempt
			{RawName: "HbA1c (IFCC)", CanonicalName: "Hemoglobin A1c"},
		},
	}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))

	assert.Equal(t, "Albumin, Urine", *collection.Records[1].CanonicalName)
	assert.Equal(t, "Hemoglobin A1c", *collection.Records[2].CanonicalName)
	// The already-known raw name is resolved locally, so only the genuinely
	// new name went to the service.
	assert.Equal(t, []string{"HbA1c (IFCC)"}, grouper.lastUnmapped)
}

func TestReconcileSkipsServiceWhenAllUnmappedAreKnown(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(
		record("2024-01-01", "Creatinine", "Creatinine"),
		record("2024-02-01", "Creatinine", ""),
	)

	grouper := &stubGrouper{err: errors.New("should not be called")}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))
	assert.Zero(t, grouper.calls)
	assert.Equal(t, "Creatinine", *collection.Records[1].CanonicalName)
}

func TestReconcileFailureLeavesCollectionUnmodified(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(
		record("2024-01-01", "ALBUMIN, U (NHGD)", ""),
		record("2024-01-01", "Creatinine", "Creatinine"),
	)
	before := collection.Clone()

	cases := []struct {
		name    string
		grouper *stubGrouper
	}{
		{"transport error", &stubGrouper{err: errors.New("boom")}},
		{"empty response", &stubGrouper{}},
		{"malformed entry", &stubGrouper{corrections: []llm.NameCorrection{{RawName: "", CanonicalName: "X"}}}},
		{"conflicting entries", &stubGrouper{corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "A"},
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "B"},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(tc.grouper, nil)
			err := engine.Reconcile(context.Background(), collection)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrStandardization)
			assert.Equal(t, before, collection.Clone(), "collection must be field-by-field identical after a failed reconcile")
		})
	}
}

func TestReconcileIgnoresCorrectionsForAbsentNames(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(record("2024-01-01", "ALBUMIN, U (NHGD)", ""))

	grouper := &stubGrouper{
		corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "Albumin, Urine"},
			{RawName: "Some Future Test", CanonicalName: "Future Test"},
		},
	}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))
	assert.Equal(t, "Albumin, Urine", *collection.Records[0].CanonicalName)
	assert.Empty(t, collection.UnmappedNames())
}

func TestReconcileMatchesTrimmedCaseFolded(t *testing.T) {
	collection := entity.NewCollection()
	collection.Append(record("2024-01-01", "  Albumin, U (NHGD) ", ""))

	grouper := &stubGrouper{
		corrections: []llm.NameCorrection{
			{RawName: "ALBUMIN, U (NHGD)", CanonicalName: "Albumin, Urine"},
		},
	}
	engine := NewEngine(grouper, nil)

	require.NoError(t, engine.Reconcile(context.Background(), collection))
	require.NotNil(t, collection.Records[0].CanonicalName)
	assert.Equal(t, "Albumin, Urine", *collection.Records[0].CanonicalName)
	// the stored raw name is untouched; only matching normalizes
	assert.Equal(t, "  Albumin, U (NHGD) ", collection.Records[0].RawName)
}
