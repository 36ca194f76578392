package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"voter-outreach/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryVoterStore dedups on (phone, polling unit code) like the voters table.
type memoryVoterStore struct {
	keys      map[string]*domain.VoterRecord
	calls     int
	failBatch map[int]error
}

func newMemoryVoterStore() *memoryVoterStore {
	return &memoryVoterStore{keys: map[string]*domain.VoterRecord{}, failBatch: map[int]error{}}
}

func (m *memoryVoterStore) InsertVoterBatch(ctx context.Context, voters []*domain.VoterRecord) (int64, error) {
	m.calls++
	if err, ok := m.failBatch[m.calls]; ok {
		return 0, err
	}
	var n int64
	for _, v := range voters {
		key := v.PhoneNumber + "|" + v.PollingUnitCode
		if _, exists := m.keys[key]; exists {
			continue
		}
		m.keys[key] = v
		n++
	}
	return n, nil
}

func voters(n int, code string) []*domain.VoterRecord {
	out := make([]*domain.VoterRecord, n)
	for i := range out {
		out[i] = &domain.VoterRecord{
			PhoneNumber:     fmt.Sprintf("+234801%07d", i),
			PollingUnitCode: code,
			SourceRow:       i + 2,
		}
	}
	return out
}

func TestLoader_BatchesAndCountsDuplicates(t *testing.T) {
	store := newMemoryVoterStore()
	l := NewLoader(store, 4, zap.NewNop())

	records := voters(10, "PU1")
	records = append(records, &domain.VoterRecord{PhoneNumber: records[0].PhoneNumber, PollingUnitCode: "PU1", SourceRow: 12})

	res, err := l.Load(context.Background(), records, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 10, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
	assert.Empty(t, res.Errors)
	for _, v := range records {
		assert.NotEmpty(t, v.VoterID)
		assert.Equal(t, "admin-1", v.ImportedBy)
	}
}

func TestNewLoader_BatchSizeBounds(t *testing.T) {
	store := newMemoryVoterStore()
	assert.Equal(t, DefaultBatchSize, NewLoader(store, 0, zap.NewNop()).BatchSize())
	assert.Equal(t, 250, NewLoader(store, 250, zap.NewNop()).BatchSize())
	assert.Equal(t, MaxBatchSize, NewLoader(store, 6000, zap.NewNop()).BatchSize())
	assert.LessOrEqual(t, MaxBatchSize*13, 65535)
}

func TestLoader_OversizedBatchSizeIsSplit(t *testing.T) {
	store := newMemoryVoterStore()
	records := make([]*domain.VoterRecord, MaxBatchSize+10)
	for i := range records {
		records[i] = &domain.VoterRecord{PhoneNumber: fmt.Sprintf("+234803%07d", i), PollingUnitCode: "PU1-01"}
	}

	res, err := NewLoader(store, 6000, zap.NewNop()).Load(context.Background(), records, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
	assert.Equal(t, len(records), res.Inserted)
	assert.Empty(t, res.Errors)
}

func TestLoader_ReimportIsIdempotent(t *testing.T) {
	store := newMemoryVoterStore()
	l := NewLoader(store, 0, zap.NewNop())

	first, err := l.Load(context.Background(), voters(25, "PU1"), "admin-1")
	require.NoError(t, err)
	second, err := l.Load(context.Background(), voters(25, "PU1"), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 25, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, first.Inserted, second.Duplicates)
	assert.Len(t, store.keys, 25)
}

func TestLoader_FailedBatchDoesNotStopLaterBatches(t *testing.T) {
	store := newMemoryVoterStore()
	store.failBatch[2] = errors.New("value too long for type character varying(32)")
	l := NewLoader(store, 3, zap.NewNop())

	res, err := l.Load(context.Background(), voters(8, "PU1"), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 5, res.Inserted)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, domain.BatchError{FirstRow: 5, LastRow: 7, Rows: 3, Reason: "value too long for type character varying(32)"}, res.Errors[0])
}

func TestLoader_StopsWhenContextDone(t *testing.T) {
	store := newMemoryVoterStore()
	l := NewLoader(store, 2, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := l.Load(ctx, voters(4, "PU1"), "admin-1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.calls)
	assert.Equal(t, 0, res.Inserted)
}

// The three-row roll: one good row, its duplicate, one bad phone.
func TestPipeline_ThreeRowExample(t *testing.T) {
	rows := [][]any{
		{"State", "LGA", "Ward", "Polling Unit", "PU Code", "Phone"},
		{"Lagos", "Ikeja", "WardA", "PU1", "PU1-01", "08012345678"},
		{"Lagos", "Ikeja", "WardA", "PU1", "PU1-01", "08012345678"},
		{"Lagos", "Ikeja", "WardA", "PU1", "PU1-01", "123"},
	}
	wb, err := OpenWorkbook(buildWorkbook(t, rows), "roll.xlsx")
	require.NoError(t, err)
	defer wb.Close()
	sheet, err := wb.ReadAll()
	require.NoError(t, err)

	mapping := ColumnMapping{
		FieldState: ColumnName("State"), FieldLGA: ColumnName("LGA"), FieldWard: ColumnName("Ward"),
		FieldPollingUnit: ColumnName("Polling Unit"), FieldPollingUnitCode: ColumnName("PU Code"),
		FieldPhoneNumber: ColumnIndex(5),
	}
	resolved, err := mapping.Resolve(sheet.Headers)
	require.NoError(t, err)

	norm := NewNormalizer("234").NormalizeAll(resolved.ExtractAll(sheet.Rows))
	res, err := NewLoader(newMemoryVoterStore(), 0, zap.NewNop()).Load(context.Background(), norm.Accepted, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
	require.Len(t, norm.Rejected, 1)
	assert.Equal(t, 4, norm.Rejected[0].Row)
}
