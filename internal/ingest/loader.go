package ingest

import (
	"context"
	"fmt"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize rows per multi-row insert
const DefaultBatchSize = 1000

// MaxBatchSize keeps one insert under Postgres' 65535 bind parameters at
// 13 parameters per voter row.
const MaxBatchSize = 65535 / 13

// VoterBatchWriter inserts a batch, skipping rows whose dedup key already
// exists, and reports how many rows were actually written.
type VoterBatchWriter interface {
	InsertVoterBatch(ctx context.Context, voters []*domain.VoterRecord) (int64, error)
}

// Loader writes normalized records in fixed-size batches.
type Loader struct {
	writer    VoterBatchWriter
	batchSize int
	logger    *zap.Logger
}

// NewLoader batchSize <= 0 means DefaultBatchSize; larger than MaxBatchSize is capped.
func NewLoader(writer VoterBatchWriter, batchSize int, logger *zap.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Loader{writer: writer, batchSize: batchSize, logger: logger}
}

// LoadResult aggregate of one Load call.
type LoadResult struct {
	Inserted   int
	Duplicates int
	Errors     []domain.BatchError
}

// Load inserts records in file order. A failing batch is recorded and the next
// one is still attempted. Committed batches stay committed; when ctx is done the
// remaining batches are not attempted and ctx.Err() is returned with the partial result.
func (l *Loader) Load(ctx context.Context, records []*domain.VoterRecord, importedBy string) (*LoadResult, error) {
	res := &LoadResult{Errors: make([]domain.BatchError, 0)}

	for start := 0; start < len(records); start += l.batchSize {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("Import interrupted",
				zap.Int("committed_rows", start),
				zap.Int("remaining_rows", len(records)-start),
				zap.Error(err))
			return res, err
		}

		end := start + l.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		for _, v := range batch {
			if v.VoterID == "" {
				v.VoterID = uuid.NewString()
			}
			v.ImportedBy = importedBy
		}

		inserted, err := l.writer.InsertVoterBatch(ctx, batch)
		if err != nil {
			be := domain.BatchError{
				FirstRow: batch[0].SourceRow,
				LastRow:  batch[len(batch)-1].SourceRow,
				Rows:     len(batch),
				Reason:   err.Error(),
			}
			res.Errors = append(res.Errors, be)
			metrics.ImportBatchesTotal.WithLabelValues("failed").Inc()
			metrics.ImportRowsTotal.WithLabelValues("failed").Add(float64(len(batch)))
			l.logger.Error("Voter batch insert failed",
				zap.Int("first_row", be.FirstRow),
				zap.Int("last_row", be.LastRow),
				zap.Error(err))
			continue
		}
		if inserted < 0 || int(inserted) > len(batch) {
			return res, fmt.Errorf("store reported %d inserted rows for a batch of %d", inserted, len(batch))
		}

		dups := len(batch) - int(inserted)
		res.Inserted += int(inserted)
		res.Duplicates += dups
		metrics.ImportBatchesTotal.WithLabelValues("ok").Inc()
		metrics.ImportRowsTotal.WithLabelValues("inserted").Add(float64(inserted))
		metrics.ImportRowsTotal.WithLabelValues("duplicate").Add(float64(dups))
		l.logger.Debug("Voter batch loaded",
			zap.Int("batch_start", start),
			zap.Int("size", len(batch)),
			zap.Int64("inserted", inserted),
			zap.Int("duplicates", dups))
	}
	return res, nil
}

// BatchSize rows per insert after defaults and the cap are applied.
func (l *Loader) BatchSize() int {
	return l.batchSize
}
