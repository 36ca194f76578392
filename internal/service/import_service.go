package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/metrics"
	"voter-outreach/internal/store"

	"go.uber.org/zap"
)

// ImportService spreadsheet -> voters table, in two steps: preview then commit.
type ImportService struct {
	jobs        *store.ImportJobStore
	normalizer  *ingest.Normalizer
	loader      *ingest.Loader
	previewRows int
	logger      *zap.Logger
	now         func() time.Time
}

// NewImportService jobs may be nil when only the one-shot ImportFile path is used.
func NewImportService(jobs *store.ImportJobStore, normalizer *ingest.Normalizer, loader *ingest.Loader, previewRows int, logger *zap.Logger) *ImportService {
	return &ImportService{
		jobs:        jobs,
		normalizer:  normalizer,
		loader:      loader,
		previewRows: previewRows,
		logger:      logger,
		now:         time.Now,
	}
}

// PreviewResponse what the operator sees before choosing a mapping.
type PreviewResponse struct {
	JobID     string    `json:"job_id"`
	FileName  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at"`
	ingest.Preview
}

// CreatePreview parses the workbook once and parks it as an import job.
func (s *ImportService) CreatePreview(ctx context.Context, fileName string, r io.Reader, createdBy string) (*PreviewResponse, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("import jobs are not available")
	}
	if strings.TrimSpace(createdBy) == "" {
		return nil, fmt.Errorf("%w: created_by is required", domain.ErrInvalidArgument)
	}

	sheet, err := readSheet(fileName, r)
	if err != nil {
		return nil, err
	}

	job := &domain.ImportJob{
		FileName:  fileName,
		CreatedBy: createdBy,
		Headers:   sheet.Headers,
		Rows:      sheet.Rows,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Import job created",
		zap.String("job_id", job.JobID),
		zap.String("file_name", fileName),
		zap.String("created_by", createdBy),
		zap.Int("data_rows", len(sheet.Rows)),
		zap.Int("columns", len(sheet.Headers)))

	return &PreviewResponse{
		JobID:     job.JobID,
		FileName:  fileName,
		ExpiresAt: job.ExpiresAt,
		Preview:   sheet.Preview(s.previewRows),
	}, nil
}

// PreviewFile previews without creating a job.
func (s *ImportService) PreviewFile(fileName string, r io.Reader) (*ingest.Preview, error) {
	sheet, err := readSheet(fileName, r)
	if err != nil {
		return nil, err
	}
	p := sheet.Preview(s.previewRows)
	return &p, nil
}

// CommitImport applies mapping to a previewed job. Structural mapping errors
// leave the job in place so the operator can retry with a corrected mapping;
// the job is also kept when a batch failed, since re-committing is idempotent.
func (s *ImportService) CommitImport(ctx context.Context, jobID string, mapping ingest.ColumnMapping, importedBy string) (*domain.ImportResult, error) {
	if s.jobs == nil {
		return nil, fmt.Errorf("import jobs are not available")
	}
	if strings.TrimSpace(importedBy) == "" {
		return nil, fmt.Errorf("%w: imported_by is required", domain.ErrInvalidArgument)
	}

	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	res, err := s.run(ctx, &ingest.Sheet{Headers: job.Headers, Rows: job.Rows}, mapping, importedBy)
	if res != nil {
		res.JobID = jobID
	}
	if err != nil {
		return res, err
	}

	if len(res.Errors) == 0 {
		if err := s.jobs.Delete(ctx, jobID); err != nil {
			s.logger.Warn("Failed to delete committed import job", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	return res, nil
}

// ImportFile one-shot read + commit.
func (s *ImportService) ImportFile(ctx context.Context, fileName string, r io.Reader, mapping ingest.ColumnMapping, importedBy string) (*domain.ImportResult, error) {
	if strings.TrimSpace(importedBy) == "" {
		return nil, fmt.Errorf("%w: imported_by is required", domain.ErrInvalidArgument)
	}
	sheet, err := readSheet(fileName, r)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, sheet, mapping, importedBy)
}

// DiscardJob drops a previewed job; unknown ids are not an error.
func (s *ImportService) DiscardJob(ctx context.Context, jobID string) error {
	if s.jobs == nil {
		return fmt.Errorf("import jobs are not available")
	}
	return s.jobs.Delete(ctx, jobID)
}

// Template an empty roll with the canonical header.
func (s *ImportService) Template() ([]byte, error) {
	return ingest.GenerateImportTemplate()
}

func readSheet(fileName string, r io.Reader) (*ingest.Sheet, error) {
	wb, err := ingest.OpenWorkbook(r, fileName)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.ReadAll()
}

// run resolve -> extract -> normalize -> load. On cancellation the partial
// result is returned together with the context error.
func (s *ImportService) run(ctx context.Context, sheet *ingest.Sheet, mapping ingest.ColumnMapping, importedBy string) (*domain.ImportResult, error) {
	start := s.now()

	resolved, err := mapping.Resolve(sheet.Headers)
	if err != nil {
		s.logger.Warn("Import mapping rejected", zap.Error(err))
		return nil, err
	}

	norm := s.normalizer.NormalizeAll(resolved.ExtractAll(sheet.Rows))
	metrics.ImportRowsTotal.WithLabelValues("rejected").Add(float64(len(norm.Rejected)))

	loaded, loadErr := s.loader.Load(ctx, norm.Accepted, importedBy)

	res := &domain.ImportResult{
		TotalRows: norm.TotalRows,
		Rejected:  norm.Rejected,
		Errors:    []domain.BatchError{},
	}
	if loaded != nil {
		res.Inserted = loaded.Inserted
		res.Duplicates = loaded.Duplicates
		res.Errors = loaded.Errors
	}
	res.Duration = s.now().Sub(start)
	metrics.ImportDurationSeconds.Observe(res.Duration.Seconds())

	fields := []zap.Field{
		zap.String("imported_by", importedBy),
		zap.Int("total_rows", res.TotalRows),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("rejected", len(res.Rejected)),
		zap.Int("failed_batches", len(res.Errors)),
		zap.Duration("duration", res.Duration),
	}
	if loadErr != nil {
		if errors.Is(loadErr, context.Canceled) || errors.Is(loadErr, context.DeadlineExceeded) {
			s.logger.Warn("Import cancelled", append(fields, zap.Error(loadErr))...)
		} else {
			s.logger.Error("Import failed", append(fields, zap.Error(loadErr))...)
		}
		return res, fmt.Errorf("import stopped: %w", loadErr)
	}
	s.logger.Info("Import completed", fields...)
	return res, nil
}
