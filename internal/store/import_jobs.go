package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voter-outreach/internal/domain"

	"github.com/google/uuid"
)

// DefaultJobTTL how long a previewed workbook waits for its mapping
const DefaultJobTTL = 30 * time.Minute

// ImportJobStore parsed workbooks between preview and commit, expiring after ttl.
type ImportJobStore struct {
	kv     KV
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewImportJobStore ttl <= 0 means DefaultJobTTL.
func NewImportJobStore(kv KV, prefix string, ttl time.Duration) *ImportJobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &ImportJobStore{kv: kv, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *ImportJobStore) key(jobID string) string {
	return s.prefix + jobID
}

// Create assigns JobID, CreatedAt and ExpiresAt, then stores the job.
func (s *ImportJobStore) Create(ctx context.Context, job *domain.ImportJob) error {
	now := s.now().UTC()
	job.JobID = uuid.NewString()
	job.CreatedAt = now
	job.ExpiresAt = now.Add(s.ttl)

	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode import job: %w", err)
	}
	if err := s.kv.Set(ctx, s.key(job.JobID), string(b), s.ttl); err != nil {
		return fmt.Errorf("failed to store import job: %w", err)
	}
	return nil
}

// Get returns domain.ErrImportJobNotFound once the job expired or was removed.
func (s *ImportJobStore) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrImportJobNotFound
	}
	raw, err := s.kv.Get(ctx, s.key(jobID))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, domain.ErrImportJobNotFound
		}
		return nil, fmt.Errorf("failed to load import job: %w", err)
	}
	var job domain.ImportJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to decode import job: %w", err)
	}
	return &job, nil
}

// Delete is idempotent; removing an unknown job is not an error.
func (s *ImportJobStore) Delete(ctx context.Context, jobID string) error {
	if _, err := s.kv.Del(ctx, s.key(jobID)); err != nil {
		return fmt.Errorf("failed to delete import job: %w", err)
	}
	return nil
}

// Remaining time before the job expires.
func (s *ImportJobStore) Remaining(ctx context.Context, jobID string) (time.Duration, error) {
	d, err := s.kv.TTL(ctx, s.key(jobID))
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return 0, domain.ErrImportJobNotFound
		}
		return 0, fmt.Errorf("failed to read import job ttl: %w", err)
	}
	return d, nil
}
