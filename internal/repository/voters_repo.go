package repository

import (
	"context"

	"voter-outreach/internal/domain"
)

// VotersRepository voter roll storage
type VotersRepository interface {
	// InsertVoterBatch one multi-row insert; rows whose (phone_number, polling_unit_code)
	// already exists are skipped. Returns the number of rows actually written.
	InsertVoterBatch(ctx context.Context, voters []*domain.VoterRecord) (int64, error)

	// GetVoter returns domain.ErrVoterNotFound when absent.
	GetVoter(ctx context.Context, voterID string) (*domain.VoterRecord, error)

	CountVotersInTerritory(ctx context.Context, territoryKey string) (int, error)

	// PollingUnitCode first non-empty code recorded for the territory, "" if none.
	PollingUnitCode(ctx context.Context, territoryKey string) (string, error)

	// ListVotersByTerritory call queue order: not called first, then most recently called.
	ListVotersByTerritory(ctx context.Context, territoryKey string, filter domain.VoterFilter, page, size int) ([]*domain.VoterRecord, int, error)
}
