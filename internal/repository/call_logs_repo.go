package repository

import (
	"context"
	"time"

	"voter-outreach/internal/domain"
)

// CallRecord everything one recorded call writes.
type CallRecord struct {
	CallLogID    string
	VoterID      string
	TerritoryKey string // the caller's territory; the update only applies inside it
	VolunteerID  string
	Update       domain.VoterUpdate
	Outcome      domain.CallOutcome
	At           time.Time
}

// CallLogsRepository voter call-state updates and the append-only call log
type CallLogsRepository interface {
	// RecordCall applies the update and appends the log entry in one transaction.
	// A voter outside rec.TerritoryKey yields domain.ErrUnauthorizedTerritory and writes nothing.
	RecordCall(ctx context.Context, rec CallRecord) (*domain.VoterRecord, *domain.CallLog, error)

	// ListCallLogs newest first.
	ListCallLogs(ctx context.Context, voterID string, limit int) ([]*domain.CallLog, error)
}
