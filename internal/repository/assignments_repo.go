package repository

import (
	"context"
	"time"

	"voter-outreach/internal/domain"
)

// AssignmentsFilter list filter for ListAssignments
type AssignmentsFilter struct {
	IncludeInactive bool
	UserIDs         []string // empty = any
	State           string
	LGA             string
}

// AssignmentsRepository assignments table
type AssignmentsRepository interface {
	// AssignExclusive deactivates every active row held by a.UserID or for
	// a.TerritoryKey and inserts a as the new active row, in one transaction.
	// Returns the rows it displaced. A lost race yields domain.ErrAssignmentConflict.
	AssignExclusive(ctx context.Context, a *domain.Assignment) ([]*domain.Assignment, error)

	// DeactivateByUser returns the deactivated row, or nil when the user had none.
	DeactivateByUser(ctx context.Context, userID string, at time.Time) (*domain.Assignment, error)

	// GetActiveByUser returns nil, nil when the user has no active assignment.
	GetActiveByUser(ctx context.Context, userID string) (*domain.Assignment, error)

	// ListAssignments newest first, with per-assignment progress counters.
	ListAssignments(ctx context.Context, filter AssignmentsFilter, page, size int) ([]*domain.VolunteerSummary, int, error)
}
