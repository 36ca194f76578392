package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/metrics"
	"voter-outreach/internal/notify"
	"voter-outreach/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentService binds callers to territories. At most one active
// assignment per caller and per territory; the store enforces both atomically.
type AssignmentService struct {
	assignments repository.AssignmentsRepository
	voters      repository.VotersRepository
	territories repository.TerritoriesRepository
	notifier    notify.Notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewAssignmentService(
	assignments repository.AssignmentsRepository,
	voters repository.VotersRepository,
	territories repository.TerritoriesRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
) *AssignmentService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &AssignmentService{
		assignments: assignments,
		voters:      voters,
		territories: territories,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// AssignRequest assign-volunteer input
type AssignRequest struct {
	UserID     string           `json:"user_id"`
	Territory  domain.Territory `json:"territory"`
	AssignedBy string           `json:"-"`
}

// AssignResponse the new assignment plus whatever it displaced.
type AssignResponse struct {
	Assignment *domain.Assignment   `json:"assignment"`
	Displaced  []*domain.Assignment `json:"displaced"`
	VoterCount int                  `json:"voter_count"`
}

// Assign displaces the caller's current assignment and the territory's current
// holder, then activates the new assignment. Both sides are notified.
func (s *AssignmentService) Assign(ctx context.Context, req AssignRequest) (*AssignResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	assignedBy := strings.TrimSpace(req.AssignedBy)
	t := req.Territory.Clean()
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}
	if assignedBy == "" {
		return nil, fmt.Errorf("%w: assigned_by is required", domain.ErrInvalidArgument)
	}
	if !t.Complete() {
		return nil, fmt.Errorf("%w: state, lga, ward and polling_unit are required", domain.ErrInvalidArgument)
	}
	key := t.Key()

	count, err := s.voters.CountVotersInTerritory(ctx, key)
	if err != nil {
		metrics.AssignmentsTotal.WithLabelValues("assign", "error").Inc()
		return nil, err
	}
	if count == 0 {
		metrics.AssignmentsTotal.WithLabelValues("assign", "empty_territory").Inc()
		return nil, domain.ErrEmptyTerritory
	}

	if t.PollingUnitCode == "" {
		code, err := s.voters.PollingUnitCode(ctx, key)
		if err != nil {
			return nil, err
		}
		t.PollingUnitCode = code
	}

	a := &domain.Assignment{
		AssignmentID:    uuid.NewString(),
		UserID:          userID,
		State:           t.State,
		LGA:             t.LGA,
		Ward:            t.Ward,
		PollingUnit:     t.PollingUnit,
		PollingUnitCode: t.PollingUnitCode,
		TerritoryKey:    key,
		AssignedBy:      assignedBy,
		AssignedAt:      s.now().UTC(),
	}
	displaced, err := s.assignments.AssignExclusive(ctx, a)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrAssignmentConflict) {
			result = "conflict"
		}
		metrics.AssignmentsTotal.WithLabelValues("assign", result).Inc()
		s.logger.Warn("Assignment failed",
			zap.String("user_id", userID),
			zap.String("territory_key", key),
			zap.Error(err))
		return nil, err
	}
	metrics.AssignmentsTotal.WithLabelValues("assign", "ok").Inc()

	s.logger.Info("Volunteer assigned",
		zap.String("user_id", userID),
		zap.String("territory_key", key),
		zap.String("assigned_by", assignedBy),
		zap.Int("voters", count),
		zap.Int("displaced", len(displaced)))

	for _, d := range displaced {
		if d.UserID == userID {
			continue
		}
		s.notify(ctx, notify.EventAssignmentDisplaced, d.UserID, d)
	}
	s.notify(ctx, notify.EventAssignmentGranted, userID, a)

	return &AssignResponse{Assignment: a, Displaced: displaced, VoterCount: count}, nil
}

// Revoke deactivates userID's active assignment. Revoking a caller with no
// assignment is not an error; the returned assignment is nil then.
func (s *AssignmentService) Revoke(ctx context.Context, userID, revokedBy string) (*domain.Assignment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}
	a, err := s.assignments.DeactivateByUser(ctx, userID, s.now().UTC())
	if err != nil {
		metrics.AssignmentsTotal.WithLabelValues("revoke", "error").Inc()
		return nil, err
	}
	if a == nil {
		metrics.AssignmentsTotal.WithLabelValues("revoke", "noop").Inc()
		return nil, nil
	}
	metrics.AssignmentsTotal.WithLabelValues("revoke", "ok").Inc()
	s.logger.Info("Assignment revoked",
		zap.String("user_id", userID),
		zap.String("territory_key", a.TerritoryKey),
		zap.String("revoked_by", revokedBy))
	s.notify(ctx, notify.EventAssignmentRevoked, userID, a)
	return a, nil
}

// MyAssignment the caller's territory with its progress counters.
type MyAssignment struct {
	Assignment     *domain.Assignment `json:"assignment"`
	VoterCount     int                `json:"voter_count"`
	CalledCount    int                `json:"called_count"`
	ConfirmedCount int                `json:"confirmed_count"`
}

// GetMyAssignment nil, nil when the caller has no active assignment.
func (s *AssignmentService) GetMyAssignment(ctx context.Context, userID string) (*MyAssignment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	a, err := s.assignments.GetActiveByUser(ctx, userID)
	if err != nil || a == nil {
		return nil, err
	}
	out := &MyAssignment{Assignment: a}
	items, _, err := s.territories.ListTerritories(ctx, repository.TerritoryFilter{Keys: []string{a.TerritoryKey}}, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		out.VoterCount = items[0].VoterCount
		out.CalledCount = items[0].CalledCount
		out.ConfirmedCount = items[0].ConfirmedCount
	}
	return out, nil
}

// ListVolunteersRequest list-volunteers input
type ListVolunteersRequest struct {
	IncludeInactive bool
	UserIDs         []string
	State           string
	LGA             string
	Page            int
	Size            int
}

// ListVolunteersResponse one page of assignments with progress.
type ListVolunteersResponse struct {
	Items      []*domain.VolunteerSummary `json:"items"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
}

// ListVolunteers active assignments only unless IncludeInactive.
func (s *AssignmentService) ListVolunteers(ctx context.Context, req ListVolunteersRequest) (*ListVolunteersResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.assignments.ListAssignments(ctx, repository.AssignmentsFilter{
		IncludeInactive: req.IncludeInactive,
		UserIDs:         req.UserIDs,
		State:           strings.TrimSpace(req.State),
		LGA:             strings.TrimSpace(req.LGA),
	}, page, size)
	if err != nil {
		return nil, err
	}
	return &ListVolunteersResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(total, size),
	}, nil
}

// notify best effort; a delivery failure never undoes the assignment.
func (s *AssignmentService) notify(ctx context.Context, eventType, userID string, a *domain.Assignment) {
	ev := notify.Event{
		Type:       eventType,
		UserID:     userID,
		Assignment: a,
		Message:    notify.AssignmentMessage(eventType, a),
		At:         s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.Warn("Assignment notification failed",
			zap.String("type", eventType),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
