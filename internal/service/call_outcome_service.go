package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/metrics"
	"voter-outreach/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CallOutcomeService records what happened on a call.
type CallOutcomeService struct {
	assignments repository.AssignmentsRepository
	voters      repository.VotersRepository
	callLogs    repository.CallLogsRepository
	events      CallEventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewCallOutcomeService events may be nil.
func NewCallOutcomeService(
	assignments repository.AssignmentsRepository,
	voters repository.VotersRepository,
	callLogs repository.CallLogsRepository,
	events CallEventPublisher,
	logger *zap.Logger,
) *CallOutcomeService {
	if events == nil {
		events = nopEventPublisher{}
	}
	return &CallOutcomeService{
		assignments: assignments,
		voters:      voters,
		callLogs:    callLogs,
		events:      events,
		logger:      logger,
		now:         time.Now,
	}
}

// RecordCallResponse the updated voter and the appended log entry.
type RecordCallResponse struct {
	Voter   *domain.VoterRecord `json:"voter"`
	CallLog *domain.CallLog     `json:"call_log"`
}

// RecordCall checks, in order, that the caller has an assignment, that the
// voter exists and that it belongs to the caller's territory. Nothing is
// written unless all three hold.
func (s *CallOutcomeService) RecordCall(ctx context.Context, voterID, callerID string, upd domain.VoterUpdate) (*RecordCallResponse, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, fmt.Errorf("%w: caller id is required", domain.ErrInvalidArgument)
	}
	if err := upd.CheckOutcome(); err != nil {
		s.reject("invalid_outcome")
		return nil, err
	}

	a, err := s.assignments.GetActiveByUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		s.reject("no_assignment")
		return nil, domain.ErrNoActiveAssignment
	}

	voter, err := s.voters.GetVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, domain.ErrVoterNotFound) {
			s.reject("voter_not_found")
		}
		return nil, err
	}
	if voter.TerritoryKey != a.TerritoryKey {
		s.reject("unauthorized_territory")
		s.logger.Warn("Call outside caller territory",
			zap.String("caller_id", callerID),
			zap.String("voter_id", voterID),
			zap.String("caller_territory", a.TerritoryKey),
			zap.String("voter_territory", voter.TerritoryKey))
		return nil, domain.ErrUnauthorizedTerritory
	}

	outcome := upd.DerivedOutcome()
	updated, log, err := s.callLogs.RecordCall(ctx, repository.CallRecord{
		CallLogID:    uuid.NewString(),
		VoterID:      voter.VoterID,
		TerritoryKey: a.TerritoryKey,
		VolunteerID:  callerID,
		Update:       upd,
		Outcome:      outcome,
		At:           s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	metrics.CallsRecordedTotal.WithLabelValues(string(outcome)).Inc()

	ev := CallEvent{
		CallLogID:    log.CallLogID,
		VoterID:      log.VoterID,
		VolunteerID:  callerID,
		TerritoryKey: a.TerritoryKey,
		Outcome:      outcome,
		Confirmed:    updated.ConfirmedToVote,
		CallDate:     log.CallDate,
	}
	if err := s.events.PublishCallRecorded(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish call event", zap.String("call_log_id", log.CallLogID), zap.Error(err))
	}

	s.logger.Info("Call recorded",
		zap.String("caller_id", callerID),
		zap.String("voter_id", voterID),
		zap.String("outcome", string(outcome)),
		zap.Int("call_count", updated.CallCount))

	return &RecordCallResponse{Voter: updated, CallLog: log}, nil
}

// CallHistory call log of one voter, visible only to the territory's current caller.
func (s *CallOutcomeService) CallHistory(ctx context.Context, voterID, callerID string, limit int) ([]*domain.CallLog, error) {
	a, err := s.assignments.GetActiveByUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrNoActiveAssignment
	}
	voter, err := s.voters.GetVoter(ctx, voterID)
	if err != nil {
		return nil, err
	}
	if voter.TerritoryKey != a.TerritoryKey {
		return nil, domain.ErrUnauthorizedTerritory
	}
	return s.callLogs.ListCallLogs(ctx, voterID, limit)
}

func (s *CallOutcomeService) reject(reason string) {
	metrics.CallRejectionsTotal.WithLabelValues(reason).Inc()
}
