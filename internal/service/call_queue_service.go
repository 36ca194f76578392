package service

import (
	"context"
	"fmt"
	"strings"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/repository"

	"go.uber.org/zap"
)

// CallQueueService the voters a caller works through.
type CallQueueService struct {
	assignments repository.AssignmentsRepository
	voters      repository.VotersRepository
	logger      *zap.Logger
}

func NewCallQueueService(assignments repository.AssignmentsRepository, voters repository.VotersRepository, logger *zap.Logger) *CallQueueService {
	return &CallQueueService{assignments: assignments, voters: voters, logger: logger}
}

// ListMyVotersRequest list-my-voters input
type ListMyVotersRequest struct {
	UserID   string
	Filter   string
	Page     int
	PageSize int
}

// VoterPage one page of the call queue.
type VoterPage struct {
	Items      []*domain.VoterRecord `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	Filter     domain.VoterFilter    `json:"filter"`
	Assignment *domain.Assignment    `json:"assignment,omitempty"`
}

// ListMyVoters voters of the caller's active territory. A caller without an
// assignment gets an empty page, not an error.
func (s *CallQueueService) ListMyVoters(ctx context.Context, req ListMyVotersRequest) (*VoterPage, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	filter, err := domain.ParseVoterFilter(strings.TrimSpace(req.Filter))
	if err != nil {
		return nil, err
	}
	page, size := normalizePage(req.Page, req.PageSize)

	out := &VoterPage{
		Items:    []*domain.VoterRecord{},
		Page:     page,
		PageSize: size,
		Filter:   filter,
	}

	a, err := s.assignments.GetActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		s.logger.Debug("Call queue requested without assignment", zap.String("user_id", req.UserID))
		return out, nil
	}
	out.Assignment = a

	items, total, err := s.voters.ListVotersByTerritory(ctx, a.TerritoryKey, filter, page, size)
	if err != nil {
		return nil, err
	}
	out.Items = items
	out.Total = total
	out.TotalPages = totalPages(total, size)
	return out, nil
}
