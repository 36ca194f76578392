package service

import (
	"context"
	"fmt"
	"strings"

	"voter-outreach/internal/domain"
	"voter-outreach/internal/ingest"
	"voter-outreach/internal/repository"

	"go.uber.org/zap"
)

// TerritoryService territory browsing for the assignment UI.
type TerritoryService struct {
	territories repository.TerritoriesRepository
	voters      repository.VotersRepository
	logger      *zap.Logger
}

func NewTerritoryService(territories repository.TerritoriesRepository, voters repository.VotersRepository, logger *zap.Logger) *TerritoryService {
	return &TerritoryService{territories: territories, voters: voters, logger: logger}
}

// ListTerritoriesRequest list-available-territories input
type ListTerritoriesRequest struct {
	State          string
	LGA            string
	Ward           string
	UnassignedOnly bool
	Page           int
	Size           int
}

// TerritoryPage one page of territories.
type TerritoryPage struct {
	Items      []*domain.TerritorySummary `json:"items"`
	Total      int                        `json:"total"`
	Page       int                        `json:"page"`
	PageSize   int                        `json:"page_size"`
	TotalPages int                        `json:"total_pages"`
}

func (s *TerritoryService) ListAvailableTerritories(ctx context.Context, req ListTerritoriesRequest) (*TerritoryPage, error) {
	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.territories.ListTerritories(ctx, repository.TerritoryFilter{
		State:          req.State,
		LGA:            req.LGA,
		Ward:           req.Ward,
		UnassignedOnly: req.UnassignedOnly,
	}, page, size)
	if err != nil {
		return nil, err
	}
	return &TerritoryPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages(total, size),
	}, nil
}

func (s *TerritoryService) ListStates(ctx context.Context) ([]domain.AreaCount, error) {
	return s.territories.ListStates(ctx)
}

func (s *TerritoryService) ListLGAs(ctx context.Context, state string) ([]domain.AreaCount, error) {
	if err := required("state", state); err != nil {
		return nil, err
	}
	return s.territories.ListLGAs(ctx, state)
}

func (s *TerritoryService) ListWards(ctx context.Context, state, lga string) ([]domain.AreaCount, error) {
	if err := required("state", state); err != nil {
		return nil, err
	}
	if err := required("lga", lga); err != nil {
		return nil, err
	}
	return s.territories.ListWards(ctx, state, lga)
}

func (s *TerritoryService) ListPollingUnits(ctx context.Context, state, lga, ward string) ([]domain.AreaCount, error) {
	if err := required("state", state); err != nil {
		return nil, err
	}
	if err := required("lga", lga); err != nil {
		return nil, err
	}
	if err := required("ward", ward); err != nil {
		return nil, err
	}
	return s.territories.ListPollingUnits(ctx, state, lga, ward)
}

// ExportCallSheet xlsx of every voter in the territory, in call queue order.
func (s *TerritoryService) ExportCallSheet(ctx context.Context, t domain.Territory) ([]byte, error) {
	if !t.Complete() {
		return nil, fmt.Errorf("%w: state, lga, ward and polling_unit are required", domain.ErrInvalidArgument)
	}
	key := t.Key()
	count, err := s.voters.CountVotersInTerritory(ctx, key)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrEmptyTerritory
	}
	voters, _, err := s.voters.ListVotersByTerritory(ctx, key, domain.VoterFilterAll, 1, count)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Call sheet exported", zap.String("territory_key", key), zap.Int("voters", len(voters)))
	return ingest.GenerateCallSheet(voters)
}

func required(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidArgument, name)
	}
	return nil
}
