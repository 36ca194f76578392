package repository

import (
	"context"

	"voter-outreach/internal/domain"
)

// TerritoryFilter narrows ListTerritories. Area names match case-insensitively.
type TerritoryFilter struct {
	State          string
	LGA            string
	Ward           string
	UnassignedOnly bool
	Keys           []string // empty = any
}

// TerritoriesRepository territories derived from distinct voter rows
type TerritoriesRepository interface {
	ListTerritories(ctx context.Context, filter TerritoryFilter, page, size int) ([]*domain.TerritorySummary, int, error)
	ListStates(ctx context.Context) ([]domain.AreaCount, error)
	ListLGAs(ctx context.Context, state string) ([]domain.AreaCount, error)
	ListWards(ctx context.Context, state, lga string) ([]domain.AreaCount, error)
	ListPollingUnits(ctx context.Context, state, lga, ward string) ([]domain.AreaCount, error)
}
