package domain

import "time"

// Assignment binds one caller to one territory (assignments table).
type Assignment struct {
	AssignmentID    string     `json:"assignment_id"`
	UserID          string     `json:"user_id"`
	State           string     `json:"state"`
	LGA             string     `json:"lga"`
	Ward            string     `json:"ward"`
	PollingUnit     string     `json:"polling_unit"`
	PollingUnitCode string     `json:"polling_unit_code"`
	TerritoryKey    string     `json:"territory_key"`
	AssignedBy      string     `json:"assigned_by"`
	AssignedAt      time.Time  `json:"assigned_at"`
	IsActive        bool       `json:"is_active"`
	DeactivatedAt   *time.Time `json:"deactivated_at,omitempty"`
}

// Territory returns the assigned territory.
func (a *Assignment) Territory() Territory {
	return Territory{
		State:           a.State,
		LGA:             a.LGA,
		Ward:            a.Ward,
		PollingUnit:     a.PollingUnit,
		PollingUnitCode: a.PollingUnitCode,
	}
}

// VolunteerSummary an assignment with the caller's progress on it.
type VolunteerSummary struct {
	Assignment
	VoterCount     int        `json:"voter_count"`
	CallsMade      int        `json:"calls_made"`
	ConfirmedCount int        `json:"confirmed_count"`
	LastCallAt     *time.Time `json:"last_call_at,omitempty"`
}
