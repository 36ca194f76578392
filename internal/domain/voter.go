package domain

import (
	"fmt"
	"time"
)

// VoterRecord one row of the voter roll (voters table).
type VoterRecord struct {
	VoterID         string     `json:"voter_id"`
	State           string     `json:"state"`
	LGA             string     `json:"lga"`
	Ward            string     `json:"ward"`
	PollingUnit     string     `json:"polling_unit"`
	PollingUnitCode string     `json:"polling_unit_code"`
	TerritoryKey    string     `json:"territory_key"`
	PhoneNumber     string     `json:"phone_number"`
	FullName        *string    `json:"full_name,omitempty"`
	EmailAddress    *string    `json:"email_address,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	AgeGroup        *string    `json:"age_group,omitempty"`
	CalledRecently  bool       `json:"called_recently"`
	LastCalledAt    *time.Time `json:"last_called_at,omitempty"`
	ConfirmedToVote *bool      `json:"confirmed_to_vote,omitempty"`
	Demands         *string    `json:"demands,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	CallCount       int        `json:"call_count"`
	ImportedBy      string     `json:"imported_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// SourceRow is the spreadsheet row the record came from; not persisted.
	SourceRow int `json:"-"`
}

// Territory returns the voter's territory path.
func (v *VoterRecord) Territory() Territory {
	return Territory{
		State:           v.State,
		LGA:             v.LGA,
		Ward:            v.Ward,
		PollingUnit:     v.PollingUnit,
		PollingUnitCode: v.PollingUnitCode,
	}
}

// VoterUpdate is the payload recorded after a call. Every field is optional:
// nil leaves the stored value untouched, a non-nil value overwrites it.
type VoterUpdate struct {
	ConfirmedToVote *bool        `json:"confirmed_to_vote,omitempty"`
	Notes           *string      `json:"notes,omitempty"`
	Demands         *string      `json:"demands,omitempty"`
	FullName        *string      `json:"full_name,omitempty"`
	EmailAddress    *string      `json:"email_address,omitempty"`
	Gender          *string      `json:"gender,omitempty"`
	AgeGroup        *string      `json:"age_group,omitempty"`
	Outcome         *CallOutcome `json:"call_outcome,omitempty"`
}

// Snapshot returns only the supplied fields, keyed by their JSON names.
// Outcome is excluded; it is stored in its own column.
func (u VoterUpdate) Snapshot() map[string]any {
	m := make(map[string]any)
	if u.ConfirmedToVote != nil {
		m["confirmed_to_vote"] = *u.ConfirmedToVote
	}
	if u.Notes != nil {
		m["notes"] = *u.Notes
	}
	if u.Demands != nil {
		m["demands"] = *u.Demands
	}
	if u.FullName != nil {
		m["full_name"] = *u.FullName
	}
	if u.EmailAddress != nil {
		m["email_address"] = *u.EmailAddress
	}
	if u.Gender != nil {
		m["gender"] = *u.Gender
	}
	if u.AgeGroup != nil {
		m["age_group"] = *u.AgeGroup
	}
	return m
}

// CheckOutcome rejects unknown outcomes, and an explicit outcome that
// disagrees with ConfirmedToVote (true only pairs with confirmed, false
// only with declined).
func (u VoterUpdate) CheckOutcome() error {
	if u.Outcome == nil || *u.Outcome == "" {
		return nil
	}
	if !u.Outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, *u.Outcome)
	}
	if u.ConfirmedToVote == nil {
		return nil
	}
	want := CallOutcomeDeclined
	if *u.ConfirmedToVote {
		want = CallOutcomeConfirmed
	}
	if *u.Outcome != want {
		return fmt.Errorf("%w: %q contradicts confirmed_to_vote=%t", ErrInvalidOutcome, *u.Outcome, *u.ConfirmedToVote)
	}
	return nil
}

// DerivedOutcome is the explicit outcome when given, otherwise
// confirmed/declined from ConfirmedToVote, otherwise answered.
// Callers run CheckOutcome first.
func (u VoterUpdate) DerivedOutcome() CallOutcome {
	if u.Outcome != nil && *u.Outcome != "" {
		return *u.Outcome
	}
	if u.ConfirmedToVote == nil {
		return CallOutcomeAnswered
	}
	if *u.ConfirmedToVote {
		return CallOutcomeConfirmed
	}
	return CallOutcomeDeclined
}

// VoterFilter call queue filter
type VoterFilter string

const (
	VoterFilterAll            VoterFilter = "all"
	VoterFilterNotCalled      VoterFilter = "notCalled"
	VoterFilterCalledRecently VoterFilter = "calledRecently"
	VoterFilterConfirmed      VoterFilter = "confirmed"
	VoterFilterNeedsFollowUp  VoterFilter = "needsFollowUp"
)

// ParseVoterFilter maps "" to all; unknown values yield ErrInvalidFilter.
func ParseVoterFilter(s string) (VoterFilter, error) {
	switch VoterFilter(s) {
	case "":
		return VoterFilterAll, nil
	case VoterFilterAll, VoterFilterNotCalled, VoterFilterCalledRecently, VoterFilterConfirmed, VoterFilterNeedsFollowUp:
		return VoterFilter(s), nil
	}
	return "", ErrInvalidFilter
}

// Matches evaluates the filter predicate against a voter in memory.
func (f VoterFilter) Matches(v *VoterRecord) bool {
	confirmed := v.ConfirmedToVote != nil && *v.ConfirmedToVote
	switch f {
	case VoterFilterNotCalled:
		return !v.CalledRecently
	case VoterFilterCalledRecently:
		return v.CalledRecently
	case VoterFilterConfirmed:
		return confirmed
	case VoterFilterNeedsFollowUp:
		return v.CalledRecently && !confirmed
	}
	return true
}
