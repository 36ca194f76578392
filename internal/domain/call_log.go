package domain

import (
	"encoding/json"
	"time"
)

// CallOutcome categorical result of one call attempt
type CallOutcome string

const (
	CallOutcomeAnswered    CallOutcome = "answered"
	CallOutcomeConfirmed   CallOutcome = "confirmed"
	CallOutcomeDeclined    CallOutcome = "declined"
	CallOutcomeNoAnswer    CallOutcome = "no_answer"
	CallOutcomeWrongNumber CallOutcome = "wrong_number"
)

// Valid reports whether o is a known outcome.
func (o CallOutcome) Valid() bool {
	switch o {
	case CallOutcomeAnswered, CallOutcomeConfirmed, CallOutcomeDeclined, CallOutcomeNoAnswer, CallOutcomeWrongNumber:
		return true
	}
	return false
}

// CallLog append-only record of one call (call_logs table).
type CallLog struct {
	CallLogID     string          `json:"call_log_id"`
	VoterID       string          `json:"voter_id"`
	VolunteerID   string          `json:"volunteer_id"`
	CallDate      time.Time       `json:"call_date"`
	CallOutcome   CallOutcome     `json:"call_outcome"`
	Notes         *string         `json:"notes,omitempty"`
	DataCollected json.RawMessage `json:"data_collected"`
}
