// Package notify tells callers about assignment changes through the push delivery gateway.
package notify

import (
	"context"
	"time"

	"voter-outreach/internal/domain"
)

// Event types
const (
	EventAssignmentGranted   = "assignment.granted"
	EventAssignmentDisplaced = "assignment.displaced"
	EventAssignmentRevoked   = "assignment.revoked"
)

// Event one notification addressed to a single caller.
type Event struct {
	Type       string             `json:"type"`
	UserID     string             `json:"user_id"`
	Assignment *domain.Assignment `json:"assignment,omitempty"`
	Message    string             `json:"message"`
	At         time.Time          `json:"at"`
}

// Notifier delivers events. Delivery is best effort; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// AssignmentMessage human-readable text for the mobile app.
func AssignmentMessage(eventType string, a *domain.Assignment) string {
	if a == nil {
		return ""
	}
	where := a.PollingUnit + ", " + a.Ward + ", " + a.LGA + ", " + a.State
	switch eventType {
	case EventAssignmentGranted:
		return "You have been assigned to " + where
	case EventAssignmentDisplaced:
		return "Your assignment to " + where + " was reassigned"
	case EventAssignmentRevoked:
		return "Your assignment to " + where + " was revoked"
	}
	return ""
}
