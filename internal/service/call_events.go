package service

import (
	"context"
	"time"

	redisutil "voter-outreach/common/redis"
	"voter-outreach/internal/domain"

	"github.com/go-redis/redis/v8"
)

// EventCallRecorded stream event type
const EventCallRecorded = "call.recorded"

// CallEvent payload of a call.recorded stream entry.
type CallEvent struct {
	CallLogID    string             `json:"call_log_id"`
	VoterID      string             `json:"voter_id"`
	VolunteerID  string             `json:"volunteer_id"`
	TerritoryKey string             `json:"territory_key"`
	Outcome      domain.CallOutcome `json:"call_outcome"`
	Confirmed    *bool              `json:"confirmed_to_vote,omitempty"`
	CallDate     time.Time          `json:"call_date"`
}

// CallEventPublisher downstream consumers (dashboards, results aggregation) read these.
type CallEventPublisher interface {
	PublishCallRecorded(ctx context.Context, ev CallEvent) error
}

// StreamEventPublisher XADDs call events to a Redis stream.
type StreamEventPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamEventPublisher(client *redis.Client, stream string, maxLen int64) *StreamEventPublisher {
	return &StreamEventPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *StreamEventPublisher) PublishCallRecorded(ctx context.Context, ev CallEvent) error {
	_, err := redisutil.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, EventCallRecorded, ev)
	return err
}

type nopEventPublisher struct{}

func (nopEventPublisher) PublishCallRecorded(context.Context, CallEvent) error { return nil }
