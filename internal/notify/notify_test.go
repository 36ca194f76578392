package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voter-outreach/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAssignment() *domain.Assignment {
	return &domain.Assignment{
		AssignmentID: "a1", UserID: "u1",
		State: "Lagos", LGA: "Ikeja", Ward: "Ward 1", PollingUnit: "PU 001",
	}
}

func TestWebhookNotifier_Notify(t *testing.T) {
	var got Event
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "secret", time.Second, zap.NewNop())
	a := testAssignment()
	err := n.Notify(context.Background(), Event{
		Type: EventAssignmentGranted, UserID: "u1", Assignment: a,
		Message: AssignmentMessage(EventAssignmentGranted, a),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, EventAssignmentGranted, got.Type)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "You have been assigned to PU 001, Ward 1, Ikeja, Lagos", got.Message)
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "", time.Second, zap.NewNop())
	err := n.Notify(context.Background(), Event{Type: EventAssignmentRevoked, UserID: "u1"})
	assert.Error(t, err)
}

type recordingPublisher struct {
	topic   string
	payload []byte
}

func (p *recordingPublisher) Publish(topic string, _ bool, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return nil
}

func TestMQTTNotifier_Notify(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewMQTTNotifier(pub, "outreach/assignments/")

	require.NoError(t, n.Notify(context.Background(), Event{Type: EventAssignmentDisplaced, UserID: "u7"}))
	assert.Equal(t, "outreach/assignments/u7", pub.topic)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.payload, &ev))
	assert.Equal(t, EventAssignmentDisplaced, ev.Type)
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.Notify(context.Background(), Event{}))
}
