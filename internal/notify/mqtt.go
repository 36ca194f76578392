package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Publisher what MQTTNotifier needs from common/mqtt.Client.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTNotifier publishes each event to <topicPrefix>/<userID>, the topic the
// caller's app subscribes to.
type MQTTNotifier struct {
	pub         Publisher
	topicPrefix string
}

func NewMQTTNotifier(pub Publisher, topicPrefix string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topicPrefix: strings.TrimRight(topicPrefix, "/")}
}

// Topic for one caller.
func (n *MQTTNotifier) Topic(userID string) string {
	return n.topicPrefix + "/" + userID
}

func (n *MQTTNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.pub.Publish(n.Topic(ev.UserID), false, b); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
