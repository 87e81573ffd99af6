package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nerrad567/authgate/internal/auth"
	"github.com/nerrad567/authgate/internal/infrastructure/mqtt"
)

// Subscriber is the part of the MQTT client Relay uses.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// RelayedTypes are the event types Relay forwards from other instances.
var RelayedTypes = []auth.EventType{auth.EventLogout, auth.EventSessionRevoked}

// Relay forwards revocation events published by other instances to a
// local sink. Messages carrying this instance's origin are skipped since
// they were already delivered locally.
type Relay struct {
	topics mqtt.Topics
	origin string
	target auth.EventSink
	logger *slog.Logger
}

// NewRelay returns a Relay delivering to target.
func NewRelay(topics mqtt.Topics, origin string, target auth.EventSink, logger *slog.Logger) *Relay {
	return &Relay{topics: topics, origin: origin, target: target, logger: logger}
}

// Start subscribes to every relayed event topic at qos.
func (r *Relay) Start(sub Subscriber, qos byte) error {
	for _, t := range RelayedTypes {
		topic := r.topics.AuthEvent(string(t))
		if err := sub.Subscribe(topic, qos, r.Handle); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// Stop unsubscribes from every relayed event topic. All topics are
// attempted; the joined errors are returned.
func (r *Relay) Stop(sub Subscriber) error {
	var errs []error
	for _, t := range RelayedTypes {
		if err := sub.Unsubscribe(r.topics.AuthEvent(string(t))); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle processes one bus message. It is an mqtt.MessageHandler.
func (r *Relay) Handle(topic string, payload []byte) error {
	eventType, ok := r.topics.EventType(topic)
	if !ok {
		return fmt.Errorf("unexpected topic %q", topic)
	}

	var e auth.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("decoding auth event on %s: %w", topic, err)
	}
	if string(e.Type) != eventType {
		return fmt.Errorf("event type %q does not match topic %q", e.Type, topic)
	}
	if e.Origin == r.origin {
		return nil
	}

	r.logger.Debug("relaying auth event", "type", e.Type, "sid", e.SessionID, "origin", e.Origin)
	r.target.Emit(context.Background(), e)
	return nil
}
