package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nerrad567/authgate/internal/auth"
	"github.com/nerrad567/authgate/internal/infrastructure/mqtt"
)

// Publisher is the part of the MQTT client BusSink uses.
type Publisher interface {
	PublishEvent(topic string, payload []byte) error
}

// BusSink publishes events as JSON to <prefix>/auth/events/<type>.
// It blocks on the broker acknowledgement, so wrap it with Async.
type BusSink struct {
	pub    Publisher
	topics mqtt.Topics
	origin string
	logger *slog.Logger
}

// NewBusSink returns a BusSink stamping every event with origin.
func NewBusSink(pub Publisher, topics mqtt.Topics, origin string, logger *slog.Logger) *BusSink {
	return &BusSink{pub: pub, topics: topics, origin: origin, logger: logger}
}

// Emit implements auth.EventSink.
func (b *BusSink) Emit(_ context.Context, e auth.Event) {
	e.Origin = b.origin

	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("encoding auth event", "type", e.Type, "error", err)
		return
	}

	if err := b.pub.PublishEvent(b.topics.AuthEvent(string(e.Type)), payload); err != nil {
		b.logger.Warn("publishing auth event failed", "type", e.Type, "sid", e.SessionID, "error", err)
	}
}
