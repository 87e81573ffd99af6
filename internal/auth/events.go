package auth

import (
	"context"
	"time"
)

// EventType names an authentication event.
type EventType string

const (
	EventRegistered     EventType = "registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventLogout         EventType = "logout"
	EventSessionRevoked EventType = "session_revoked"
)

// EventTypes lists every type the Authenticator emits.
var EventTypes = []EventType{
	EventRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventLogout,
	EventSessionRevoked,
}

// Event describes something that happened to a session or account.
//
// Email is only set on login_failed, already masked. ActorID is the admin
// behind a session_revoked event. Origin identifies the publishing instance
// once the event has crossed the message bus.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sid,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	At        time.Time `json:"at"`
}

// EventSink receives auth events. Emit must not block the request path.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

// Emit calls f.
func (f EventSinkFunc) Emit(ctx context.Context, e Event) {
	f(ctx, e)
}

type discardSink struct{}

func (discardSink) Emit(context.Context, Event) {}
