package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "authgate"

// Topics builds authgate topic names under a configurable prefix.
//
//	topics := mqtt.NewTopics("authgate")
//	topics.AuthEvent("logout") // "authgate/auth/events/logout"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder. Trailing slashes are trimmed from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root of every topic built by t.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// AuthEvent returns the topic for one auth event type.
//
// Example: authgate/auth/events/session_revoked
func (t Topics) AuthEvent(eventType string) string {
	return fmt.Sprintf("%s/auth/events/%s", t.Prefix(), eventType)
}

// AllAuthEvents returns a single-level wildcard over every auth event type.
//
// Example: authgate/auth/events/+
func (t Topics) AllAuthEvents() string {
	return t.AuthEvent("+")
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: authgate/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix())
}

// EventType extracts the trailing event type from an auth event topic.
// It returns false for topics outside the auth event tree.
func (t Topics) EventType(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix()+"/auth/events/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
