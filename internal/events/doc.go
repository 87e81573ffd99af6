// Package events fans auth events out to the places that care about them.
//
// The Authenticator emits every event to a single auth.EventSink. This
// package provides the sinks behind it:
//   - Fanout delivers one event to several sinks
//   - Async moves a slow sink off the request path behind a bounded queue
//   - BusSink publishes events to MQTT under <prefix>/auth/events/<type>
//   - AuditSink stores events in the audit_logs table
//   - MetricsSink writes an auth_events point to InfluxDB
//
// Relay is the inbound half of the bus: it subscribes to revocation
// events published by other instances and hands them to a local sink,
// normally the WebSocket hub.
package events
