package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// AuthEventsMeasurement is the measurement every auth event is written to.
const AuthEventsMeasurement = "auth_events"

// WriteAuthEvent records one auth event. An empty role is tagged "none",
// which covers failed logins where no account was resolved.
//
// Parameters:
//   - eventType: Auth event type, e.g. "login_succeeded"
//   - role: Role of the account involved, or "" when unknown
//   - at: Event timestamp
func (c *Client) WriteAuthEvent(eventType, role string, at time.Time) {
	if role == "" {
		role = "none"
	}
	c.WritePoint(AuthEventsMeasurement,
		map[string]string{
			"type": eventType,
			"role": role,
		},
		map[string]any{
			"count": 1,
		},
		at,
	)
}

// WritePoint queues a point for the next batch. Dropped silently when closed.
//
// Parameters:
//   - measurement: InfluxDB measurement name
//   - tags: Indexed tag set
//   - fields: Field values for the point
//   - at: Point timestamp
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
