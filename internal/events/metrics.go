package events

import (
	"context"
	"time"

	"github.com/nerrad567/authgate/internal/auth"
)

// PointWriter is the part of the InfluxDB client MetricsSink uses.
type PointWriter interface {
	WriteAuthEvent(eventType, role string, at time.Time)
}

// MetricsSink counts events in InfluxDB. The client batches writes in the
// background, so Emit returns immediately.
type MetricsSink struct {
	w PointWriter
}

// NewMetricsSink returns a MetricsSink writing through w.
func NewMetricsSink(w PointWriter) *MetricsSink {
	return &MetricsSink{w: w}
}

// Emit implements auth.EventSink.
func (m *MetricsSink) Emit(_ context.Context, e auth.Event) {
	m.w.WriteAuthEvent(string(e.Type), string(e.Role), e.At)
}
