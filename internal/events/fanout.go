package events

import (
	"context"

	"github.com/nerrad567/authgate/internal/auth"
)

// Fanout delivers each event to every sink in order.
type Fanout []auth.EventSink

// Emit implements auth.EventSink. Nil sinks are skipped.
func (f Fanout) Emit(ctx context.Context, e auth.Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}
