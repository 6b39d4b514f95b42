package trace

import (
	"context"
	"time"

	"github.com/connectonion/connectonion-go/internal/observability"
)

// Sink receives replayed events in their recorded order.
type Sink func(observability.Event)

// Replayer re-emits a recorded run's events to a Sink, optionally paced to
// the gaps between their original timestamps. Adapted from the teacher's
// TraceReplayer; this module drops its sequence-number range filter (this
// trace format has no Sequence field) and keeps only the speed control that
// still applies to a recorded Event stream.
type Replayer struct {
	events []*observability.Event
	speed  float64 // 0 = as fast as possible, 1.0 = real time, 2.0 = 2x
}

// NewReplayer builds a replayer over events at the given speed.
func NewReplayer(events []*observability.Event, speed float64) *Replayer {
	return &Replayer{events: events, speed: speed}
}

// Replay emits every event to sink in order, returning how many were sent.
// Stops early and returns ctx.Err() if ctx is cancelled mid-replay.
func (r *Replayer) Replay(ctx context.Context, sink Sink) (int, error) {
	var last time.Time
	count := 0

	for _, e := range r.events {
		if r.speed > 0 && !last.IsZero() && !e.Timestamp.IsZero() {
			if delay := e.Timestamp.Sub(last); delay > 0 {
				scaled := time.Duration(float64(delay) / r.speed)
				select {
				case <-time.After(scaled):
				case <-ctx.Done():
					return count, ctx.Err()
				}
			}
		}
		last = e.Timestamp

		sink(*e)
		count++
	}

	return count, nil
}
