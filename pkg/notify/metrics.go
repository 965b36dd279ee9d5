package notify

import (
	"context"
	"time"

	"github.com/jakechorley/boat-hire/pkg/core/events"
)

// RunRecorder receives whole-run measurements
type RunRecorder interface {
	Recorder
	RecordRun(duration time.Duration, skippedSlots []string, finishedAt time.Time)
}

// MetricsRecorder turns events into metric updates
type MetricsRecorder struct {
	recorder RunRecorder
	now      func() time.Time
}

func NewMetricsRecorder(recorder RunRecorder) *MetricsRecorder {
	return &MetricsRecorder{recorder: recorder, now: time.Now}
}

func (m *MetricsRecorder) Subscribe(r *events.Registry) {
	events.On(r, "metrics", func(ctx context.Context, e events.BookingAllocated) error {
		m.recorder.RecordAllocated(e.Slot.String())
		return nil
	})
	events.On(r, "metrics", func(ctx context.Context, e events.BookingNotAllocated) error {
		m.recorder.RecordNotAllocated(e.Slot.String(), e.Reason)
		return nil
	})
	events.On(r, "metrics", func(ctx context.Context, e events.RunCompleted) error {
		skipped := make([]string, len(e.SkippedSlots))
		for i, s := range e.SkippedSlots {
			skipped[i] = s.String()
		}
		m.recorder.RecordRun(e.Duration, skipped, m.now())
		return nil
	})
}
