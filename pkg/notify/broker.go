package notify

import (
	"context"
	"fmt"

	"github.com/jakechorley/boat-hire/pkg/core/events"
)

type allocatedMessage struct {
	events.BookingAllocated
	Date string `json:"date"`
}

type notAllocatedMessage struct {
	events.BookingNotAllocated
	Date string `json:"date"`
}

type runCompletedMessage struct {
	events.RunCompleted
	Date string `json:"date"`
}

// BrokerNotifier forwards events to a message broker, keyed by event kind
type BrokerNotifier struct {
	publisher JSONPublisher
	recorder  Recorder
}

// NewBrokerNotifier creates a broker notifier. recorder may be nil.
func NewBrokerNotifier(publisher JSONPublisher, recorder Recorder) *BrokerNotifier {
	return &BrokerNotifier{publisher: publisher, recorder: recorder}
}

func (n *BrokerNotifier) Subscribe(r *events.Registry) {
	events.On(r, "broker", func(ctx context.Context, e events.BookingAllocated) error {
		return n.publish(ctx, e.Kind(), allocatedMessage{BookingAllocated: e, Date: e.Date.String()})
	})
	events.On(r, "broker", func(ctx context.Context, e events.BookingNotAllocated) error {
		return n.publish(ctx, e.Kind(), notAllocatedMessage{BookingNotAllocated: e, Date: e.Date.String()})
	})
	events.On(r, "broker", func(ctx context.Context, e events.RunCompleted) error {
		return n.publish(ctx, e.Kind(), runCompletedMessage{RunCompleted: e, Date: e.Date.String()})
	})
}

func (n *BrokerNotifier) publish(ctx context.Context, kind events.Kind, msg any) error {
	if err := n.publisher.PublishJSON(ctx, string(kind), msg); err != nil {
		n.record(statusFailed)
		return fmt.Errorf("failed to publish %s: %w", kind, err)
	}
	n.record(statusSent)
	return nil
}

func (n *BrokerNotifier) record(status string) {
	if n.recorder != nil {
		n.recorder.RecordNotification("broker", status)
	}
}
