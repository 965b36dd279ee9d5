// Package notify subscribes the outbound side effects of an allocation run to
// the event registry.
package notify

import (
	"context"

	"github.com/jakechorley/boat-hire/pkg/core/events"
)

// EmailSender delivers a plain-text email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// JSONPublisher publishes a JSON document under a routing key
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Recorder receives run outcomes for metrics
type Recorder interface {
	RecordAllocated(slot string)
	RecordNotAllocated(slot, reason string)
	RecordNotification(channel, status string)
}

const (
	statusSent    = "sent"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// Subscriber attaches its handlers to a registry
type Subscriber interface {
	Subscribe(r *events.Registry)
}

// Register subscribes each subscriber in order
func Register(r *events.Registry, subscribers ...Subscriber) {
	for _, s := range subscribers {
		s.Subscribe(r)
	}
}
