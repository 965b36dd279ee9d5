package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/events"
)

// LogNotifier writes every event to the service log
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Subscribe(r *events.Registry) {
	events.On(r, "log", n.onAllocated)
	events.On(r, "log", n.onNotAllocated)
	events.On(r, "log", n.onRunCompleted)
}

func (n *LogNotifier) onAllocated(ctx context.Context, e events.BookingAllocated) error {
	n.logger.Info("Booking allocated",
		zap.String("booking_id", e.BookingID),
		zap.String("user_id", e.UserID),
		zap.String("date", e.Date.String()),
		zap.String("slot", e.Slot.String()),
		zap.String("boat_id", e.BoatID),
		zap.String("battery_id", e.BatteryID))
	return nil
}

func (n *LogNotifier) onNotAllocated(ctx context.Context, e events.BookingNotAllocated) error {
	n.logger.Warn("Booking not allocated",
		zap.String("booking_id", e.BookingID),
		zap.String("user_id", e.UserID),
		zap.String("date", e.Date.String()),
		zap.String("slot", e.Slot.String()),
		zap.String("reason", e.Reason))
	return nil
}

func (n *LogNotifier) onRunCompleted(ctx context.Context, e events.RunCompleted) error {
	slots := make([]string, len(e.SkippedSlots))
	for i, s := range e.SkippedSlots {
		slots[i] = s.String()
	}
	n.logger.Info("Allocation run completed",
		zap.String("date", e.Date.String()),
		zap.Int("assigned", e.Assigned),
		zap.Int("unallocatable", e.Unallocatable),
		zap.Strings("skipped_slots", slots),
		zap.Duration("duration", e.Duration))
	return nil
}
