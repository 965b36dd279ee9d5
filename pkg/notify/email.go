package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/boat-hire/pkg/core/allocator"
	"github.com/jakechorley/boat-hire/pkg/core/events"
	"github.com/jakechorley/boat-hire/pkg/db"
)

// EmailNotifier tells users whether their booking got equipment
type EmailNotifier struct {
	sender   EmailSender
	users    db.UserDirectory
	recorder Recorder
	logger   *zap.Logger
}

// NewEmailNotifier creates an email notifier. recorder may be nil.
func NewEmailNotifier(sender EmailSender, users db.UserDirectory, recorder Recorder, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, users: users, recorder: recorder, logger: logger}
}

func (n *EmailNotifier) Subscribe(r *events.Registry) {
	events.On(r, "email", n.onAllocated)
	events.On(r, "email", n.onNotAllocated)
}

func (n *EmailNotifier) onAllocated(ctx context.Context, e events.BookingAllocated) error {
	subject := fmt.Sprintf("Your boat for %s %s", e.Date, e.Slot)
	body := fmt.Sprintf("Hi,\n\nYour booking for %s (%s) has been allocated.\n\nBoat: %s\nBattery: %s\n\nBooking reference: %s\n",
		e.Date, e.Slot, e.BoatID, e.BatteryID, e.BookingID)
	return n.send(ctx, e.UserID, subject, body)
}

func (n *EmailNotifier) onNotAllocated(ctx context.Context, e events.BookingNotAllocated) error {
	// InvalidInput outcomes go to the operator log only
	if e.Reason == allocator.ReasonInvalidInput.String() {
		n.record(statusSkipped)
		return nil
	}

	subject := fmt.Sprintf("No boat available for %s %s", e.Date, e.Slot)
	body := fmt.Sprintf("Hi,\n\nUnfortunately we could not allocate a boat and battery to your booking for %s (%s).\n\nBooking reference: %s\n",
		e.Date, e.Slot, e.BookingID)
	return n.send(ctx, e.UserID, subject, body)
}

func (n *EmailNotifier) send(ctx context.Context, userID, subject, body string) error {
	to, err := n.users.GetUserEmail(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		n.logger.Debug("No email on record, skipping", zap.String("user_id", userID))
		n.record(statusSkipped)
		return nil
	}
	if err != nil {
		n.record(statusFailed)
		return fmt.Errorf("failed to look up email for user %s: %w", userID, err)
	}

	if err := n.sender.SendEmail(ctx, to, subject, body); err != nil {
		n.record(statusFailed)
		return fmt.Errorf("failed to email user %s: %w", userID, err)
	}

	n.logger.Debug("Email sent", zap.String("user_id", userID), zap.String("subject", subject))
	n.record(statusSent)
	return nil
}

func (n *EmailNotifier) record(status string) {
	if n.recorder != nil {
		n.recorder.RecordNotification("email", status)
	}
}
