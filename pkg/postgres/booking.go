package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

const bookingColumns = `id, booking_date, slot, user_id, boat_id, battery_id, deleted, created_at, updated_at`

// GetUnassignedBookings returns live bookings for date that hold no equipment, oldest first
func (d *DB) GetUnassignedBookings(ctx context.Context, date model.Date) ([]model.Booking, error) {
	return d.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM booking
		WHERE booking_date = $1 AND boat_id IS NULL AND NOT deleted
		ORDER BY created_at, id
	`, date.Time())
}

// PersistAssignment writes boat and battery onto a pending booking and bumps both
// booking counts in one transaction. The partial unique indexes on booking reject
// equipment that is already held on the same date and slot.
func (d *DB) PersistAssignment(ctx context.Context, bookingID, boatID, batteryID string) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := useEquipment(ctx, tx, boatID, model.KindBoat); err != nil {
		return err
	}
	if err := useEquipment(ctx, tx, batteryID, model.KindBattery); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE booking
		SET boat_id = $2, battery_id = $3, updated_at = NOW(),
		    unallocated_reason = NULL, unallocated_at = NULL
		WHERE id = $1 AND boat_id IS NULL AND NOT deleted
	`, bookingID, boatID, batteryID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: equipment already held for booking %s's date and slot", db.ErrConflict, bookingID)
	}
	if err != nil {
		return fmt.Errorf("failed to assign booking %s: %w", bookingID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM booking WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check booking %s: %w", bookingID, err)
		}
		if !exists {
			return fmt.Errorf("%w: booking %s", db.ErrNotFound, bookingID)
		}
		return fmt.Errorf("%w: %s", db.ErrNotPending, bookingID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit assignment for booking %s: %w", bookingID, err)
	}
	return nil
}

func useEquipment(ctx context.Context, tx pgx.Tx, id string, kind model.EquipmentKind) error {
	tag, err := tx.Exec(ctx, `
		UPDATE equipment SET booking_count = booking_count + 1
		WHERE id = $1 AND kind = $2 AND NOT deleted
	`, id, string(kind))
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", db.ErrNotFound, kind, id)
	}
	return nil
}

// MarkUnallocatable records the run's decision for the booking
func (d *DB) MarkUnallocatable(ctx context.Context, bookingID string, reason string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE booking SET unallocated_reason = $2, unallocated_at = NOW() WHERE id = $1
	`, bookingID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark booking %s unallocatable: %w", bookingID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking %s", db.ErrNotFound, bookingID)
	}
	return nil
}

// CreateBooking inserts a new booking
func (d *DB) CreateBooking(ctx context.Context, booking model.Booking) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO booking (id, booking_date, slot, user_id, boat_id, battery_id, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, booking.ID(), booking.Date().Time(), string(booking.Slot()), booking.UserID(),
		optional(booking.BoatID()), optional(booking.BatteryID()), booking.Deleted(),
		booking.CreatedAt(), booking.UpdatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: booking %s already exists", db.ErrConflict, booking.ID())
	}
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetBooking returns a booking by id, including cancelled ones
func (d *DB) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM booking WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%w: booking %s", db.ErrNotFound, id)
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("failed to get booking %s: %w", id, err)
	}
	return b, nil
}

// CancelBooking soft-deletes a live booking, releasing any equipment it held
func (d *DB) CancelBooking(ctx context.Context, id string, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE booking SET deleted = TRUE, updated_at = $2 WHERE id = $1 AND NOT deleted
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to cancel booking %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking %s", db.ErrNotFound, id)
	}
	return nil
}

// ListMissedBookings returns live, unassigned bookings dated before today
func (d *DB) ListMissedBookings(ctx context.Context, today model.Date) ([]model.Booking, error) {
	return d.queryBookings(ctx, `
		SELECT `+bookingColumns+`
		FROM booking
		WHERE booking_date < $1 AND boat_id IS NULL AND NOT deleted
		ORDER BY created_at, id
	`, today.Time())
}

func (d *DB) queryBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	result := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return result, nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		p                 model.BookingParams
		date              time.Time
		slot              string
		boatID, batteryID *string
	)
	if err := row.Scan(&p.ID, &date, &slot, &p.UserID, &boatID, &batteryID, &p.Deleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	p.Date = model.NewDate(date)
	p.Slot = model.TimeSlot(slot)
	p.BoatID = fromNullable(boatID)
	p.BatteryID = fromNullable(batteryID)
	return model.NewBooking(p)
}

func optional(o model.Option[string]) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}

func fromNullable(s *string) model.Option[string] {
	if s == nil {
		return model.None[string]()
	}
	return model.Some(*s)
}
