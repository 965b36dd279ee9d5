package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

const equipmentColumns = `id, kind, name, booking_count, comments, deleted`

// ListAvailableBoats returns boats not held by a live booking on date and slot, sorted by id
func (d *DB) ListAvailableBoats(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error) {
	return d.listAvailable(ctx, model.KindBoat, date, slot)
}

// ListAvailableBatteries returns batteries not held by a live booking on date and slot, sorted by id
func (d *DB) ListAvailableBatteries(ctx context.Context, date model.Date, slot model.TimeSlot) ([]string, error) {
	return d.listAvailable(ctx, model.KindBattery, date, slot)
}

func (d *DB) listAvailable(ctx context.Context, kind model.EquipmentKind, date model.Date, slot model.TimeSlot) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT e.id
		FROM equipment e
		WHERE e.kind = $1
		  AND NOT e.deleted
		  AND NOT EXISTS (
			SELECT 1 FROM booking b
			WHERE NOT b.deleted
			  AND b.booking_date = $2
			  AND b.slot = $3
			  AND (b.boat_id = e.id OR b.battery_id = e.id)
		  )
		ORDER BY e.id
	`, string(kind), date.Time(), string(slot))
	if err != nil {
		return nil, fmt.Errorf("failed to query available %s: %w", kind, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan available %s: %w", kind, err)
	}
	return ids, nil
}

// CreateEquipment inserts new equipment; names are unique per kind
func (d *DB) CreateEquipment(ctx context.Context, equipment model.Equipment) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO equipment (id, kind, name, booking_count, comments, deleted)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, equipment.ID(), string(equipment.Kind()), equipment.Name(), equipment.BookingCount(), nonNil(equipment.Comments()), equipment.Deleted())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s named %q already exists", db.ErrConflict, equipment.Kind(), equipment.Name())
	}
	if err != nil {
		return fmt.Errorf("failed to insert equipment: %w", err)
	}
	return nil
}

// GetEquipment returns equipment by id
func (d *DB) GetEquipment(ctx context.Context, id string) (model.Equipment, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
	e, err := scanEquipment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Equipment{}, fmt.Errorf("%w: equipment %s", db.ErrNotFound, id)
	}
	if err != nil {
		return model.Equipment{}, fmt.Errorf("failed to get equipment %s: %w", id, err)
	}
	return e, nil
}

// AddEquipmentComment appends a comment to the equipment's history
func (d *DB) AddEquipmentComment(ctx context.Context, id string, comment string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE equipment SET comments = array_append(comments, $2) WHERE id = $1
	`, id, comment)
	if err != nil {
		return fmt.Errorf("failed to add comment to equipment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: equipment %s", db.ErrNotFound, id)
	}
	return nil
}

// ListEquipment returns non-deleted equipment of kind ordered by name
func (d *DB) ListEquipment(ctx context.Context, kind model.EquipmentKind) ([]model.Equipment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+equipmentColumns+`
		FROM equipment
		WHERE kind = $1 AND NOT deleted
		ORDER BY name
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	result := make([]model.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equipment: %w", err)
	}
	return result, nil
}

func scanEquipment(row pgx.Row) (model.Equipment, error) {
	var p model.EquipmentParams
	var kind string
	if err := row.Scan(&p.ID, &kind, &p.Name, &p.BookingCount, &p.Comments, &p.Deleted); err != nil {
		return model.Equipment{}, err
	}
	p.Kind = model.EquipmentKind(kind)
	return model.NewEquipment(p)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
