package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/db"
)

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}

func TestPendingMigrations(t *testing.T) {
	files := []string{"001_init.sql", "002_next.sql", "003_last.sql"}

	assert.Equal(t, files, pendingMigrations(files, map[string]bool{}))
	assert.Equal(t, []string{"002_next.sql", "003_last.sql"}, pendingMigrations(files, map[string]bool{"001_init.sql": true}))
	assert.Empty(t, pendingMigrations(files, map[string]bool{"001_init.sql": true, "002_next.sql": true, "003_last.sql": true}))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}

func TestOptionalConversion(t *testing.T) {
	assert.Nil(t, optional(model.None[string]()))
	v := optional(model.Some("boat-01"))
	require.NotNil(t, v)
	assert.Equal(t, "boat-01", *v)

	assert.False(t, fromNullable(nil).IsPresent())
	s := "battery-01"
	got, ok := fromNullable(&s).Get()
	assert.True(t, ok)
	assert.Equal(t, "battery-01", got)
}

// newTestDB connects to BOATHIRE_TEST_DATABASE_URL, which should point at a disposable database
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("BOATHIRE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BOATHIRE_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	d, err := NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.pool.Exec(ctx, `DROP TABLE IF EXISTS booking, equipment, app_user, schema_migrations`)
	require.NoError(t, err)
	_, err = d.RunMigrations(ctx)
	require.NoError(t, err)
	return d
}

func TestDB_AssignmentLifecycle(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	date := model.DateOf(2025, time.June, 19)

	for _, e := range []model.EquipmentParams{
		{ID: "boat-01", Kind: model.KindBoat, Name: "Osprey"},
		{ID: "battery-01", Kind: model.KindBattery, Name: "B1"},
	} {
		equipment, err := model.NewEquipment(e)
		require.NoError(t, err)
		require.NoError(t, d.CreateEquipment(ctx, equipment))
	}

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"b1", "b2"} {
		b, err := model.NewBooking(model.BookingParams{
			ID: id, Date: date, Slot: model.SlotMorning, UserID: "user-" + id,
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, d.CreateBooking(ctx, b))
	}

	pending, err := d.GetUnassignedBookings(ctx, date)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "b1", pending[0].ID())

	require.NoError(t, d.PersistAssignment(ctx, "b1", "boat-01", "battery-01"))
	err = d.PersistAssignment(ctx, "b2", "boat-01", "battery-01")
	assert.ErrorIs(t, err, db.ErrConflict)
	assert.NotErrorIs(t, err, db.ErrNotPending)
	assert.ErrorIs(t, d.PersistAssignment(ctx, "b1", "boat-01", "battery-01"), db.ErrNotPending)
	assert.ErrorIs(t, d.PersistAssignment(ctx, "missing", "boat-01", "battery-01"), db.ErrNotFound)

	boats, err := d.ListAvailableBoats(ctx, date, model.SlotMorning)
	require.NoError(t, err)
	assert.Empty(t, boats)
	boats, err = d.ListAvailableBoats(ctx, date, model.SlotEvening)
	require.NoError(t, err)
	assert.Equal(t, []string{"boat-01"}, boats)

	boat, err := d.GetEquipment(ctx, "boat-01")
	require.NoError(t, err)
	assert.Equal(t, 1, boat.BookingCount())

	require.NoError(t, d.MarkUnallocatable(ctx, "b2", "InsufficientEquipment"))
	require.NoError(t, d.CancelBooking(ctx, "b1", time.Now()))
	assert.ErrorIs(t, d.CancelBooking(ctx, "b1", time.Now()), db.ErrNotFound)

	require.NoError(t, d.PersistAssignment(ctx, "b2", "boat-01", "battery-01"))

	missed, err := d.ListMissedBookings(ctx, date.AddDays(1))
	require.NoError(t, err)
	assert.Empty(t, missed)
}

func TestDB_EquipmentAndUsers(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	boat, err := model.NewEquipment(model.EquipmentParams{ID: "boat-01", Kind: model.KindBoat, Name: "Osprey"})
	require.NoError(t, err)
	require.NoError(t, d.CreateEquipment(ctx, boat))

	dup, err := model.NewEquipment(model.EquipmentParams{ID: "boat-02", Kind: model.KindBoat, Name: "osprey"})
	require.NoError(t, err)
	assert.ErrorIs(t, d.CreateEquipment(ctx, dup), db.ErrConflict)

	require.NoError(t, d.AddEquipmentComment(ctx, "boat-01", "scratched hull"))
	assert.ErrorIs(t, d.AddEquipmentComment(ctx, "nope", "x"), db.ErrNotFound)

	got, err := d.GetEquipment(ctx, "boat-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"scratched hull"}, got.Comments())

	list, err := d.ListEquipment(ctx, model.KindBoat)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = d.GetUserEmail(ctx, "user-1")
	assert.ErrorIs(t, err, db.ErrNotFound)
	require.NoError(t, d.UpsertUser(ctx, "user-1", "a@example.com"))
	require.NoError(t, d.UpsertUser(ctx, "user-1", "b@example.com"))
	email, err := d.GetUserEmail(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", email)
}
