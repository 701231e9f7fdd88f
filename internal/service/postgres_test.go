package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/repo"
	"github.com/pkordes/carpool/internal/service"
	"github.com/pkordes/carpool/testutil"
)

// pgFixture is a SlotService on the real store. Rows are committed through the
// pool so that every concurrent attempt runs on its own connection and
// transaction; the group and everything hanging off it is removed on cleanup.
type pgFixture struct {
	pool     *pgxpool.Pool
	store    repo.Store
	svc      *service.SlotService
	group    uuid.UUID
	startsAt time.Time
}

func newPGFixture(t *testing.T) pgFixture {
	t.Helper()
	pool := testutil.NewPool(t)
	group := testutil.SeedGroup(t, pool, "Maple Street")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM groups WHERE id = $1`, group)
	})
	store := repo.NewStore(pool)
	return pgFixture{
		pool:     pool,
		store:    store,
		svc:      service.NewSlotService(store, discardLogger()),
		group:    group,
		startsAt: time.Date(2025, 6, 23, 6, 0, 0, 0, time.UTC),
	}
}

// race starts every attempt at once and waits for all of them.
func race(t *testing.T, n int, attempt func(i int) error) {
	t.Helper()
	start := make(chan struct{})
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			<-start
			return attempt(i)
		})
	}
	close(start)
	require.NoError(t, g.Wait())
}

// TestSlotService_AssignChild_RaceForLastSeat submits several children at once
// for a vehicle with one seat. Exactly one commits; every other caller gets
// the retryable conflict, never a not-found or a partial write.
func TestSlotService_AssignChild_RaceForLastSeat(t *testing.T) {
	pg := newPGFixture(t)
	ctx := context.Background()
	sedan := testutil.SeedVehicle(t, pg.pool, pg.group, "Sedan", 1)
	va, err := pg.svc.BindVehicle(ctx, domain.BindVehicleInput{GroupID: pg.group, StartsAt: pg.startsAt, VehicleID: sedan})
	require.NoError(t, err)

	kids := make([]uuid.UUID, 6)
	for i := range kids {
		kids[i] = testutil.SeedChild(t, pg.pool, pg.group, "kid")
	}

	var wins, conflicts atomic.Int32
	race(t, len(kids), func(i int) error {
		_, err := pg.svc.AssignChild(ctx, va.SlotID, kids[i], va.ID)
		switch {
		case err == nil:
			wins.Add(1)
		case errors.Is(err, domain.ErrCapacityConflict):
			conflicts.Add(1)
		default:
			return err
		}
		return nil
	})

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(len(kids)-1), conflicts.Load())

	detail, err := pg.svc.GetDetail(ctx, va.SlotID)
	require.NoError(t, err)
	require.Len(t, detail.Vehicles, 1)
	assert.Equal(t, 1, detail.Vehicles[0].Assignment.OccupiedSeats)
	assert.Len(t, detail.Vehicles[0].Children, 1)
	assert.Equal(t, 0, detail.Vehicles[0].Available)
}

// TestSlotService_AssignChild_RaceOnSeparateVehicles fills two one-seat
// vehicles of the same slot at once; neither attempt may conflict.
func TestSlotService_AssignChild_RaceOnSeparateVehicles(t *testing.T) {
	pg := newPGFixture(t)
	ctx := context.Background()

	var vas []domain.VehicleAssignment
	for _, name := range []string{"Sedan", "Coupe"} {
		v := testutil.SeedVehicle(t, pg.pool, pg.group, name, 1)
		va, err := pg.svc.BindVehicle(ctx, domain.BindVehicleInput{GroupID: pg.group, StartsAt: pg.startsAt, VehicleID: v})
		require.NoError(t, err)
		vas = append(vas, va)
	}
	kids := []uuid.UUID{
		testutil.SeedChild(t, pg.pool, pg.group, "Alice"),
		testutil.SeedChild(t, pg.pool, pg.group, "Bob"),
	}

	race(t, len(vas), func(i int) error {
		_, err := pg.svc.AssignChild(ctx, vas[i].SlotID, kids[i], vas[i].ID)
		return err
	})

	detail, err := pg.svc.GetDetail(ctx, vas[0].SlotID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.TotalOccupied)
}

// TestSlotService_BindVehicle_RaceForSameTrip binds several vehicles to the
// same (group, instant) at once. They must converge on one slot, created
// exactly once.
func TestSlotService_BindVehicle_RaceForSameTrip(t *testing.T) {
	pg := newPGFixture(t)
	ctx := context.Background()

	vehicles := make([]uuid.UUID, 6)
	for i := range vehicles {
		vehicles[i] = testutil.SeedVehicle(t, pg.pool, pg.group, "car", 4)
	}
	created := counter(t, "carpool_slots_lifecycle_total", "event", "created")

	slotIDs := make([]uuid.UUID, len(vehicles))
	race(t, len(vehicles), func(i int) error {
		va, err := pg.svc.BindVehicle(ctx, domain.BindVehicleInput{GroupID: pg.group, StartsAt: pg.startsAt, VehicleID: vehicles[i]})
		slotIDs[i] = va.SlotID
		return err
	})

	for _, id := range slotIDs {
		assert.Equal(t, slotIDs[0], id)
	}
	assert.Equal(t, created+1, counter(t, "carpool_slots_lifecycle_total", "event", "created"))

	var slots int
	err := pg.pool.QueryRow(ctx, `SELECT count(*) FROM schedule_slots WHERE group_id = @group_id`,
		pgx.NamedArgs{"group_id": pg.group}).Scan(&slots)
	require.NoError(t, err)
	assert.Equal(t, 1, slots)

	detail, err := pg.svc.GetDetail(ctx, slotIDs[0])
	require.NoError(t, err)
	assert.Len(t, detail.Vehicles, len(vehicles))
}

// TestSlotService_UnbindVehicle_RaceWithBind unbinds the only vehicle of a
// slot while another vehicle binds to the same trip. Whatever the order, no
// slot may be left without vehicles and the binding vehicle must survive.
func TestSlotService_UnbindVehicle_RaceWithBind(t *testing.T) {
	pg := newPGFixture(t)
	ctx := context.Background()
	first := testutil.SeedVehicle(t, pg.pool, pg.group, "Van", 3)
	second := testutil.SeedVehicle(t, pg.pool, pg.group, "Sedan", 1)
	va, err := pg.svc.BindVehicle(ctx, domain.BindVehicleInput{GroupID: pg.group, StartsAt: pg.startsAt, VehicleID: first})
	require.NoError(t, err)

	race(t, 2, func(i int) error {
		if i == 0 {
			_, err := pg.svc.UnbindVehicle(ctx, va.SlotID, first)
			return err
		}
		_, err := pg.svc.BindVehicle(ctx, domain.BindVehicleInput{GroupID: pg.group, StartsAt: pg.startsAt, VehicleID: second})
		return err
	})

	var empty int
	err = pg.pool.QueryRow(ctx, `
		SELECT count(*) FROM schedule_slots s
		WHERE s.group_id = @group_id
		  AND NOT EXISTS (SELECT 1 FROM vehicle_assignments va WHERE va.slot_id = s.id)`,
		pgx.NamedArgs{"group_id": pg.group}).Scan(&empty)
	require.NoError(t, err)
	assert.Zero(t, empty, "no slot may be left without vehicles")

	var bound int
	err = pg.pool.QueryRow(ctx, `
		SELECT count(*) FROM vehicle_assignments va
		JOIN schedule_slots s ON s.id = va.slot_id
		WHERE s.group_id = @group_id AND va.vehicle_id = @vehicle_id`,
		pgx.NamedArgs{"group_id": pg.group, "vehicle_id": second}).Scan(&bound)
	require.NoError(t, err)
	assert.Equal(t, 1, bound)
}
