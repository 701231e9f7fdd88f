package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carpool/internal/domain"
)

// VehicleAssignmentRepo defines the persistence operations for vehicle
// assignments. Every returned record carries the bound vehicle's registered
// capacity so callers can compute effective capacity without a second lookup.
type VehicleAssignmentRepo interface {
	// Create inserts a new assignment. Returns domain.ErrAlreadyExists when
	// the vehicle is already bound to the slot and domain.ErrNotFound when a
	// referenced row (slot, vehicle, driver) does not exist.
	Create(ctx context.Context, a domain.VehicleAssignment) (domain.VehicleAssignment, error)

	// GetByID returns domain.ErrNotFound if no assignment with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error)

	// GetBySlotAndVehicle returns domain.ErrNotFound if the vehicle is not
	// bound to the slot.
	GetBySlotAndVehicle(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.VehicleAssignment, error)

	// ListBySlot returns the slot's assignments ordered by creation time.
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.VehicleAssignment, error)

	// SetDriver replaces the driver; nil clears it.
	// Returns domain.ErrNotFound if the assignment or driver does not exist.
	SetDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error)

	// SetOverride replaces the seat override (nil clears it) only if the
	// resulting effective capacity still covers the seated children.
	// Returns domain.ErrNotFound when no row satisfied both the ID and the
	// capacity precondition; callers disambiguate with GetByID.
	SetOverride(ctx context.Context, id uuid.UUID, seats *int) (domain.VehicleAssignment, error)

	// ReserveSeat atomically increments the occupancy counter if, at that
	// instant, it is below the effective capacity.
	// Returns domain.ErrNotFound when no row satisfied both the ID and the
	// capacity precondition; callers disambiguate with GetByID.
	ReserveSeat(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error)

	// ReleaseSeat decrements the occupancy counter.
	// Returns domain.ErrNotFound when the assignment does not exist or its
	// counter is already zero.
	ReleaseSeat(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error)

	// Delete removes an assignment. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgVehicleAssignmentRepo is the Postgres implementation of VehicleAssignmentRepo.
type pgVehicleAssignmentRepo struct {
	db db
}

// NewVehicleAssignmentRepo constructs a VehicleAssignmentRepo backed by the
// provided db connection.
func NewVehicleAssignmentRepo(db db) VehicleAssignmentRepo {
	return &pgVehicleAssignmentRepo{db: db}
}

// vaColumns lists the columns scanVehicleAssignment expects, in order.
// It assumes vehicle_assignments is aliased va and vehicles is aliased v.
const vaColumns = `va.id, va.slot_id, va.vehicle_id, va.driver_id, va.seat_override,
	v.capacity, va.occupied_seats, va.version, va.created_at, va.updated_at`

// Create inserts the assignment and joins the vehicle capacity onto the
// returned row in the same statement.
func (r *pgVehicleAssignmentRepo) Create(ctx context.Context, a domain.VehicleAssignment) (domain.VehicleAssignment, error) {
	const q = `
		WITH va AS (
			INSERT INTO vehicle_assignments (slot_id, vehicle_id, driver_id, seat_override)
			VALUES (@slot_id, @vehicle_id, @driver_id, @seat_override)
			RETURNING *
		)
		SELECT ` + vaColumns + `
		FROM va
		JOIN vehicles v ON v.id = va.vehicle_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"slot_id":       a.SlotID,
		"vehicle_id":    a.VehicleID,
		"driver_id":     a.DriverID,     // nil becomes NULL
		"seat_override": a.SeatOverride, // nil becomes NULL
	})
	result, err := scanVehicleAssignment(row)
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves an assignment by primary key.
func (r *pgVehicleAssignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	const q = `
		SELECT ` + vaColumns + `
		FROM vehicle_assignments va
		JOIN vehicles v ON v.id = va.vehicle_id
		WHERE va.id = @id`

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetBySlotAndVehicle retrieves the assignment of a vehicle within a slot.
func (r *pgVehicleAssignmentRepo) GetBySlotAndVehicle(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.VehicleAssignment, error) {
	const q = `
		SELECT ` + vaColumns + `
		FROM vehicle_assignments va
		JOIN vehicles v ON v.id = va.vehicle_id
		WHERE va.slot_id = @slot_id
		  AND va.vehicle_id = @vehicle_id`

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"slot_id": slotID, "vehicle_id": vehicleID}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.GetBySlotAndVehicle: %w", err)
	}
	return result, nil
}

// ListBySlot returns all assignments of a slot.
func (r *pgVehicleAssignmentRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.VehicleAssignment, error) {
	const q = `
		SELECT ` + vaColumns + `
		FROM vehicle_assignments va
		JOIN vehicles v ON v.id = va.vehicle_id
		WHERE va.slot_id = @slot_id
		ORDER BY va.created_at, va.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"slot_id": slotID})
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleAssignmentRepo.ListBySlot: %w", err)
	}
	defer rows.Close()

	out := []domain.VehicleAssignment{}
	for rows.Next() {
		a, err := scanVehicleAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VehicleAssignmentRepo.ListBySlot: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VehicleAssignmentRepo.ListBySlot: rows: %w", err)
	}
	return out, nil
}

// SetDriver replaces the driver of an assignment.
func (r *pgVehicleAssignmentRepo) SetDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error) {
	const q = `
		UPDATE vehicle_assignments va
		SET driver_id  = @driver_id,
		    updated_at = now()
		FROM vehicles v
		WHERE va.id = @id
		  AND v.id = va.vehicle_id
		RETURNING ` + vaColumns

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "driver_id": driverID}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.SetDriver: %w", err)
	}
	return result, nil
}

// SetOverride is a conditional write: the precondition is checked against
// both the occupancy counter (serialized by the row lock the UPDATE takes)
// and the actual child rows, so it holds even if the counter has drifted.
func (r *pgVehicleAssignmentRepo) SetOverride(ctx context.Context, id uuid.UUID, seats *int) (domain.VehicleAssignment, error) {
	const q = `
		UPDATE vehicle_assignments va
		SET seat_override = @seats::integer,
		    version       = va.version + 1,
		    updated_at    = now()
		FROM vehicles v
		WHERE va.id = @id
		  AND v.id = va.vehicle_id
		  AND va.occupied_seats <= COALESCE(@seats::integer, v.capacity)
		  AND (SELECT count(*) FROM child_assignments ca WHERE ca.vehicle_assignment_id = va.id)
		      <= COALESCE(@seats::integer, v.capacity)
		RETURNING ` + vaColumns

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "seats": seats}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.SetOverride: %w", err)
	}
	return result, nil
}

// ReserveSeat is the single conditional write the assignment protocol commits
// on. Concurrent reservations on the same row queue on its row lock and each
// re-evaluates the WHERE clause against the committed counter, so two
// reservations can never both take the last seat.
func (r *pgVehicleAssignmentRepo) ReserveSeat(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	const q = `
		UPDATE vehicle_assignments va
		SET occupied_seats = va.occupied_seats + 1,
		    version        = va.version + 1,
		    updated_at     = now()
		FROM vehicles v
		WHERE va.id = @id
		  AND v.id = va.vehicle_id
		  AND va.occupied_seats < COALESCE(va.seat_override, v.capacity)
		RETURNING ` + vaColumns

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.ReserveSeat: %w", err)
	}
	return result, nil
}

// ReleaseSeat frees one seat on the assignment.
func (r *pgVehicleAssignmentRepo) ReleaseSeat(ctx context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	const q = `
		UPDATE vehicle_assignments va
		SET occupied_seats = va.occupied_seats - 1,
		    version        = va.version + 1,
		    updated_at     = now()
		FROM vehicles v
		WHERE va.id = @id
		  AND v.id = va.vehicle_id
		  AND va.occupied_seats > 0
		RETURNING ` + vaColumns

	result, err := scanVehicleAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("repo.VehicleAssignmentRepo.ReleaseSeat: %w", err)
	}
	return result, nil
}

// Delete removes an assignment by primary key. Child assignments go with it
// through ON DELETE CASCADE.
func (r *pgVehicleAssignmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM vehicle_assignments WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VehicleAssignmentRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VehicleAssignmentRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanVehicleAssignment maps a row selected with vaColumns.
// It handles the UUID, nullable driver and nullable override conversions.
func scanVehicleAssignment(s scanner) (domain.VehicleAssignment, error) {
	var (
		a                        domain.VehicleAssignment
		id, slotID, vehID, drvID pgtype.UUID
		override                 pgtype.Int4
	)
	err := s.Scan(&id, &slotID, &vehID, &drvID, &override,
		&a.VehicleCapacity, &a.OccupiedSeats, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.VehicleAssignment{}, translate(err)
	}

	a.ID = uuid.UUID(id.Bytes)
	a.SlotID = uuid.UUID(slotID.Bytes)
	a.VehicleID = uuid.UUID(vehID.Bytes)
	if drvID.Valid {
		d := uuid.UUID(drvID.Bytes)
		a.DriverID = &d
	}
	if override.Valid {
		n := int(override.Int32)
		a.SeatOverride = &n
	}
	return a, nil
}
