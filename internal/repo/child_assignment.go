package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carpool/internal/domain"
)

// ChildAssignmentRepo defines the persistence operations for child seat
// assignments. A child appears at most once per slot; the database enforces
// that with the (slot_id, child_id) unique constraint.
type ChildAssignmentRepo interface {
	// Create inserts a seat assignment. Returns domain.ErrAlreadyExists when
	// the child is already seated in the slot and domain.ErrNotFound when the
	// slot, vehicle assignment or child does not exist.
	Create(ctx context.Context, c domain.ChildAssignment) (domain.ChildAssignment, error)

	// GetBySlotAndChild returns domain.ErrNotFound if the child is not seated
	// in the slot.
	GetBySlotAndChild(ctx context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error)

	// DeleteBySlotAndChild removes the child's seat in the slot and returns
	// the deleted row. Returns domain.ErrNotFound if there was none.
	DeleteBySlotAndChild(ctx context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error)

	// DeleteByVehicleAssignment removes every child seated in the vehicle
	// assignment and returns how many rows were deleted.
	DeleteByVehicleAssignment(ctx context.Context, vehicleAssignmentID uuid.UUID) (int64, error)

	// ListBySlot returns every seat assignment of the slot ordered by
	// creation time.
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.ChildAssignment, error)
}

// pgChildAssignmentRepo is the Postgres implementation of ChildAssignmentRepo.
type pgChildAssignmentRepo struct {
	db db
}

// NewChildAssignmentRepo constructs a ChildAssignmentRepo backed by the
// provided db connection.
func NewChildAssignmentRepo(db db) ChildAssignmentRepo {
	return &pgChildAssignmentRepo{db: db}
}

const caColumns = `id, slot_id, vehicle_assignment_id, child_id, created_at`

// Create inserts a new child seat assignment.
func (r *pgChildAssignmentRepo) Create(ctx context.Context, c domain.ChildAssignment) (domain.ChildAssignment, error) {
	const q = `
		INSERT INTO child_assignments (slot_id, vehicle_assignment_id, child_id)
		VALUES (@slot_id, @vehicle_assignment_id, @child_id)
		RETURNING ` + caColumns

	result, err := scanChildAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"slot_id":               c.SlotID,
		"vehicle_assignment_id": c.VehicleAssignmentID,
		"child_id":              c.ChildID,
	}))
	if err != nil {
		return domain.ChildAssignment{}, fmt.Errorf("repo.ChildAssignmentRepo.Create: %w", err)
	}
	return result, nil
}

// GetBySlotAndChild retrieves the child's seat in the slot.
func (r *pgChildAssignmentRepo) GetBySlotAndChild(ctx context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error) {
	const q = `
		SELECT ` + caColumns + `
		FROM child_assignments
		WHERE slot_id = @slot_id
		  AND child_id = @child_id`

	result, err := scanChildAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"slot_id": slotID, "child_id": childID}))
	if err != nil {
		return domain.ChildAssignment{}, fmt.Errorf("repo.ChildAssignmentRepo.GetBySlotAndChild: %w", err)
	}
	return result, nil
}

// DeleteBySlotAndChild deletes the child's seat and returns the removed row so
// the caller knows which vehicle assignment to release a seat on.
func (r *pgChildAssignmentRepo) DeleteBySlotAndChild(ctx context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error) {
	const q = `
		DELETE FROM child_assignments
		WHERE slot_id = @slot_id
		  AND child_id = @child_id
		RETURNING ` + caColumns

	result, err := scanChildAssignment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"slot_id": slotID, "child_id": childID}))
	if err != nil {
		return domain.ChildAssignment{}, fmt.Errorf("repo.ChildAssignmentRepo.DeleteBySlotAndChild: %w", err)
	}
	return result, nil
}

// DeleteByVehicleAssignment clears every seat of one vehicle assignment.
func (r *pgChildAssignmentRepo) DeleteByVehicleAssignment(ctx context.Context, vehicleAssignmentID uuid.UUID) (int64, error) {
	const q = `DELETE FROM child_assignments WHERE vehicle_assignment_id = @vehicle_assignment_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"vehicle_assignment_id": vehicleAssignmentID})
	if err != nil {
		return 0, fmt.Errorf("repo.ChildAssignmentRepo.DeleteByVehicleAssignment: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListBySlot returns every seat assignment in the slot.
func (r *pgChildAssignmentRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]domain.ChildAssignment, error) {
	const q = `
		SELECT ` + caColumns + `
		FROM child_assignments
		WHERE slot_id = @slot_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"slot_id": slotID})
	if err != nil {
		return nil, fmt.Errorf("repo.ChildAssignmentRepo.ListBySlot: %w", err)
	}
	defer rows.Close()

	out := []domain.ChildAssignment{}
	for rows.Next() {
		c, err := scanChildAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ChildAssignmentRepo.ListBySlot: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ChildAssignmentRepo.ListBySlot: rows: %w", err)
	}
	return out, nil
}

func scanChildAssignment(s scanner) (domain.ChildAssignment, error) {
	var (
		c                         domain.ChildAssignment
		id, slotID, vaID, childID pgtype.UUID
	)
	if err := s.Scan(&id, &slotID, &vaID, &childID, &c.CreatedAt); err != nil {
		return domain.ChildAssignment{}, translate(err)
	}
	c.ID = uuid.UUID(id.Bytes)
	c.SlotID = uuid.UUID(slotID.Bytes)
	c.VehicleAssignmentID = uuid.UUID(vaID.Bytes)
	c.ChildID = uuid.UUID(childID.Bytes)
	return c, nil
}
