package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carpool/internal/domain"
)

// SlotRepo defines the persistence operations for schedule slots.
type SlotRepo interface {
	// Upsert returns the slot for (groupID, startsAt), inserting it if it does
	// not exist yet. created reports whether this call inserted the row.
	Upsert(ctx context.Context, groupID uuid.UUID, startsAt time.Time) (slot domain.Slot, created bool, err error)

	// GetByID retrieves a slot by primary key.
	// Returns domain.ErrNotFound if no slot with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error)

	// Lock retrieves a slot and holds its row lock until the surrounding
	// transaction ends. Returns domain.ErrNotFound if it does not exist.
	Lock(ctx context.Context, id uuid.UUID) (domain.Slot, error)

	// DeleteIfEmpty removes the slot only when no vehicle assignment
	// references it and reports whether a row was deleted.
	DeleteIfEmpty(ctx context.Context, id uuid.UUID) (bool, error)

	// ListByGroup returns the group's slots with from <= starts_at < to,
	// ordered by starts_at ascending.
	ListByGroup(ctx context.Context, groupID uuid.UUID, from, to time.Time) ([]domain.Slot, error)
}

// pgSlotRepo is the Postgres implementation of SlotRepo.
type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo backed by the provided db connection.
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

// Upsert relies on the (group_id, starts_at) unique constraint so concurrent
// callers for the same trip converge on one row. The DO UPDATE SET trick
// makes RETURNING fire on conflict as well; xmax = 0 only holds for a row
// inserted by this statement.
func (r *pgSlotRepo) Upsert(ctx context.Context, groupID uuid.UUID, startsAt time.Time) (domain.Slot, bool, error) {
	const q = `
		INSERT INTO schedule_slots (group_id, starts_at)
		VALUES (@group_id, @starts_at)
		ON CONFLICT (group_id, starts_at) DO UPDATE SET starts_at = EXCLUDED.starts_at
		RETURNING id, group_id, starts_at, created_at, (xmax = 0) AS inserted`

	var (
		s        domain.Slot
		id, gid  pgtype.UUID
		inserted bool
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"group_id":  groupID,
		"starts_at": startsAt.UTC(),
	}).Scan(&id, &gid, &s.StartsAt, &s.CreatedAt, &inserted)
	if err != nil {
		return domain.Slot{}, false, fmt.Errorf("repo.SlotRepo.Upsert: %w", translate(err))
	}
	s.ID = uuid.UUID(id.Bytes)
	s.GroupID = uuid.UUID(gid.Bytes)
	s.StartsAt = s.StartsAt.UTC()
	return s, inserted, nil
}

// GetByID retrieves a slot by primary key.
func (r *pgSlotRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	const q = `
		SELECT id, group_id, starts_at, created_at
		FROM schedule_slots
		WHERE id = @id`

	s, err := scanSlot(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetByID: %w", err)
	}
	return s, nil
}

// Lock retrieves a slot FOR UPDATE.
func (r *pgSlotRepo) Lock(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	const q = `
		SELECT id, group_id, starts_at, created_at
		FROM schedule_slots
		WHERE id = @id
		FOR UPDATE`

	s, err := scanSlot(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.Lock: %w", err)
	}
	return s, nil
}

// DeleteIfEmpty deletes the slot when it has no vehicle assignments left.
func (r *pgSlotRepo) DeleteIfEmpty(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `
		DELETE FROM schedule_slots s
		WHERE s.id = @id
		  AND NOT EXISTS (SELECT 1 FROM vehicle_assignments va WHERE va.slot_id = s.id)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return false, fmt.Errorf("repo.SlotRepo.DeleteIfEmpty: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByGroup returns a group's slots inside [from, to).
func (r *pgSlotRepo) ListByGroup(ctx context.Context, groupID uuid.UUID, from, to time.Time) ([]domain.Slot, error) {
	const q = `
		SELECT id, group_id, starts_at, created_at
		FROM schedule_slots
		WHERE group_id = @group_id
		  AND starts_at >= @from
		  AND starts_at < @to
		ORDER BY starts_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"group_id": groupID, "from": from.UTC(), "to": to.UTC()})
	if err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListByGroup: %w", err)
	}
	defer rows.Close()

	slots := []domain.Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.SlotRepo.ListByGroup: scan: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SlotRepo.ListByGroup: rows: %w", err)
	}
	return slots, nil
}

// scanSlot maps a single database row into a domain.Slot.
// starts_at is normalized to UTC because pgx decodes timestamptz in the
// process's local zone.
func scanSlot(s scanner) (domain.Slot, error) {
	var (
		slot    domain.Slot
		id, gid pgtype.UUID
	)
	if err := s.Scan(&id, &gid, &slot.StartsAt, &slot.CreatedAt); err != nil {
		return domain.Slot{}, translate(err)
	}
	slot.ID = uuid.UUID(id.Bytes)
	slot.GroupID = uuid.UUID(gid.Bytes)
	slot.StartsAt = slot.StartsAt.UTC()
	return slot, nil
}
