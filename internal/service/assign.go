package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/carpool/internal/capacity"
	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/repo"
)

// attemptState is one step of a child-assignment attempt.
//
//	attempting -> committed
//	           -> conflicted
//	           -> failed
//
// The observation that precedes an attempt is a slot detail read and is
// counted separately in carpool_slot_reads_total.
type attemptState string

const (
	stateAttempting attemptState = "attempting"
	stateCommitted  attemptState = "committed"
	stateConflicted attemptState = "conflicted"
	stateFailed     attemptState = "failed"
)

func (a attemptState) record() {
	assignmentAttempts.WithLabelValues(string(a)).Inc()
}

// AssignChild seats a child in a vehicle assignment of the slot.
//
// The seat is taken by a single conditional write that only succeeds while the
// vehicle still has a free seat, and the child row is inserted in the same
// transaction. If the seat was taken by a concurrent commit since the caller
// last looked, nothing is written and domain.ErrCapacityConflict is returned:
// the caller should refetch the slot and retry.
//
// Other errors: domain.ErrNotFound if the slot, vehicle assignment or child
// does not exist or the vehicle assignment belongs to another slot;
// domain.ErrAlreadyExists if the child already has a seat in the slot;
// domain.ErrValidation if the child is not a member of the slot's group.
func (s *SlotService) AssignChild(ctx context.Context, slotID, childID, assignmentID uuid.UUID) (domain.ChildAssignment, error) {
	stateAttempting.record()

	var result domain.ChildAssignment
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		slot, err := r.Slots.GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("slot %s: %w", slotID, err)
		}
		va, err := r.Vehicles.GetByID(ctx, assignmentID)
		if err != nil {
			return fmt.Errorf("vehicle assignment %s: %w", assignmentID, err)
		}
		if va.SlotID != slotID {
			return fmt.Errorf("%w: vehicle assignment %s is not part of slot %s", domain.ErrNotFound, assignmentID, slotID)
		}
		child, err := r.Directory.GetChild(ctx, childID)
		if err != nil {
			return fmt.Errorf("child %s: %w", childID, err)
		}
		if child.GroupID != slot.GroupID {
			return fmt.Errorf("%w: child %s is not a member of group %s", domain.ErrValidation, childID, slot.GroupID)
		}

		switch _, err := r.Children.GetBySlotAndChild(ctx, slotID, childID); {
		case err == nil:
			return fmt.Errorf("%w: child %s already has a seat in slot %s", domain.ErrAlreadyExists, childID, slotID)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := reserveSeat(ctx, r, assignmentID); err != nil {
			return err
		}

		// A concurrent assignment of the same child that got past the check
		// above fails here on the (slot, child) unique constraint, and the
		// rollback returns the seat.
		result, err = r.Children.Create(ctx, domain.ChildAssignment{
			SlotID:              slotID,
			VehicleAssignmentID: assignmentID,
			ChildID:             childID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrCapacityConflict) {
			stateConflicted.record()
			s.log.InfoContext(ctx, "capacity conflict",
				"slot_id", slotID, "vehicle_assignment_id", assignmentID, "child_id", childID)
		} else {
			stateFailed.record()
		}
		return domain.ChildAssignment{}, fmt.Errorf("service.SlotService.AssignChild: %w", err)
	}

	stateCommitted.record()
	return result, nil
}

// reserveSeat takes one seat on the vehicle assignment or reports why it
// could not. The UPDATE matching no row means either the assignment is gone
// or it was full at commit time; a re-read tells them apart.
func reserveSeat(ctx context.Context, r repo.Repos, assignmentID uuid.UUID) error {
	_, err := r.Vehicles.ReserveSeat(ctx, assignmentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	current, getErr := r.Vehicles.GetByID(ctx, assignmentID)
	if getErr != nil {
		return fmt.Errorf("vehicle assignment %s: %w", assignmentID, getErr)
	}
	return fmt.Errorf("%w: vehicle assignment %s has %d of %d seats taken",
		domain.ErrCapacityConflict, assignmentID, current.OccupiedSeats, capacity.Effective(current))
}
