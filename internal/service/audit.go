package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pkordes/carpool/internal/capacity"
	"github.com/pkordes/carpool/internal/domain"
)

// Conflicts audits a slot and describes every inconsistency it finds.
// It never writes and never blocks other operations; an empty list means the
// slot is consistent.
// Returns domain.ErrNotFound if the slot does not exist.
func (s *SlotService) Conflicts(ctx context.Context, slotID uuid.UUID) ([]string, error) {
	r := s.store.Repos()
	slot, err := r.Slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.Conflicts: %w", err)
	}
	vehicles, children, err := loadAssignments(ctx, r, slotID)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.Conflicts: %w", err)
	}

	found := audit(slot, vehicles, children)
	if len(found) > 0 {
		s.log.WarnContext(ctx, "slot conflicts found", "slot_id", slotID, "count", len(found))
	}
	return found, nil
}

// audit is the pure part of Conflicts. Messages are grouped by check and
// sorted within each group so the output is stable.
func audit(slot domain.Slot, vehicles []domain.VehicleAssignment, children []domain.ChildAssignment) []string {
	out := []string{}
	if len(vehicles) == 0 {
		out = append(out, fmt.Sprintf("slot %s has no vehicles", slot.ID))
	}

	inSlot := make(map[uuid.UUID]bool, len(vehicles))
	for _, va := range vehicles {
		inSlot[va.ID] = true
	}

	seated := make(map[uuid.UUID]int, len(vehicles))
	rides := make(map[uuid.UUID][]uuid.UUID)
	var foreign []string
	for _, c := range children {
		rides[c.ChildID] = append(rides[c.ChildID], c.VehicleAssignmentID)
		if !inSlot[c.VehicleAssignmentID] {
			foreign = append(foreign, fmt.Sprintf("child %s is assigned to vehicle assignment %s which is not part of slot %s",
				c.ChildID, c.VehicleAssignmentID, slot.ID))
			continue
		}
		seated[c.VehicleAssignmentID]++
	}

	var doubles []string
	for child, vas := range rides {
		if len(vas) > 1 {
			doubles = append(doubles, fmt.Sprintf("child %s is assigned %d times in slot %s", child, len(vas), slot.ID))
		}
	}

	var over, drift []string
	drivers := make(map[uuid.UUID]int)
	for _, va := range vehicles {
		n := seated[va.ID]
		if !capacity.Fits(va, va.SeatOverride, n) {
			over = append(over, fmt.Sprintf("vehicle assignment %s holds %d children for %d seats",
				va.ID, n, capacity.Effective(va)))
		}
		if va.OccupiedSeats != n {
			drift = append(drift, fmt.Sprintf("vehicle assignment %s records %d occupied seats but has %d children",
				va.ID, va.OccupiedSeats, n))
		}
		if va.DriverID != nil {
			drivers[*va.DriverID]++
		}
	}

	var busy []string
	for driver, n := range drivers {
		if n > 1 {
			busy = append(busy, fmt.Sprintf("driver %s drives %d vehicles in slot %s", driver, n, slot.ID))
		}
	}

	for _, group := range [][]string{doubles, over, drift, busy, foreign} {
		sort.Strings(group)
		out = append(out, group...)
	}
	return out
}
