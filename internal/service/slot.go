// Package service holds the slot aggregate manager: every write to schedule
// slots, vehicle assignments and child assignments goes through SlotService.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/carpool/internal/capacity"
	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/repo"
	"github.com/pkordes/carpool/internal/schedule"
)

// SlotService owns the lifecycle of schedule slots and their nested vehicle
// and child assignments. A slot is created by the first vehicle bound to its
// (group, instant) and deleted with its last vehicle.
type SlotService struct {
	store repo.Store
	log   *slog.Logger
}

// NewSlotService constructs a SlotService backed by the provided store.
func NewSlotService(store repo.Store, log *slog.Logger) *SlotService {
	return &SlotService{store: store, log: log}
}

// ScheduleTrip resolves a trip given in the group's local weekly grid to its
// UTC instant and binds the vehicle to it.
// Returns domain.ErrValidation for a bad weekday, week label, clock time or
// timezone before touching the store.
func (s *SlotService) ScheduleTrip(ctx context.Context, in domain.TripInput) (domain.VehicleAssignment, error) {
	startsAt, err := schedule.ResolveLabels(in.Weekday, in.Week, in.LocalTime, in.Timezone)
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.ScheduleTrip: %w", err)
	}
	return s.BindVehicle(ctx, domain.BindVehicleInput{
		GroupID:      in.GroupID,
		StartsAt:     startsAt,
		VehicleID:    in.VehicleID,
		DriverID:     in.DriverID,
		SeatOverride: in.SeatOverride,
	})
}

// BindVehicle finds or creates the slot for (group, instant) and binds the
// vehicle to it.
// Returns domain.ErrAlreadyExists if the vehicle is already bound to the slot,
// domain.ErrNotFound if the group, vehicle or driver does not exist and
// domain.ErrValidation for a negative override or a vehicle of another group.
func (s *SlotService) BindVehicle(ctx context.Context, in domain.BindVehicleInput) (domain.VehicleAssignment, error) {
	if err := validateBind(in); err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.BindVehicle: %w", err)
	}

	var (
		result  domain.VehicleAssignment
		slot    domain.Slot
		created bool
	)
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		if _, err := r.Directory.GetGroup(ctx, in.GroupID); err != nil {
			return fmt.Errorf("group %s: %w", in.GroupID, err)
		}
		vehicle, err := r.Directory.GetVehicle(ctx, in.VehicleID)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", in.VehicleID, err)
		}
		if vehicle.GroupID != in.GroupID {
			return fmt.Errorf("%w: vehicle %s does not belong to group %s", domain.ErrValidation, in.VehicleID, in.GroupID)
		}
		if in.DriverID != nil {
			if _, err := r.Directory.GetDriver(ctx, *in.DriverID); err != nil {
				return fmt.Errorf("driver %s: %w", *in.DriverID, err)
			}
		}

		slot, created, err = r.Slots.Upsert(ctx, in.GroupID, in.StartsAt)
		if err != nil {
			return err
		}
		result, err = r.Vehicles.Create(ctx, domain.VehicleAssignment{
			SlotID:       slot.ID,
			VehicleID:    in.VehicleID,
			DriverID:     in.DriverID,
			SeatOverride: in.SeatOverride,
		})
		return err
	})
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.BindVehicle: %w", err)
	}

	if created {
		slotLifecycle.WithLabelValues(eventSlotCreated).Inc()
		s.log.InfoContext(ctx, "slot created",
			"slot_id", slot.ID, "group_id", slot.GroupID, "starts_at", slot.StartsAt)
	}
	return result, nil
}

// UnbindVehicle removes the vehicle from the slot together with the children
// riding in it. When it was the slot's last vehicle the slot is deleted in the
// same transaction and the result reports it.
// Returns domain.ErrNotFound if the slot does not exist or the vehicle is not
// bound to it.
func (s *SlotService) UnbindVehicle(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.UnbindResult, error) {
	var (
		result   domain.UnbindResult
		released int64
	)
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		// The slot row lock orders this unbind against concurrent binds to
		// the same slot, so the emptiness check below sees their rows.
		if _, err := r.Slots.Lock(ctx, slotID); err != nil {
			return fmt.Errorf("slot %s: %w", slotID, err)
		}
		va, err := r.Vehicles.GetBySlotAndVehicle(ctx, slotID, vehicleID)
		if err != nil {
			return fmt.Errorf("vehicle %s in slot %s: %w", vehicleID, slotID, err)
		}
		if released, err = r.Children.DeleteByVehicleAssignment(ctx, va.ID); err != nil {
			return err
		}
		if err := r.Vehicles.Delete(ctx, va.ID); err != nil {
			return err
		}
		result.SlotDeleted, err = r.Slots.DeleteIfEmpty(ctx, slotID)
		return err
	})
	if err != nil {
		return domain.UnbindResult{}, fmt.Errorf("service.SlotService.UnbindVehicle: %w", err)
	}

	s.log.InfoContext(ctx, "vehicle unbound",
		"slot_id", slotID, "vehicle_id", vehicleID, "children_released", released)
	if result.SlotDeleted {
		slotLifecycle.WithLabelValues(eventSlotDeleted).Inc()
		s.log.InfoContext(ctx, "slot deleted", "slot_id", slotID)
	}
	return result, nil
}

// SetDriver replaces the driver of a vehicle assignment; nil clears it.
// Returns domain.ErrNotFound if the assignment or the driver does not exist.
func (s *SlotService) SetDriver(ctx context.Context, assignmentID uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error) {
	r := s.store.Repos()
	if driverID != nil {
		if _, err := r.Directory.GetDriver(ctx, *driverID); err != nil {
			return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetDriver: driver %s: %w", *driverID, err)
		}
	}
	result, err := r.Vehicles.SetDriver(ctx, assignmentID, driverID)
	if err != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetDriver: %w", err)
	}
	return result, nil
}

// SetOverride replaces the seat override of a vehicle assignment; nil falls
// back to the vehicle's registered capacity.
// Returns domain.ErrValidation for a negative seat count,
// domain.ErrCapacityViolation if the new capacity would not cover the children
// already seated and domain.ErrNotFound if the assignment does not exist.
func (s *SlotService) SetOverride(ctx context.Context, assignmentID uuid.UUID, seats *int) (domain.VehicleAssignment, error) {
	if seats != nil && *seats < 0 {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetOverride: %w: seats must not be negative", domain.ErrValidation)
	}

	r := s.store.Repos()
	result, err := r.Vehicles.SetOverride(ctx, assignmentID, seats)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetOverride: %w", err)
	}

	// No row matched: either the assignment is gone or the precondition failed.
	current, getErr := r.Vehicles.GetByID(ctx, assignmentID)
	if getErr != nil {
		return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetOverride: %w", getErr)
	}
	return domain.VehicleAssignment{}, fmt.Errorf("service.SlotService.SetOverride: %w: %d children seated, requested capacity %d",
		domain.ErrCapacityViolation, current.OccupiedSeats, effectiveWith(current, seats))
}

// RemoveChild frees the child's seat in the slot, whichever vehicle it is in.
// Returns domain.ErrNotFound if the child is not assigned in the slot.
func (s *SlotService) RemoveChild(ctx context.Context, slotID, childID uuid.UUID) error {
	err := s.store.InTx(ctx, func(r repo.Repos) error {
		removed, err := r.Children.DeleteBySlotAndChild(ctx, slotID, childID)
		if err != nil {
			return fmt.Errorf("child %s in slot %s: %w", childID, slotID, err)
		}
		if _, err := r.Vehicles.ReleaseSeat(ctx, removed.VehicleAssignmentID); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			// The counter was already zero while a child row existed.
			// Conflicts reports the drift; the removal itself stands.
			invariantDefects.WithLabelValues(defectCounterDrift).Inc()
			s.log.WarnContext(ctx, "occupancy counter drift on release",
				"slot_id", slotID, "vehicle_assignment_id", removed.VehicleAssignmentID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.SlotService.RemoveChild: %w", err)
	}
	return nil
}

// GetDetail returns the slot with its vehicles, the children in each and the
// computed capacities.
// Returns domain.ErrNotFound if the slot does not exist.
func (s *SlotService) GetDetail(ctx context.Context, slotID uuid.UUID) (domain.SlotDetail, error) {
	r := s.store.Repos()
	slot, err := r.Slots.GetByID(ctx, slotID)
	if err != nil {
		return domain.SlotDetail{}, fmt.Errorf("service.SlotService.GetDetail: %w", err)
	}

	vehicles, children, err := loadAssignments(ctx, r, slotID)
	if err != nil {
		return domain.SlotDetail{}, fmt.Errorf("service.SlotService.GetDetail: %w", err)
	}

	detail := s.buildDetail(ctx, slot, vehicles, children)
	slotReads.Inc()
	return detail, nil
}

// ListWeek returns a group's slots that fall inside the given ISO week as
// observed in the given timezone, ordered by time.
// Returns domain.ErrValidation for a bad week label or timezone and
// domain.ErrNotFound if the group does not exist.
func (s *SlotService) ListWeek(ctx context.Context, groupID uuid.UUID, week, timezone string) ([]domain.Slot, error) {
	w, err := schedule.ParseWeek(week)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.ListWeek: %w", err)
	}
	loc, err := schedule.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.ListWeek: %w", err)
	}

	r := s.store.Repos()
	if _, err := r.Directory.GetGroup(ctx, groupID); err != nil {
		return nil, fmt.Errorf("service.SlotService.ListWeek: group %s: %w", groupID, err)
	}
	from, to := schedule.WeekBounds(w, loc)
	slots, err := r.Slots.ListByGroup(ctx, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.ListWeek: %w", err)
	}
	if slots == nil {
		return []domain.Slot{}, nil
	}
	return slots, nil
}

// LocalPattern converts a UTC-keyed weekly pattern into the given timezone.
// ref selects the week whose UTC offsets apply. Keys stay the canonical
// English weekday tokens and days without times are omitted.
// Returns domain.ErrValidation for an unknown timezone, weekday or time.
func (s *SlotService) LocalPattern(pattern map[string][]string, timezone string, ref time.Time) (map[string][]string, error) {
	loc, err := schedule.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.LocalPattern: %w", err)
	}
	p, err := schedule.ParsePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.LocalPattern: %w", err)
	}
	local, err := schedule.ToLocal(p, loc, ref)
	if err != nil {
		return nil, fmt.Errorf("service.SlotService.LocalPattern: %w", err)
	}
	return local.Strings(), nil
}

// loadAssignments reads a slot's vehicle and child assignments concurrently.
func loadAssignments(ctx context.Context, r repo.Repos, slotID uuid.UUID) ([]domain.VehicleAssignment, []domain.ChildAssignment, error) {
	var (
		vehicles []domain.VehicleAssignment
		children []domain.ChildAssignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vehicles, err = r.Vehicles.ListBySlot(gctx, slotID)
		return err
	})
	g.Go(func() error {
		var err error
		children, err = r.Children.ListBySlot(gctx, slotID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vehicles, children, nil
}

// buildDetail groups children under their vehicle and computes capacities.
// A negative availability is kept as computed and logged as a defect.
func (s *SlotService) buildDetail(ctx context.Context, slot domain.Slot, vehicles []domain.VehicleAssignment, children []domain.ChildAssignment) domain.SlotDetail {
	byVehicle := make(map[uuid.UUID][]domain.ChildAssignment, len(vehicles))
	for _, c := range children {
		byVehicle[c.VehicleAssignmentID] = append(byVehicle[c.VehicleAssignmentID], c)
	}

	detail := domain.SlotDetail{
		Slot:          slot,
		Vehicles:      make([]domain.VehicleSeats, 0, len(vehicles)),
		TotalCapacity: capacity.Total(vehicles),
	}
	for _, va := range vehicles {
		seated := byVehicle[va.ID]
		if seated == nil {
			seated = []domain.ChildAssignment{}
		}
		available, err := capacity.Available(va, len(seated))
		if err != nil {
			invariantDefects.WithLabelValues(defectNegativeAvailable).Inc()
			s.log.ErrorContext(ctx, "capacity invariant violated",
				"slot_id", slot.ID, "vehicle_assignment_id", va.ID, "err", err)
		}
		detail.Vehicles = append(detail.Vehicles, domain.VehicleSeats{
			Assignment:  va,
			Effective:   capacity.Effective(va),
			HasOverride: capacity.HasOverride(va),
			Available:   available,
			Children:    seated,
		})
		detail.TotalOccupied += len(seated)
	}
	return detail
}

func validateBind(in domain.BindVehicleInput) error {
	if in.StartsAt.IsZero() {
		return fmt.Errorf("%w: trip instant is required", domain.ErrValidation)
	}
	if in.SeatOverride != nil && *in.SeatOverride < 0 {
		return fmt.Errorf("%w: seat override must not be negative", domain.ErrValidation)
	}
	return nil
}

func effectiveWith(a domain.VehicleAssignment, seats *int) int {
	a.SeatOverride = seats
	return capacity.Effective(a)
}
