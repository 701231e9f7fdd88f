// Package domain contains the core data types for the carpool scheduling engine.
// This package has no dependencies on other internal packages and is imported
// by every other internal package (schedule, capacity, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Slot is one concrete trip instance for a group at a specific UTC instant.
// (GroupID, StartsAt) is unique; a slot exists only while at least one
// vehicle is bound to it.
type Slot struct {
	ID        uuid.UUID
	GroupID   uuid.UUID
	StartsAt  time.Time // always UTC
	CreatedAt time.Time
}

// VehicleAssignment binds one vehicle, and optionally one driver, to a slot.
//
// SeatOverride is nil when the vehicle's registered capacity applies. An
// override of 0 is a real value and differs from nil.
// VehicleCapacity is the vehicle's registered capacity, joined in by the repo.
// OccupiedSeats is the store-side occupancy counter guarded by the atomic
// seat reservation; Version increments on every capacity-affecting write.
type VehicleAssignment struct {
	ID              uuid.UUID
	SlotID          uuid.UUID
	VehicleID       uuid.UUID
	DriverID        *uuid.UUID
	SeatOverride    *int
	VehicleCapacity int
	OccupiedSeats   int
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ChildAssignment places one child in one vehicle assignment of a slot.
// A child appears at most once per slot.
type ChildAssignment struct {
	ID                  uuid.UUID
	SlotID              uuid.UUID
	VehicleAssignmentID uuid.UUID
	ChildID             uuid.UUID
	CreatedAt           time.Time
}

// BindVehicleInput carries the arguments of a vehicle binding.
// StartsAt must already be the canonical UTC instant of the trip.
type BindVehicleInput struct {
	GroupID      uuid.UUID
	StartsAt     time.Time
	VehicleID    uuid.UUID
	DriverID     *uuid.UUID
	SeatOverride *int
}

// TripInput is a vehicle binding expressed in the group's local weekly grid.
// It is resolved to a BindVehicleInput before touching the store.
type TripInput struct {
	GroupID      uuid.UUID
	Weekday      string // MONDAY … SUNDAY, case-insensitive
	Week         string // ISO week label, e.g. "2025-26"
	LocalTime    string // "HH:MM"
	Timezone     string // IANA identifier
	VehicleID    uuid.UUID
	DriverID     *uuid.UUID
	SeatOverride *int
}

// UnbindResult reports whether removing a vehicle also removed its slot.
type UnbindResult struct {
	SlotDeleted bool
}

// VehicleSeats is a vehicle assignment together with its computed capacity
// and the children currently riding in it.
// Available is negative only when stored data violates the capacity
// invariant; it is reported as-is and never clamped.
type VehicleSeats struct {
	Assignment  VehicleAssignment
	Effective   int
	HasOverride bool
	Available   int
	Children    []ChildAssignment
}

// SlotDetail is a slot with its nested assignments and computed capacities.
type SlotDetail struct {
	Slot          Slot
	Vehicles      []VehicleSeats
	TotalCapacity int
	TotalOccupied int
}
