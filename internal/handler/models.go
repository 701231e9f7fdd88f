package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/carpool/internal/capacity"
	"github.com/pkordes/carpool/internal/domain"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ---- requests --------------------------------------------------------------

// CreateTripRequest binds a vehicle to a trip given in the group's local
// weekly grid.
type CreateTripRequest struct {
	Weekday      string              `json:"weekday" validate:"required"`
	Week         string              `json:"week" validate:"required"`
	LocalTime    string              `json:"local_time" validate:"required"`
	Timezone     string              `json:"timezone" validate:"required"`
	VehicleID    openapi_types.UUID  `json:"vehicle_id" validate:"required"`
	DriverID     *openapi_types.UUID `json:"driver_id,omitempty"`
	SeatOverride *int                `json:"seat_override,omitempty" validate:"omitempty,min=0"`
}

// AssignChildRequest seats a child in one vehicle of a slot.
type AssignChildRequest struct {
	ChildID             openapi_types.UUID `json:"child_id" validate:"required"`
	VehicleAssignmentID openapi_types.UUID `json:"vehicle_assignment_id" validate:"required"`
}

// SetDriverRequest replaces the driver; a null driver_id clears it.
type SetDriverRequest struct {
	DriverID *openapi_types.UUID `json:"driver_id"`
}

// SetSeatOverrideRequest replaces the seat override; null clears it.
type SetSeatOverrideRequest struct {
	Seats *int `json:"seats" validate:"omitempty,min=0"`
}

// LocalPatternRequest converts a UTC-keyed weekly pattern into a timezone.
// Week optionally pins the ISO week whose offsets apply.
type LocalPatternRequest struct {
	Pattern  map[string][]string `json:"pattern" validate:"required"`
	Timezone string              `json:"timezone" validate:"required"`
	Week     string              `json:"week,omitempty"`
}

// ---- responses -------------------------------------------------------------

// VehicleAssignment is the wire form of domain.VehicleAssignment.
type VehicleAssignment struct {
	ID                openapi_types.UUID  `json:"id"`
	SlotID            openapi_types.UUID  `json:"slot_id"`
	VehicleID         openapi_types.UUID  `json:"vehicle_id"`
	DriverID          *openapi_types.UUID `json:"driver_id"`
	SeatOverride      *int                `json:"seat_override"`
	VehicleCapacity   int                 `json:"vehicle_capacity"`
	EffectiveCapacity int                 `json:"effective_capacity"`
	HasOverride       bool                `json:"has_override"`
	OccupiedSeats     int                 `json:"occupied_seats"`
	Version           int64               `json:"version"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ChildAssignment is the wire form of domain.ChildAssignment.
type ChildAssignment struct {
	ID                  openapi_types.UUID `json:"id"`
	SlotID              openapi_types.UUID `json:"slot_id"`
	VehicleAssignmentID openapi_types.UUID `json:"vehicle_assignment_id"`
	ChildID             openapi_types.UUID `json:"child_id"`
	CreatedAt           time.Time          `json:"created_at"`
}

// Slot is the wire form of domain.Slot.
type Slot struct {
	ID       openapi_types.UUID `json:"id"`
	GroupID  openapi_types.UUID `json:"group_id"`
	StartsAt time.Time          `json:"starts_at"`
}

// SlotVehicle is one vehicle of a slot detail with its seat accounting.
// AvailableSeats is negative only when stored data is inconsistent.
type SlotVehicle struct {
	VehicleAssignment
	AvailableSeats int               `json:"available_seats"`
	Children       []ChildAssignment `json:"children"`
}

// SlotDetail is the body of GET /slots/{slotId}.
type SlotDetail struct {
	Slot
	Vehicles      []SlotVehicle `json:"vehicles"`
	TotalCapacity int           `json:"total_capacity"`
	TotalOccupied int           `json:"total_occupied"`
}

// SlotList is the body of GET /groups/{groupId}/slots.
type SlotList struct {
	Week     string `json:"week"`
	Timezone string `json:"timezone"`
	Data     []Slot `json:"data"`
}

// UnbindResponse reports whether the slot disappeared with its last vehicle.
type UnbindResponse struct {
	SlotDeleted bool `json:"slot_deleted"`
}

// ConflictsResponse lists the inconsistencies found in a slot.
type ConflictsResponse struct {
	Conflicts []string `json:"conflicts"`
}

// LocalPatternResponse carries the converted pattern, still keyed by the
// canonical English weekday tokens, plus display labels for those keys.
type LocalPatternResponse struct {
	Timezone string              `json:"timezone"`
	Pattern  map[string][]string `json:"pattern"`
	Labels   map[string]string   `json:"labels"`
}

// ---- mapping helpers -------------------------------------------------------

func vehicleAssignmentToResponse(a domain.VehicleAssignment) VehicleAssignment {
	return VehicleAssignment{
		ID:                a.ID,
		SlotID:            a.SlotID,
		VehicleID:         a.VehicleID,
		DriverID:          a.DriverID,
		SeatOverride:      a.SeatOverride,
		VehicleCapacity:   a.VehicleCapacity,
		EffectiveCapacity: capacity.Effective(a),
		HasOverride:       capacity.HasOverride(a),
		OccupiedSeats:     a.OccupiedSeats,
		Version:           a.Version,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func childAssignmentToResponse(c domain.ChildAssignment) ChildAssignment {
	return ChildAssignment{
		ID:                  c.ID,
		SlotID:              c.SlotID,
		VehicleAssignmentID: c.VehicleAssignmentID,
		ChildID:             c.ChildID,
		CreatedAt:           c.CreatedAt,
	}
}

func slotToResponse(s domain.Slot) Slot {
	return Slot{ID: s.ID, GroupID: s.GroupID, StartsAt: s.StartsAt.UTC()}
}

func slotDetailToResponse(d domain.SlotDetail) SlotDetail {
	out := SlotDetail{
		Slot:          slotToResponse(d.Slot),
		Vehicles:      make([]SlotVehicle, 0, len(d.Vehicles)),
		TotalCapacity: d.TotalCapacity,
		TotalOccupied: d.TotalOccupied,
	}
	for _, v := range d.Vehicles {
		children := make([]ChildAssignment, 0, len(v.Children))
		for _, c := range v.Children {
			children = append(children, childAssignmentToResponse(c))
		}
		out.Vehicles = append(out.Vehicles, SlotVehicle{
			VehicleAssignment: vehicleAssignmentToResponse(v.Assignment),
			AvailableSeats:    v.Available,
			Children:          children,
		})
	}
	return out
}
