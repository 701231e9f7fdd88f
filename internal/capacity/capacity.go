// Package capacity computes seat counts for vehicle assignments.
// All functions are pure: no I/O, no logging, no clamping.
package capacity

import (
	"fmt"

	"github.com/pkordes/carpool/internal/domain"
)

// Effective returns the seat override when one is set, including an override
// of zero, and the vehicle's registered capacity otherwise.
func Effective(a domain.VehicleAssignment) int {
	if a.SeatOverride != nil {
		return *a.SeatOverride
	}
	return a.VehicleCapacity
}

// HasOverride reports whether an override is set, whatever its value.
func HasOverride(a domain.VehicleAssignment) bool {
	return a.SeatOverride != nil
}

// Total sums the effective capacity of every vehicle assignment of a slot.
func Total(assignments []domain.VehicleAssignment) int {
	total := 0
	for _, a := range assignments {
		total += Effective(a)
	}
	return total
}

// Available returns the free seats left on a vehicle assignment given the
// number of children seated in it. A negative result can only come from a
// broken invariant; it is returned unchanged together with domain.ErrInvariant.
func Available(a domain.VehicleAssignment, occupants int) (int, error) {
	n := Effective(a) - occupants
	if n < 0 {
		return n, fmt.Errorf("%w: vehicle assignment %s holds %d children for %d seats",
			domain.ErrInvariant, a.ID, occupants, Effective(a))
	}
	return n, nil
}

// Fits reports whether an assignment with the given override (nil meaning
// the vehicle default) can still hold the given number of occupants.
func Fits(a domain.VehicleAssignment, override *int, occupants int) bool {
	a.SeatOverride = override
	return Effective(a) >= occupants
}
