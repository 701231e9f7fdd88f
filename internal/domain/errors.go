package domain

import "errors"

// ErrNotFound is returned when a referenced slot, vehicle assignment, child
// or other resource does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input is rejected before any store
// interaction (bad weekday token, malformed week label, unknown timezone,
// negative seat count, ...).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrAlreadyExists is returned when a vehicle is already bound to a slot or a
// child already has a seat in the slot.
// Handlers should map this to HTTP 409 Conflict with code "already_exists".
var ErrAlreadyExists = errors.New("already exists")

// ErrCapacityViolation is returned when a seat override would drop the
// effective capacity below the number of children already seated.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrCapacityViolation = errors.New("capacity violation")

// ErrCapacityConflict is returned when no seat was free at commit time on the
// targeted vehicle assignment. It is the only error for which the correct
// client reaction is to refetch the slot and retry.
// Handlers should map this to HTTP 409 Conflict with code "capacity_conflict".
var ErrCapacityConflict = errors.New("capacity conflict")

// ErrInvariant marks a computation that can only result from corrupted
// state, such as a negative number of available seats.
var ErrInvariant = errors.New("invariant violated")
