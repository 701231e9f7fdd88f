package domain

import "github.com/google/uuid"

// Group, Vehicle, Driver and Child are owned by external collaborators.
// The scheduling engine only reads them to validate references and to learn
// a vehicle's registered capacity.

// Group is a family carpool group.
type Group struct {
	ID   uuid.UUID
	Name string
}

// Vehicle is a registered vehicle with its default seat capacity.
type Vehicle struct {
	ID       uuid.UUID
	GroupID  uuid.UUID
	Name     string
	Capacity int
}

// Driver is a person allowed to drive a vehicle assignment.
type Driver struct {
	ID   uuid.UUID
	Name string
}

// Child is a passenger that can be assigned to a seat.
type Child struct {
	ID      uuid.UUID
	GroupID uuid.UUID
	Name    string
}
