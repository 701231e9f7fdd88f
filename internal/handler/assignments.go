package handler

import (
	"net/http"
)

// SetDriver handles PUT /vehicle-assignments/{assignmentId}/driver.
func (s *Server) SetDriver(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "assignmentId")
	if !ok {
		return
	}
	var body SetDriverRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	updated, err := s.slots.SetDriver(r.Context(), id, body.DriverID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleAssignmentToResponse(updated))
}

// SetSeatOverride handles PUT /vehicle-assignments/{assignmentId}/seat-override.
// seats: null restores the vehicle's registered capacity; seats: 0 is a real
// override.
func (s *Server) SetSeatOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "assignmentId")
	if !ok {
		return
	}
	var body SetSeatOverrideRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	updated, err := s.slots.SetOverride(r.Context(), id, body.Seats)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleAssignmentToResponse(updated))
}
