package handler

import (
	"net/http"
)

// GetSlot handles GET /slots/{slotId}.
func (s *Server) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotId")
	if !ok {
		return
	}
	detail, err := s.slots.GetDetail(r.Context(), slotID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotDetailToResponse(detail))
}

// GetSlotConflicts handles GET /slots/{slotId}/conflicts.
func (s *Server) GetSlotConflicts(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotId")
	if !ok {
		return
	}
	found, err := s.slots.Conflicts(r.Context(), slotID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if found == nil {
		found = []string{}
	}
	writeJSON(w, http.StatusOK, ConflictsResponse{Conflicts: found})
}

// UnbindVehicle handles DELETE /slots/{slotId}/vehicles/{vehicleId}.
// The response tells the client whether the whole slot went away.
func (s *Server) UnbindVehicle(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotId")
	if !ok {
		return
	}
	vehicleID, ok := pathUUID(w, r, "vehicleId")
	if !ok {
		return
	}
	res, err := s.slots.UnbindVehicle(r.Context(), slotID, vehicleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UnbindResponse{SlotDeleted: res.SlotDeleted})
}

// AssignChild handles POST /slots/{slotId}/children.
// A 409 with code capacity_conflict means the seat was taken concurrently;
// the client should refetch the slot and retry.
func (s *Server) AssignChild(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotId")
	if !ok {
		return
	}
	var body AssignChildRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	created, err := s.slots.AssignChild(r.Context(), slotID, body.ChildID, body.VehicleAssignmentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, childAssignmentToResponse(created))
}

// RemoveChild handles DELETE /slots/{slotId}/children/{childId}.
func (s *Server) RemoveChild(w http.ResponseWriter, r *http.Request) {
	slotID, ok := pathUUID(w, r, "slotId")
	if !ok {
		return
	}
	childID, ok := pathUUID(w, r, "childId")
	if !ok {
		return
	}
	if err := s.slots.RemoveChild(r.Context(), slotID, childID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
