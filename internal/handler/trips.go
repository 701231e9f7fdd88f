package handler

import (
	"net/http"

	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/schedule"
)

// CreateTrip handles POST /groups/{groupId}/trips.
// It resolves the local weekday, week and time to the trip's UTC instant,
// creating the slot if needed, and binds the vehicle to it.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathUUID(w, r, "groupId")
	if !ok {
		return
	}
	var body CreateTripRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	created, err := s.slots.ScheduleTrip(r.Context(), domain.TripInput{
		GroupID:      groupID,
		Weekday:      body.Weekday,
		Week:         body.Week,
		LocalTime:    body.LocalTime,
		Timezone:     body.Timezone,
		VehicleID:    body.VehicleID,
		DriverID:     body.DriverID,
		SeatOverride: body.SeatOverride,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicleAssignmentToResponse(created))
}

// ListSlots handles GET /groups/{groupId}/slots?timezone=&week=.
// week defaults to the current ISO week in the requested timezone.
func (s *Server) ListSlots(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathUUID(w, r, "groupId")
	if !ok {
		return
	}
	timezone, ok := queryString(w, r, "timezone")
	if !ok {
		return
	}
	week, ok := queryString(w, r, "week")
	if !ok {
		return
	}
	if timezone == "" {
		requestError(w, "timezone is required")
		return
	}
	if week == "" {
		loc, err := schedule.LoadLocation(timezone)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		week = schedule.WeekOf(s.now().In(loc)).String()
	}

	slots, err := s.slots.ListWeek(r.Context(), groupID, week, timezone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := SlotList{Week: week, Timezone: timezone, Data: make([]Slot, 0, len(slots))}
	for _, sl := range slots {
		out.Data = append(out.Data, slotToResponse(sl))
	}
	writeJSON(w, http.StatusOK, out)
}
