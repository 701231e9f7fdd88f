package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/carpool/internal/schedule"
)

// LocalPattern handles POST /schedule/local-pattern.
// The returned pattern keeps the canonical English weekday keys; the labels
// map is the only localized part and follows the Accept-Language header.
func (s *Server) LocalPattern(w http.ResponseWriter, r *http.Request) {
	var body LocalPatternRequest
	if !s.decodeBody(w, r, &body) {
		return
	}

	ref := s.now()
	if body.Week != "" {
		week, err := schedule.ParseWeek(body.Week)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		// Midweek noon keeps the reference inside the week in any timezone.
		ref = week.Monday().Add(3*24*time.Hour + 12*time.Hour)
	}

	local, err := s.slots.LocalPattern(body.Pattern, body.Timezone, ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	all := schedule.Labels(r.Header.Get("Accept-Language"))
	labels := make(map[string]string, len(local))
	for key := range local {
		labels[key] = all[schedule.Weekday(key)]
	}
	writeJSON(w, http.StatusOK, LocalPatternResponse{Timezone: body.Timezone, Pattern: local, Labels: labels})
}
