// Package handler implements the HTTP API of the carpool scheduler.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, trips.go, slots.go, ...) and share the Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pkordes/carpool/internal/domain"
)

// SlotServicer defines the scheduling operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type SlotServicer interface {
	ScheduleTrip(ctx context.Context, in domain.TripInput) (domain.VehicleAssignment, error)
	ListWeek(ctx context.Context, groupID uuid.UUID, week, timezone string) ([]domain.Slot, error)
	GetDetail(ctx context.Context, slotID uuid.UUID) (domain.SlotDetail, error)
	Conflicts(ctx context.Context, slotID uuid.UUID) ([]string, error)
	UnbindVehicle(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.UnbindResult, error)
	AssignChild(ctx context.Context, slotID, childID, assignmentID uuid.UUID) (domain.ChildAssignment, error)
	RemoveChild(ctx context.Context, slotID, childID uuid.UUID) error
	SetDriver(ctx context.Context, assignmentID uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error)
	SetOverride(ctx context.Context, assignmentID uuid.UUID, seats *int) (domain.VehicleAssignment, error)
	LocalPattern(pattern map[string][]string, timezone string, ref time.Time) (map[string][]string, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	slots    SlotServicer
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewServer constructs the Server. now supplies the reference time for
// requests that do not name a week; pass time.Now in production.
func NewServer(slots SlotServicer, log *slog.Logger, now func() time.Time) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{slots: slots, log: log, validate: v, now: now}
}

// Routes registers every API endpoint on a new chi router.
// Cross-cutting middleware (request id, logging, CORS, body limits) is
// applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	r.Post("/groups/{groupId}/trips", s.CreateTrip)
	r.Get("/groups/{groupId}/slots", s.ListSlots)

	r.Route("/slots/{slotId}", func(r chi.Router) {
		r.Get("/", s.GetSlot)
		r.Get("/conflicts", s.GetSlotConflicts)
		r.Delete("/vehicles/{vehicleId}", s.UnbindVehicle)
		r.Post("/children", s.AssignChild)
		r.Delete("/children/{childId}", s.RemoveChild)
	})

	r.Put("/vehicle-assignments/{assignmentId}/driver", s.SetDriver)
	r.Put("/vehicle-assignments/{assignmentId}/seat-override", s.SetSeatOverride)

	r.Post("/schedule/local-pattern", s.LocalPattern)

	return r
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, slog.Default(), time.Now)
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
