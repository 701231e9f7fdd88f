package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/handler"
)

// mockSlotService is a hand-written test double for handler.SlotServicer.
// Each method delegates to the matching func field; tests set only the ones
// they exercise.
type mockSlotService struct {
	scheduleTrip  func(ctx context.Context, in domain.TripInput) (domain.VehicleAssignment, error)
	listWeek      func(ctx context.Context, groupID uuid.UUID, week, timezone string) ([]domain.Slot, error)
	getDetail     func(ctx context.Context, slotID uuid.UUID) (domain.SlotDetail, error)
	conflicts     func(ctx context.Context, slotID uuid.UUID) ([]string, error)
	unbindVehicle func(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.UnbindResult, error)
	assignChild   func(ctx context.Context, slotID, childID, assignmentID uuid.UUID) (domain.ChildAssignment, error)
	removeChild   func(ctx context.Context, slotID, childID uuid.UUID) error
	setDriver     func(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error)
	setOverride   func(ctx context.Context, id uuid.UUID, seats *int) (domain.VehicleAssignment, error)
	localPattern  func(pattern map[string][]string, timezone string, ref time.Time) (map[string][]string, error)
}

func (m *mockSlotService) ScheduleTrip(ctx context.Context, in domain.TripInput) (domain.VehicleAssignment, error) {
	return m.scheduleTrip(ctx, in)
}
func (m *mockSlotService) ListWeek(ctx context.Context, groupID uuid.UUID, week, timezone string) ([]domain.Slot, error) {
	return m.listWeek(ctx, groupID, week, timezone)
}
func (m *mockSlotService) GetDetail(ctx context.Context, slotID uuid.UUID) (domain.SlotDetail, error) {
	return m.getDetail(ctx, slotID)
}
func (m *mockSlotService) Conflicts(ctx context.Context, slotID uuid.UUID) ([]string, error) {
	return m.conflicts(ctx, slotID)
}
func (m *mockSlotService) UnbindVehicle(ctx context.Context, slotID, vehicleID uuid.UUID) (domain.UnbindResult, error) {
	return m.unbindVehicle(ctx, slotID, vehicleID)
}
func (m *mockSlotService) AssignChild(ctx context.Context, slotID, childID, assignmentID uuid.UUID) (domain.ChildAssignment, error) {
	return m.assignChild(ctx, slotID, childID, assignmentID)
}
func (m *mockSlotService) RemoveChild(ctx context.Context, slotID, childID uuid.UUID) error {
	return m.removeChild(ctx, slotID, childID)
}
func (m *mockSlotService) SetDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error) {
	return m.setDriver(ctx, id, driverID)
}
func (m *mockSlotService) SetOverride(ctx context.Context, id uuid.UUID, seats *int) (domain.VehicleAssignment, error) {
	return m.setOverride(ctx, id, seats)
}
func (m *mockSlotService) LocalPattern(pattern map[string][]string, timezone string, ref time.Time) (map[string][]string, error) {
	return m.localPattern(pattern, timezone, ref)
}

// compile-time check: mockSlotService must satisfy handler.SlotServicer.
var _ handler.SlotServicer = (*mockSlotService)(nil)

// fixedNow is the clock injected into every test server: Wednesday of ISO
// week 2025-26.
var fixedNow = time.Date(2025, 6, 25, 9, 0, 0, 0, time.UTC)

func newTestRouter(svc handler.SlotServicer) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(svc, logger, func() time.Time { return fixedNow }).Routes()
}

// do performs a request against h. body, when non-nil, is JSON-encoded.
func do(t *testing.T, h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(buf)
		}
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}
