package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/carpool/internal/capacity"
	"github.com/pkordes/carpool/internal/domain"
	"github.com/pkordes/carpool/internal/repo"
)

// memStore is an in-memory repo.Store with the same constraint and
// conditional-write semantics as the Postgres schema. Transactions are
// serialized and run on a copy that replaces the live state on success, so a
// failed transaction leaves nothing behind.
type memStore struct {
	mu    sync.Mutex // guards state
	txMu  sync.Mutex // serializes transactions
	state *memState

	// failChildCreate, when set, makes ChildAssignmentRepo.Create fail after
	// every check has passed.
	failChildCreate error
}

type memState struct {
	seq      int
	groups   map[uuid.UUID]domain.Group
	vehicles map[uuid.UUID]domain.Vehicle
	drivers  map[uuid.UUID]domain.Driver
	children map[uuid.UUID]domain.Child
	slots    map[uuid.UUID]domain.Slot
	vas      map[uuid.UUID]domain.VehicleAssignment
	cas      map[uuid.UUID]domain.ChildAssignment
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newMemStore() *memStore {
	return &memStore{state: &memState{
		groups:   map[uuid.UUID]domain.Group{},
		vehicles: map[uuid.UUID]domain.Vehicle{},
		drivers:  map[uuid.UUID]domain.Driver{},
		children: map[uuid.UUID]domain.Child{},
		slots:    map[uuid.UUID]domain.Slot{},
		vas:      map[uuid.UUID]domain.VehicleAssignment{},
		cas:      map[uuid.UUID]domain.ChildAssignment{},
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		seq:      s.seq,
		groups:   make(map[uuid.UUID]domain.Group, len(s.groups)),
		vehicles: make(map[uuid.UUID]domain.Vehicle, len(s.vehicles)),
		drivers:  make(map[uuid.UUID]domain.Driver, len(s.drivers)),
		children: make(map[uuid.UUID]domain.Child, len(s.children)),
		slots:    make(map[uuid.UUID]domain.Slot, len(s.slots)),
		vas:      make(map[uuid.UUID]domain.VehicleAssignment, len(s.vas)),
		cas:      make(map[uuid.UUID]domain.ChildAssignment, len(s.cas)),
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range s.drivers {
		c.drivers[k] = v
	}
	for k, v := range s.children {
		c.children[k] = v
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for k, v := range s.vas {
		c.vas[k] = v
	}
	for k, v := range s.cas {
		c.cas[k] = v
	}
	return c
}

func (s *memState) next() time.Time {
	s.seq++
	return epoch.Add(time.Duration(s.seq) * time.Second)
}

func (m *memStore) Repos() repo.Repos {
	return m.view(&m.mu, m.state)
}

// InTx runs transactions one at a time on a copy of the state. Tests on this
// store see commit order, never interleaving; races run in postgres_test.go.
func (m *memStore) InTx(ctx context.Context, fn func(repo.Repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	work := m.state.clone()
	m.mu.Unlock()

	if err := fn(m.view(&sync.Mutex{}, work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	*m.state = *work
	m.mu.Unlock()
	return nil
}

func (m *memStore) view(mu *sync.Mutex, st *memState) repo.Repos {
	v := &memView{mu: mu, st: st, store: m}
	return repo.Repos{
		Slots:     memSlots{v},
		Vehicles:  memVehicles{v},
		Children:  memChildren{v},
		Directory: memDirectory{v},
	}
}

var _ repo.Store = (*memStore)(nil)

type memView struct {
	mu    *sync.Mutex
	st    *memState
	store *memStore
}

// withCapacity joins the vehicle's registered capacity like the SQL repo does.
func (v *memView) withCapacity(a domain.VehicleAssignment) domain.VehicleAssignment {
	a.VehicleCapacity = v.st.vehicles[a.VehicleID].Capacity
	return a
}

func (v *memView) countChildren(vaID uuid.UUID) int {
	n := 0
	for _, c := range v.st.cas {
		if c.VehicleAssignmentID == vaID {
			n++
		}
	}
	return n
}

// ---- seeding ---------------------------------------------------------------

func (m *memStore) addGroup(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.groups[id] = domain.Group{ID: id, Name: name}
	return id
}

func (m *memStore) addVehicle(groupID uuid.UUID, name string, capacity int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.vehicles[id] = domain.Vehicle{ID: id, GroupID: groupID, Name: name, Capacity: capacity}
	return id
}

func (m *memStore) addDriver(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.drivers[id] = domain.Driver{ID: id, Name: name}
	return id
}

func (m *memStore) addChild(groupID uuid.UUID, name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.state.children[id] = domain.Child{ID: id, GroupID: groupID, Name: name}
	return id
}

// corrupt edits stored rows directly, the way a manual data fix would.
func (m *memStore) corrupt(fn func(st *memState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

func (m *memStore) slotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.slots)
}

// ---- SlotRepo --------------------------------------------------------------

type memSlots struct{ *memView }

func (r memSlots) Upsert(_ context.Context, groupID uuid.UUID, startsAt time.Time) (domain.Slot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.groups[groupID]; !ok {
		return domain.Slot{}, false, domain.ErrNotFound
	}
	for _, s := range r.st.slots {
		if s.GroupID == groupID && s.StartsAt.Equal(startsAt) {
			return s, false, nil
		}
	}
	s := domain.Slot{ID: uuid.New(), GroupID: groupID, StartsAt: startsAt.UTC(), CreatedAt: r.st.next()}
	r.st.slots[s.ID] = s
	return s, true, nil
}

func (r memSlots) GetByID(_ context.Context, id uuid.UUID) (domain.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.st.slots[id]
	if !ok {
		return domain.Slot{}, domain.ErrNotFound
	}
	return s, nil
}

func (r memSlots) Lock(ctx context.Context, id uuid.UUID) (domain.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r memSlots) DeleteIfEmpty(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.slots[id]; !ok {
		return false, nil
	}
	for _, va := range r.st.vas {
		if va.SlotID == id {
			return false, nil
		}
	}
	delete(r.st.slots, id)
	return true, nil
}

func (r memSlots) ListByGroup(_ context.Context, groupID uuid.UUID, from, to time.Time) ([]domain.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Slot{}
	for _, s := range r.st.slots {
		if s.GroupID == groupID && !s.StartsAt.Before(from) && s.StartsAt.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// ---- VehicleAssignmentRepo -------------------------------------------------

type memVehicles struct{ *memView }

func (r memVehicles) Create(_ context.Context, a domain.VehicleAssignment) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.slots[a.SlotID]; !ok {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	if _, ok := r.st.vehicles[a.VehicleID]; !ok {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	if a.DriverID != nil {
		if _, ok := r.st.drivers[*a.DriverID]; !ok {
			return domain.VehicleAssignment{}, domain.ErrNotFound
		}
	}
	for _, existing := range r.st.vas {
		if existing.SlotID == a.SlotID && existing.VehicleID == a.VehicleID {
			return domain.VehicleAssignment{}, fmt.Errorf("%w: vehicle_assignments_slot_vehicle_key", domain.ErrAlreadyExists)
		}
	}
	a.ID = uuid.New()
	a.OccupiedSeats = 0
	a.Version = 0
	a.CreatedAt = r.st.next()
	a.UpdatedAt = a.CreatedAt
	r.st.vas[a.ID] = a
	return r.withCapacity(a), nil
}

func (r memVehicles) GetByID(_ context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.st.vas[id]
	if !ok {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	return r.withCapacity(a), nil
}

func (r memVehicles) GetBySlotAndVehicle(_ context.Context, slotID, vehicleID uuid.UUID) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.st.vas {
		if a.SlotID == slotID && a.VehicleID == vehicleID {
			return r.withCapacity(a), nil
		}
	}
	return domain.VehicleAssignment{}, domain.ErrNotFound
}

func (r memVehicles) ListBySlot(_ context.Context, slotID uuid.UUID) ([]domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.VehicleAssignment{}
	for _, a := range r.st.vas {
		if a.SlotID == slotID {
			out = append(out, r.withCapacity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memVehicles) SetDriver(_ context.Context, id uuid.UUID, driverID *uuid.UUID) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.st.vas[id]
	if !ok {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	if driverID != nil {
		if _, ok := r.st.drivers[*driverID]; !ok {
			return domain.VehicleAssignment{}, domain.ErrNotFound
		}
	}
	a.DriverID = driverID
	r.st.vas[id] = a
	return r.withCapacity(a), nil
}

func (r memVehicles) SetOverride(_ context.Context, id uuid.UUID, seats *int) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.st.vas[id]
	if !ok {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	trial := r.withCapacity(a)
	if !capacity.Fits(trial, seats, a.OccupiedSeats) || !capacity.Fits(trial, seats, r.countChildren(id)) {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	a.SeatOverride = seats
	a.Version++
	r.st.vas[id] = a
	return r.withCapacity(a), nil
}

func (r memVehicles) ReserveSeat(_ context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.st.vas[id]
	if !ok || a.OccupiedSeats >= capacity.Effective(r.withCapacity(a)) {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	a.OccupiedSeats++
	a.Version++
	r.st.vas[id] = a
	return r.withCapacity(a), nil
}

func (r memVehicles) ReleaseSeat(_ context.Context, id uuid.UUID) (domain.VehicleAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.st.vas[id]
	if !ok || a.OccupiedSeats == 0 {
		return domain.VehicleAssignment{}, domain.ErrNotFound
	}
	a.OccupiedSeats--
	a.Version++
	r.st.vas[id] = a
	return r.withCapacity(a), nil
}

func (r memVehicles) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.st.vas[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.st.vas, id)
	for cid, c := range r.st.cas {
		if c.VehicleAssignmentID == id {
			delete(r.st.cas, cid)
		}
	}
	return nil
}

// ---- ChildAssignmentRepo ---------------------------------------------------

type memChildren struct{ *memView }

func (r memChildren) Create(_ context.Context, c domain.ChildAssignment) (domain.ChildAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store.failChildCreate != nil {
		return domain.ChildAssignment{}, r.store.failChildCreate
	}
	if _, ok := r.st.vas[c.VehicleAssignmentID]; !ok {
		return domain.ChildAssignment{}, domain.ErrNotFound
	}
	if _, ok := r.st.children[c.ChildID]; !ok {
		return domain.ChildAssignment{}, domain.ErrNotFound
	}
	for _, existing := range r.st.cas {
		if existing.SlotID == c.SlotID && existing.ChildID == c.ChildID {
			return domain.ChildAssignment{}, fmt.Errorf("%w: child_assignments_slot_child_key", domain.ErrAlreadyExists)
		}
	}
	c.ID = uuid.New()
	c.CreatedAt = r.st.next()
	r.st.cas[c.ID] = c
	return c, nil
}

func (r memChildren) GetBySlotAndChild(_ context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.st.cas {
		if c.SlotID == slotID && c.ChildID == childID {
			return c, nil
		}
	}
	return domain.ChildAssignment{}, domain.ErrNotFound
}

func (r memChildren) DeleteBySlotAndChild(_ context.Context, slotID, childID uuid.UUID) (domain.ChildAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.st.cas {
		if c.SlotID == slotID && c.ChildID == childID {
			delete(r.st.cas, id)
			return c, nil
		}
	}
	return domain.ChildAssignment{}, domain.ErrNotFound
}

func (r memChildren) DeleteByVehicleAssignment(_ context.Context, vaID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.st.cas {
		if c.VehicleAssignmentID == vaID {
			delete(r.st.cas, id)
			n++
		}
	}
	return n, nil
}

func (r memChildren) ListBySlot(_ context.Context, slotID uuid.UUID) ([]domain.ChildAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ChildAssignment{}
	for _, c := range r.st.cas {
		if c.SlotID == slotID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ---- DirectoryRepo ---------------------------------------------------------

type memDirectory struct{ *memView }

func (r memDirectory) GetGroup(_ context.Context, id uuid.UUID) (domain.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.st.groups[id]
	if !ok {
		return domain.Group{}, domain.ErrNotFound
	}
	return g, nil
}

func (r memDirectory) GetVehicle(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.st.vehicles[id]
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return v, nil
}

func (r memDirectory) GetDriver(_ context.Context, id uuid.UUID) (domain.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.st.drivers[id]
	if !ok {
		return domain.Driver{}, domain.ErrNotFound
	}
	return d, nil
}

func (r memDirectory) GetChild(_ context.Context, id uuid.UUID) (domain.Child, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.st.children[id]
	if !ok {
		return domain.Child{}, domain.ErrNotFound
	}
	return c, nil
}

// ---- mockStore -------------------------------------------------------------

// mockStore is a hand-written test double for repo.Store used to inject
// failures the in-memory store cannot produce.
type mockStore struct {
	repos func() repo.Repos
	inTx  func(ctx context.Context, fn func(repo.Repos) error) error
}

func (m *mockStore) Repos() repo.Repos { return m.repos() }
func (m *mockStore) InTx(ctx context.Context, fn func(repo.Repos) error) error {
	return m.inTx(ctx, fn)
}

var _ repo.Store = (*mockStore)(nil)
