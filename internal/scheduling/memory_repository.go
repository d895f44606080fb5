package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by the test suite and by
// single-node deployments that run without Postgres. One mutex guards all
// state, so CreateAppointmentWithBlocks has the same all-or-nothing contract
// as the transactional implementation.
type MemoryRepository struct {
	mu sync.RWMutex

	orgs         map[uuid.UUID]Organization
	employees    map[uuid.UUID]Employee
	services     map[uuid.UUID]ServiceOffering
	blocks       map[uuid.UUID]Block
	closures     map[uuid.UUID]OrgClosure
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	nextEventID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orgs:         make(map[uuid.UUID]Organization),
		employees:    make(map[uuid.UUID]Employee),
		services:     make(map[uuid.UUID]ServiceOffering),
		blocks:       make(map[uuid.UUID]Block),
		closures:     make(map[uuid.UUID]OrgClosure),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

// Seed helpers, used by tests and the in-memory mode of the API server.

func (r *MemoryRepository) AddOrganization(o Organization) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgs[o.ID] = o
}

func (r *MemoryRepository) AddEmployee(e Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[e.ID] = e
}

func (r *MemoryRepository) AddService(s ServiceOffering) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ID] = s
}

func (r *MemoryRepository) AddClosure(c OrgClosure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closures[c.ID] = c
}

// Interface methods

func (r *MemoryRepository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Organization, 0, len(r.orgs))
	for _, o := range r.orgs {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (r *MemoryRepository) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return &e, nil
}

func (r *MemoryRepository) GetServicesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]ServiceOffering, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ServiceOffering, 0, len(ids))
	for _, id := range ids {
		s, ok := r.services[id]
		if !ok || s.OrgID != orgID {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
		}
		result = append(result, s)
	}
	return result, nil
}

func (r *MemoryRepository) ListBlocksInRange(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Block
	for _, b := range r.blocks {
		if b.EmployeeID != employeeID {
			continue
		}
		if b.Start.Before(to) && b.End.After(from) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (r *MemoryRepository) GetBlockByID(ctx context.Context, id uuid.UUID) (*Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blocks[id]
	if !ok {
		return nil, ErrBlockNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) CreateBlock(ctx context.Context, b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *b
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.blocks[stored.ID] = stored
	return nil
}

func (r *MemoryRepository) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blocks[id]; !ok {
		return ErrBlockNotFound
	}
	delete(r.blocks, id)
	return nil
}

func (r *MemoryRepository) DeleteBlocksByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, b := range r.blocks {
		if b.AppointmentID != nil && *b.AppointmentID == appointmentID {
			delete(r.blocks, id)
		}
	}
	return nil
}

func (r *MemoryRepository) ListClosuresInRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]OrgClosure, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromDay := truncateToDay(from)
	toDay := truncateToDay(to)

	var result []OrgClosure
	for _, c := range r.closures {
		if c.OrgID != orgID || !c.Active {
			continue
		}
		if !truncateToDay(c.StartDate).After(toDay) && !truncateToDay(c.EndDate).Before(fromDay) {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (r *MemoryRepository) UpsertImportedClosure(ctx context.Context, c *OrgClosure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.closures {
		if existing.OrgID == c.OrgID && existing.Origin == c.Origin && existing.StartDate.Equal(c.StartDate) {
			existing.EndDate = c.EndDate
			existing.Active = c.Active
			existing.YearRef = c.YearRef
			existing.UpdatedAt = time.Now()
			r.closures[id] = existing
			return nil
		}
	}
	stored := *c
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.closures[stored.ID] = stored
	return nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) FindAppointmentsNear(ctx context.Context, employeeID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.Status.IsTerminal() {
			continue
		}
		assigned := false
		for _, id := range a.EmployeeIDs {
			if id == employeeID {
				assigned = true
				break
			}
		}
		if !assigned {
			continue
		}
		if a.Start.Before(to) && a.Start.After(from.Add(-24*time.Hour)) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (r *MemoryRepository) CreateAppointmentWithBlocks(ctx context.Context, a *Appointment, blocks []Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *a
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.appointments[stored.ID] = stored

	for _, b := range blocks {
		b.CreatedAt = now
		b.UpdatedAt = now
		r.blocks[b.ID] = b
	}
	return nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEventID++
	ev.ID = r.nextEventID
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

// LocalLocker satisfies Locker with per-key in-process mutexes. Unlike the
// Redis locker it blocks until the key frees up, which is the behavior a
// single node wants.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}
