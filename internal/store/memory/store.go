// Package memory is a process-local store with the same locking contract as the PostgreSQL one.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	appts       map[uuid.UUID]domain.Appointment
	blocks      map[uuid.UUID]domain.BlockedInterval
	transitions map[uuid.UUID][]domain.TransitionRecord
	services    map[uuid.UUID]domain.Service

	locks *keyedLocks

	faultMu sync.Mutex
	fault   func(op string) error
}

var (
	_ store.AppointmentStore = (*Store)(nil)
	_ store.ServiceCatalog   = (*Store)(nil)
)

func New(services ...domain.Service) *Store {
	s := &Store{
		appts:       make(map[uuid.UUID]domain.Appointment),
		blocks:      make(map[uuid.UUID]domain.BlockedInterval),
		transitions: make(map[uuid.UUID][]domain.TransitionRecord),
		services:    make(map[uuid.UUID]domain.Service),
		locks:       newKeyedLocks(),
	}
	for _, svc := range services {
		s.PutService(svc)
	}
	return s
}

// SetFaultHook installs a function consulted at the start of every transaction. A non-nil
// return aborts the transaction with that error.
func (s *Store) SetFaultHook(fn func(op string) error) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

func (s *Store) injected(op string) error {
	s.faultMu.Lock()
	fn := s.fault
	s.faultMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(op)
}

func (s *Store) PutService(svc domain.Service) domain.Service {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.Must(uuid.NewV7())
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now
	s.mu.Lock()
	s.services[svc.ID] = svc
	s.mu.Unlock()
	return svc
}

func (s *Store) GetService(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	s.mu.RLock()
	out := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		if activeOnly && !svc.Active {
			continue
		}
		out = append(out, svc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) InScheduleTransaction(ctx context.Context, providerID string, dates []time.Time, fn store.TxFunc) error {
	if err := s.injected("schedule"); err != nil {
		return err
	}
	scope := store.Scope{ProviderID: providerID, Dates: store.SortedDates(dates)}
	tx := s.begin(scope)
	defer tx.release()

	for _, d := range scope.Dates {
		key := "schedule:" + store.ScopeKey(providerID, d)
		if err := s.locks.lock(ctx, key); err != nil {
			return err
		}
		tx.held = append(tx.held, key)
	}
	return tx.run(ctx, fn)
}

func (s *Store) InRecordTransaction(ctx context.Context, fn store.TxFunc) error {
	if err := s.injected("record"); err != nil {
		return err
	}
	tx := s.begin(store.Scope{})
	defer tx.release()
	return tx.run(ctx, fn)
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, providerID string, r domain.DateRange) ([]domain.Appointment, error) {
	s.mu.RLock()
	var out []domain.Appointment
	for _, a := range s.appts {
		if a.ProviderID == providerID && r.Contains(a.Date) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortAppointments(out)
	return out, nil
}

func (s *Store) ListBlockedIntervals(ctx context.Context, providerID string, r domain.DateRange) ([]domain.BlockedInterval, error) {
	s.mu.RLock()
	var out []domain.BlockedInterval
	for _, b := range s.blocks {
		if b.ProviderID == providerID && r.Contains(b.Date) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()
	sortBlocks(out)
	return out, nil
}

func (s *Store) GetBlockedInterval(ctx context.Context, id uuid.UUID) (domain.BlockedInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok {
		return domain.BlockedInterval{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListTransitions(ctx context.Context, appointmentID uuid.UUID) ([]domain.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TransitionRecord(nil), s.transitions[appointmentID]...), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.injected("ping")
}

func sortAppointments(rows []domain.Appointment) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		if rows[i].Start != rows[j].Start {
			return rows[i].Start < rows[j].Start
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
}

func sortBlocks(rows []domain.BlockedInterval) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		if rows[i].FullDay() != rows[j].FullDay() {
			return rows[i].FullDay()
		}
		if rows[i].Span().Start != rows[j].Span().Start {
			return rows[i].Span().Start < rows[j].Span().Start
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})
}
