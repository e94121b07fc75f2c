package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

// tx stages writes and applies them on commit. Reads see the staged state.
type tx struct {
	s     *Store
	scope store.Scope
	held  []string

	appts         map[uuid.UUID]domain.Appointment
	blocks        map[uuid.UUID]domain.BlockedInterval
	deletedBlocks map[uuid.UUID]bool
	transitions   []domain.TransitionRecord
}

func (s *Store) begin(scope store.Scope) *tx {
	return &tx{
		s:             s,
		scope:         scope,
		appts:         make(map[uuid.UUID]domain.Appointment),
		blocks:        make(map[uuid.UUID]domain.BlockedInterval),
		deletedBlocks: make(map[uuid.UUID]bool),
	}
}

func (t *tx) run(ctx context.Context, fn store.TxFunc) error {
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, a := range t.appts {
		t.s.appts[id] = a
	}
	for id := range t.deletedBlocks {
		delete(t.s.blocks, id)
	}
	for id, b := range t.blocks {
		t.s.blocks[id] = b
	}
	for _, rec := range t.transitions {
		t.s.transitions[rec.AppointmentID] = append(t.s.transitions[rec.AppointmentID], rec)
	}
}

// release drops locks in reverse acquisition order.
func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.unlock(t.held[i])
	}
	t.held = nil
}

func (t *tx) holds(key string) bool {
	for _, k := range t.held {
		if k == key {
			return true
		}
	}
	return false
}

func (t *tx) appointment(id uuid.UUID) (domain.Appointment, bool) {
	if a, ok := t.appts[id]; ok {
		return a, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.appts[id]
	return a, ok
}

func (t *tx) ListAppointments(ctx context.Context, providerID string, date time.Time) ([]domain.Appointment, error) {
	t.s.mu.RLock()
	var out []domain.Appointment
	for id, a := range t.s.appts {
		if _, staged := t.appts[id]; staged {
			continue
		}
		if a.ProviderID == providerID && domain.SameDate(a.Date, date) {
			out = append(out, a)
		}
	}
	t.s.mu.RUnlock()
	for _, a := range t.appts {
		if a.ProviderID == providerID && domain.SameDate(a.Date, date) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (t *tx) ListBlockedIntervals(ctx context.Context, providerID string, date time.Time) ([]domain.BlockedInterval, error) {
	t.s.mu.RLock()
	var out []domain.BlockedInterval
	for id, b := range t.s.blocks {
		if t.deletedBlocks[id] {
			continue
		}
		if b.ProviderID == providerID && domain.SameDate(b.Date, date) {
			out = append(out, b)
		}
	}
	t.s.mu.RUnlock()
	for _, b := range t.blocks {
		if b.ProviderID == providerID && domain.SameDate(b.Date, date) {
			out = append(out, b)
		}
	}
	sortBlocks(out)
	return out, nil
}

func (t *tx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	key := "record:" + id.String()
	if !t.holds(key) {
		if err := t.s.locks.lock(ctx, key); err != nil {
			return domain.Appointment{}, err
		}
		t.held = append(t.held, key)
	}
	a, ok := t.appointment(id)
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (t *tx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if !t.scope.Covers(appt.ProviderID, appt.Date) {
		return domain.Appointment{}, store.ErrOutsideScope
	}
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	} else if _, exists := t.appointment(appt.ID); exists {
		return domain.Appointment{}, store.ErrDuplicateID
	}
	if err := t.checkOverlap(ctx, appt); err != nil {
		return domain.Appointment{}, err
	}
	now := time.Now().UTC()
	appt.Date = domain.DateOf(appt.Date)
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	if appt.UpdatedAt.IsZero() {
		appt.UpdatedAt = now
	}
	t.appts[appt.ID] = appt
	return appt, nil
}

func (t *tx) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	current, ok := t.appointment(appt.ID)
	if !ok {
		return store.ErrNotFound
	}
	moved := !domain.SameDate(current.Date, appt.Date) || current.Start != appt.Start
	if moved && !t.scope.Covers(appt.ProviderID, appt.Date) {
		return store.ErrOutsideScope
	}
	if appt.Status.Active() && (moved || !current.Status.Active()) {
		if err := t.checkOverlap(ctx, appt); err != nil {
			return err
		}
	}
	// Only the mutable columns change, as in the SQL update.
	current.Date = domain.DateOf(appt.Date)
	current.Start = appt.Start
	current.Status = appt.Status
	current.AdminNotes = appt.AdminNotes
	current.CancelledAt = appt.CancelledAt
	current.UpdatedAt = time.Now().UTC()
	t.appts[appt.ID] = current
	return nil
}

// checkOverlap mirrors the exclusion constraint of the SQL schema.
func (t *tx) checkOverlap(ctx context.Context, appt domain.Appointment) error {
	if !appt.Status.Active() {
		return nil
	}
	existing, err := t.ListAppointments(ctx, appt.ProviderID, appt.Date)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == appt.ID || !other.Status.Active() {
			continue
		}
		if other.Span().Overlaps(appt.Span()) {
			return store.ErrConflict
		}
	}
	return nil
}

func (t *tx) AppendTransition(ctx context.Context, rec domain.TransitionRecord) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}
	t.transitions = append(t.transitions, rec)
	return nil
}

func (t *tx) InsertBlockedInterval(ctx context.Context, block domain.BlockedInterval) (domain.BlockedInterval, error) {
	if !t.scope.Covers(block.ProviderID, block.Date) {
		return domain.BlockedInterval{}, store.ErrOutsideScope
	}
	if block.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.BlockedInterval{}, err
		}
		block.ID = id
	}
	block.Date = domain.DateOf(block.Date)
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}
	t.blocks[block.ID] = block
	return block, nil
}

func (t *tx) DeletePartialBlocks(ctx context.Context, providerID string, date time.Time) (int, error) {
	if !t.scope.Covers(providerID, date) {
		return 0, store.ErrOutsideScope
	}
	current, err := t.ListBlockedIntervals(ctx, providerID, date)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range current {
		if b.FullDay() {
			continue
		}
		if err := t.DeleteBlockedInterval(ctx, b.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (t *tx) DeleteBlockedInterval(ctx context.Context, id uuid.UUID) error {
	if _, staged := t.blocks[id]; staged {
		delete(t.blocks, id)
		return nil
	}
	t.s.mu.RLock()
	_, ok := t.s.blocks[id]
	t.s.mu.RUnlock()
	if !ok || t.deletedBlocks[id] {
		return store.ErrNotFound
	}
	t.deletedBlocks[id] = true
	return nil
}
