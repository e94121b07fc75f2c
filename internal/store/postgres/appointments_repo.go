package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

type AppointmentRepo struct {
	db          *bun.DB
	lockTimeout time.Duration
}

type Option func(*AppointmentRepo)

// WithLockTimeout bounds how long a transaction waits for a schedule or record lock.
func WithLockTimeout(d time.Duration) Option {
	return func(r *AppointmentRepo) { r.lockTimeout = d }
}

func NewAppointmentRepo(db *bun.DB, opts ...Option) *AppointmentRepo {
	r := &AppointmentRepo{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ store.AppointmentStore = (*AppointmentRepo)(nil)

type scheduleTx struct {
	tx    bun.Tx
	scope store.Scope
}

func (r *AppointmentRepo) InScheduleTransaction(ctx context.Context, providerID string, dates []time.Time, fn store.TxFunc) error {
	scope := store.Scope{ProviderID: providerID, Dates: store.SortedDates(dates)}
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.setLockTimeout(ctx, tx); err != nil {
			return err
		}
		for _, d := range scope.Dates {
			if err := lockSchedule(ctx, tx, providerID, d); err != nil {
				return err
			}
		}
		return fn(ctx, scheduleTx{tx: tx, scope: scope})
	})
	return classify(err)
}

func (r *AppointmentRepo) InRecordTransaction(ctx context.Context, fn store.TxFunc) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.setLockTimeout(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
	return classify(err)
}

func (r *AppointmentRepo) setLockTimeout(ctx context.Context, tx bun.Tx) error {
	if r.lockTimeout <= 0 {
		return nil
	}
	_, err := tx.NewRaw(fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())).Exec(ctx)
	return err
}

func lockSchedule(ctx context.Context, tx bun.Tx, providerID string, date time.Time) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", store.ScopeKey(providerID, date)).Exec(ctx)
	return err
}

func (r *AppointmentRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().Model(&appt).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Appointment{}, classify(err)
	}
	return appt, nil
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, providerID string, dr domain.DateRange) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("appointment_date >= ?::date", domain.FormatDate(dr.From)).
		Where("appointment_date <= ?::date", domain.FormatDate(dr.To)).
		OrderExpr("appointment_date ASC, start_minute ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) ListBlockedIntervals(ctx context.Context, providerID string, dr domain.DateRange) ([]domain.BlockedInterval, error) {
	var rows []domain.BlockedInterval
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("blocked_date >= ?::date", domain.FormatDate(dr.From)).
		Where("blocked_date <= ?::date", domain.FormatDate(dr.To)).
		OrderExpr("blocked_date ASC, start_minute ASC NULLS FIRST, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) GetBlockedInterval(ctx context.Context, id uuid.UUID) (domain.BlockedInterval, error) {
	var b domain.BlockedInterval
	err := r.db.NewSelect().Model(&b).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.BlockedInterval{}, classify(err)
	}
	return b, nil
}

func (r *AppointmentRepo) ListTransitions(ctx context.Context, appointmentID uuid.UUID) ([]domain.TransitionRecord, error) {
	var rows []domain.TransitionRecord
	err := r.db.NewSelect().
		Model(&rows).
		Where("appointment_id = ?", appointmentID).
		OrderExpr("occurred_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r *AppointmentRepo) Ping(ctx context.Context) error {
	return classify(r.db.PingContext(ctx))
}

func (t scheduleTx) ListAppointments(ctx context.Context, providerID string, date time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := t.tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("appointment_date = ?::date", domain.FormatDate(date)).
		OrderExpr("start_minute ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t scheduleTx) ListBlockedIntervals(ctx context.Context, providerID string, date time.Time) ([]domain.BlockedInterval, error) {
	var rows []domain.BlockedInterval
	err := t.tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("blocked_date = ?::date", domain.FormatDate(date)).
		OrderExpr("start_minute ASC NULLS FIRST, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t scheduleTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, classify(err)
	}
	return appt, nil
}

func (t scheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if !t.scope.Covers(appt.ProviderID, appt.Date) {
		return domain.Appointment{}, store.ErrOutsideScope
	}
	m := appt
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, classify(err)
	}
	return m, nil
}

func (t scheduleTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) error {
	var (
		date  time.Time
		start domain.TimeOfDay
	)
	err := t.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Column("appointment_date", "start_minute").
		Where("id = ?", appt.ID).
		For("UPDATE").
		Limit(1).
		Scan(ctx, &date, &start)
	if err != nil {
		return classify(err)
	}
	moved := !domain.SameDate(date, appt.Date) || start != appt.Start
	if moved && !t.scope.Covers(appt.ProviderID, appt.Date) {
		return store.ErrOutsideScope
	}

	m := appt
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("appointment_date", "start_minute", "status", "admin_notes", "cancelled_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t scheduleTx) AppendTransition(ctx context.Context, rec domain.TransitionRecord) error {
	m := rec
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	return classify(err)
}

func (t scheduleTx) InsertBlockedInterval(ctx context.Context, block domain.BlockedInterval) (domain.BlockedInterval, error) {
	if !t.scope.Covers(block.ProviderID, block.Date) {
		return domain.BlockedInterval{}, store.ErrOutsideScope
	}
	m := block
	if _, err := t.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.BlockedInterval{}, classify(err)
	}
	return m, nil
}

func (t scheduleTx) DeletePartialBlocks(ctx context.Context, providerID string, date time.Time) (int, error) {
	if !t.scope.Covers(providerID, date) {
		return 0, store.ErrOutsideScope
	}
	res, err := t.tx.NewDelete().
		Model((*domain.BlockedInterval)(nil)).
		Where("provider_id = ?", providerID).
		Where("blocked_date = ?::date", domain.FormatDate(date)).
		Where("start_minute IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return 0, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (t scheduleTx) DeleteBlockedInterval(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.NewDelete().
		Model((*domain.BlockedInterval)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
