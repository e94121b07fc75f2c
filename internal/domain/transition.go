package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TransitionRecord is one append-only audit entry. From is empty for the creating entry.
type TransitionRecord struct {
	bun.BaseModel `bun:"table:appointment_transitions"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	AppointmentID uuid.UUID `bun:"appointment_id,notnull,type:uuid"`
	Kind          string    `bun:"kind,notnull"`
	FromStatus    Status    `bun:"from_status"`
	ToStatus      Status    `bun:"to_status,notnull"`
	Actor         Actor     `bun:"actor,notnull"`
	Reason        string    `bun:"reason"`
	OccurredAt    time.Time `bun:"occurred_at,notnull"`
}

const (
	RecordCreated     = "created"
	RecordStatus      = "status"
	RecordRescheduled = "rescheduled"
)

func (r *TransitionRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if r.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id
	}
	if r.OccurredAt.IsZero() {
		r.OccurredAt = time.Now().UTC()
	}
	return nil
}
