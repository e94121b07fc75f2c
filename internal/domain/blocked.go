package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BlockedInterval is time the provider declared unavailable. Start and End are both nil for a
// full-day block and both set for a partial block.
type BlockedInterval struct {
	bun.BaseModel `bun:"table:blocked_intervals"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid"`
	ProviderID string     `bun:"provider_id,notnull"`
	Date       time.Time  `bun:"blocked_date,notnull,type:date"`
	Start      *TimeOfDay `bun:"start_minute"`
	End        *TimeOfDay `bun:"end_minute"`
	Reason     string     `bun:"reason"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
}

func (b *BlockedInterval) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (b BlockedInterval) FullDay() bool {
	return b.Start == nil && b.End == nil
}

// Span returns the blocked part of the day; a full-day block covers the whole day.
func (b BlockedInterval) Span() Span {
	if b.FullDay() || b.Start == nil || b.End == nil {
		return Span{Start: 0, End: MinutesPerDay}
	}
	return Span{Start: *b.Start, End: *b.End}
}
