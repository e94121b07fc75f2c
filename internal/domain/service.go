package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service is a bookable offering. The engine only reads it.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid"`
	Name            string     `bun:"name,notnull"`
	Description     string     `bun:"description"`
	DurationMinutes int        `bun:"duration_minutes,notnull"`
	PriceCents      int64      `bun:"price_cents,notnull"`
	Modalities      []Modality `bun:"modalities,array,notnull"`
	Active          bool       `bun:"is_active,notnull"`
	SortOrder       int        `bun:"sort_order,notnull"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull"`
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			s.ID = id
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}

// Allows reports whether m is offered. A service without modalities accepts any.
func (s Service) Allows(m Modality) bool {
	if len(s.Modalities) == 0 {
		return true
	}
	for _, allowed := range s.Modalities {
		if allowed == m {
			return true
		}
	}
	return false
}
