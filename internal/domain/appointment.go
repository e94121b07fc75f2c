package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Modality string

const (
	ModalityOnline   Modality = "online"
	ModalityInPerson Modality = "in_person"
)

func ParseModality(s string) (Modality, bool) {
	switch Modality(s) {
	case ModalityOnline, ModalityInPerson:
		return Modality(s), true
	}
	return "", false
}

type Actor string

const (
	ActorClient Actor = "client"
	ActorAdmin  Actor = "admin"
	ActorSystem Actor = "system"
)

func ParseActor(s string) (Actor, bool) {
	switch Actor(s) {
	case ActorClient, ActorAdmin, ActorSystem:
		return Actor(s), true
	}
	return "", false
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid"`
	ProviderID      string     `bun:"provider_id,notnull"`
	ServiceID       uuid.UUID  `bun:"service_id,notnull,type:uuid"`
	Date            time.Time  `bun:"appointment_date,notnull,type:date"`
	Start           TimeOfDay  `bun:"start_minute,notnull"`
	DurationMinutes int        `bun:"duration_minutes,notnull"`
	ClientName      string     `bun:"client_name,notnull"`
	ClientEmail     string     `bun:"client_email"`
	ClientPhone     string     `bun:"client_phone"`
	ClientPronouns  string     `bun:"client_pronouns"`
	ClientMessage   string     `bun:"client_message"`
	ConsentAccepted bool       `bun:"consent_accepted,notnull"`
	Modality        Modality   `bun:"modality,notnull"`
	Status          Status     `bun:"status,notnull"`
	AdminNotes      string     `bun:"admin_notes"`
	CancelledAt     *time.Time `bun:"cancelled_at"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// End is the first minute after the appointment.
func (a Appointment) End() TimeOfDay {
	return a.Start.Add(a.DurationMinutes)
}

// Span is the occupied interval on the appointment's date.
func (a Appointment) Span() Span {
	return Span{Start: a.Start, End: a.End()}
}

// StartsAt resolves the appointment start to an instant in loc.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Start.On(a.Date, loc)
}

// SameBooking reports whether two appointments describe the same reservation request.
// Used to accept idempotent replays.
func (a Appointment) SameBooking(b Appointment) bool {
	return a.ProviderID == b.ProviderID &&
		a.ServiceID == b.ServiceID &&
		SameDate(a.Date, b.Date) &&
		a.Start == b.Start &&
		a.DurationMinutes == b.DurationMinutes &&
		a.ClientName == b.ClientName &&
		a.ClientEmail == b.ClientEmail &&
		a.ClientPhone == b.ClientPhone &&
		a.Modality == b.Modality
}
