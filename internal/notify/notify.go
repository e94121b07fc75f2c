// Package notify hands status transitions to the delivery side. Delivery itself happens elsewhere.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

const EventStatusChanged = "appointment.status_changed"

type Event struct {
	ID            uuid.UUID       `json:"event_id"`
	Type          string          `json:"event_type"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	ProviderID    string          `json:"provider_id"`
	FromStatus    domain.Status   `json:"from_status,omitempty"`
	ToStatus      domain.Status   `json:"to_status"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Modality      domain.Modality `json:"modality"`
	Actor         domain.Actor    `json:"actor"`
}

// StatusChanged builds the event for a committed transition. From is empty on creation.
func StatusChanged(appt domain.Appointment, from domain.Status, actor domain.Actor, at time.Time) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:            id,
		Type:          EventStatusChanged,
		AppointmentID: appt.ID,
		ProviderID:    appt.ProviderID,
		FromStatus:    from,
		ToStatus:      appt.Status,
		OccurredAt:    at.UTC(),
		Modality:      appt.Modality,
		Actor:         actor,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// LogPublisher records events in the log only. Used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(slog.String("component", "notify"))}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.log.InfoContext(ctx, "appointment status changed",
		slog.String("event_id", ev.ID.String()),
		slog.String("appointment_id", ev.AppointmentID.String()),
		slog.String("from", string(ev.FromStatus)),
		slog.String("to", string(ev.ToStatus)),
		slog.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
