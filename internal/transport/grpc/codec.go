package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/calendar"
)

type fields map[string]*structpb.Value

func fieldsOf(req *structpb.Struct) fields {
	return fields(req.GetFields())
}

func (f fields) has(name string) bool {
	v, ok := f[name]
	if !ok || v == nil {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (f fields) str(name string) string {
	return strings.TrimSpace(f[name].GetStringValue())
}

func (f fields) boolean(name string) bool {
	return f[name].GetBoolValue()
}

func (f fields) date(name string) (time.Time, error) {
	raw := f.str(name)
	if raw == "" {
		return time.Time{}, domain.Invalid(name, "is required")
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.Invalid(name, "must be YYYY-MM-DD")
	}
	return d, nil
}

func (f fields) timeOfDay(name string) (domain.TimeOfDay, error) {
	raw := f.str(name)
	if raw == "" {
		return 0, domain.Invalid(name, "is required")
	}
	t, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		return 0, domain.Invalid(name, "must be HH:MM")
	}
	return t, nil
}

func (f fields) optionalTimeOfDay(name string) (*domain.TimeOfDay, error) {
	if !f.has(name) || f.str(name) == "" {
		return nil, nil
	}
	t, err := f.timeOfDay(name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (f fields) id(name string) (uuid.UUID, error) {
	raw := f.str(name)
	if raw == "" {
		return uuid.Nil, domain.Invalid(name, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Invalid(name, "must be a UUID")
	}
	return id, nil
}

func firstMetadata(ctx context.Context, keys ...string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, k := range keys {
		if values := md.Get(k); len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}

func idempotencyKey(ctx context.Context) string {
	return firstMetadata(ctx, "idempotency-key", "x-idempotency-key")
}

// actorFrom reads x-actor; callers without one act as clients.
func actorFrom(ctx context.Context) (domain.Actor, error) {
	raw := firstMetadata(ctx, "x-actor")
	if raw == "" {
		return domain.ActorClient, nil
	}
	actor, ok := domain.ParseActor(strings.ToLower(raw))
	if !ok {
		return "", domain.Invalid("x-actor", "must be client, admin or system")
	}
	return actor, nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func appointmentValue(a domain.Appointment) map[string]any {
	out := map[string]any{
		"id":               a.ID.String(),
		"provider_id":      a.ProviderID,
		"service_id":       a.ServiceID.String(),
		"date":             domain.FormatDate(a.Date),
		"start":            a.Start.String(),
		"end":              a.End().String(),
		"duration_minutes": a.DurationMinutes,
		"client_name":      a.ClientName,
		"client_email":     a.ClientEmail,
		"client_phone":     a.ClientPhone,
		"client_pronouns":  a.ClientPronouns,
		"client_message":   a.ClientMessage,
		"consent_accepted": a.ConsentAccepted,
		"modality":         string(a.Modality),
		"status":           string(a.Status),
		"admin_notes":      a.AdminNotes,
		"created_at":       timestamp(a.CreatedAt),
		"updated_at":       timestamp(a.UpdatedAt),
	}
	if a.CancelledAt != nil {
		out["cancelled_at"] = timestamp(*a.CancelledAt)
	}
	return out
}

func transitionValue(r domain.TransitionRecord) map[string]any {
	return map[string]any{
		"id":             r.ID.String(),
		"appointment_id": r.AppointmentID.String(),
		"kind":           r.Kind,
		"from_status":    string(r.FromStatus),
		"to_status":      string(r.ToStatus),
		"actor":          string(r.Actor),
		"reason":         r.Reason,
		"occurred_at":    timestamp(r.OccurredAt),
	}
}

func blockValue(b domain.BlockedInterval) map[string]any {
	out := map[string]any{
		"id":          b.ID.String(),
		"provider_id": b.ProviderID,
		"date":        domain.FormatDate(b.Date),
		"full_day":    b.FullDay(),
		"reason":      b.Reason,
		"created_at":  timestamp(b.CreatedAt),
	}
	if !b.FullDay() {
		span := b.Span()
		out["start"] = span.Start.String()
		out["end"] = span.End.String()
	}
	return out
}

func slotValue(s domain.Slot) map[string]any {
	return map[string]any{
		"date":             domain.FormatDate(s.Date),
		"start":            s.Start.String(),
		"end":              s.Span().End.String(),
		"duration_minutes": s.DurationMinutes,
		"available":        s.Available,
	}
}

func serviceValue(s domain.Service) map[string]any {
	modalities := make([]any, 0, len(s.Modalities))
	for _, m := range s.Modalities {
		modalities = append(modalities, string(m))
	}
	return map[string]any{
		"id":               s.ID.String(),
		"name":             s.Name,
		"description":      s.Description,
		"duration_minutes": s.DurationMinutes,
		"price_cents":      s.PriceCents,
		"modalities":       modalities,
		"sort_order":       s.SortOrder,
	}
}

func weekValue(v calendar.WeekView) map[string]any {
	days := make([]any, 0, len(v.Days))
	for _, d := range v.Days {
		days = append(days, map[string]any{
			"date":          domain.FormatDate(d.Date),
			"weekday":       d.Date.Weekday().String(),
			"closed":        d.Closed,
			"fully_blocked": d.FullyBlocked,
			"appointments":  listOf(d.Appointments, appointmentValue),
			"blocks":        listOf(d.Blocks, blockValue),
			"slots":         listOf(d.Slots, slotValue),
		})
	}
	return map[string]any{
		"provider_id": v.ProviderID,
		"week_start":  domain.FormatDate(v.WeekStart),
		"days":        days,
	}
}

func listOf[T any](items []T, encode func(T) map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, encode(it))
	}
	return out
}
