package grpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/blocks"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/booking"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/calendar"
)

type bookingService interface {
	Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	Transition(ctx context.Context, in booking.TransitionInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in booking.RescheduleInput) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListTransitions(ctx context.Context, id uuid.UUID) ([]domain.TransitionRecord, error)
}

type calendarService interface {
	GetWeekView(ctx context.Context, providerID string, anyDate time.Time) (calendar.WeekView, error)
	ListAvailableSlots(ctx context.Context, providerID string, date time.Time, serviceID uuid.UUID) ([]domain.Slot, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}

type blocksService interface {
	Create(ctx context.Context, in blocks.CreateInput) (domain.BlockedInterval, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type BookingServer struct {
	booking         bookingService
	calendar        calendarService
	blocks          blocksService
	defaultProvider string
	log             *slog.Logger
}

var _ BookingServiceServer = (*BookingServer)(nil)

// NewBookingServer wires the engine services. Requests without provider_id use defaultProvider.
func NewBookingServer(b bookingService, c calendarService, bl blocksService, defaultProvider string, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		booking:         b,
		calendar:        c,
		blocks:          bl,
		defaultProvider: defaultProvider,
		log:             log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) provider(f fields) string {
	if p := f.str("provider_id"); p != "" {
		return p
	}
	return s.defaultProvider
}

func respond(log *slog.Logger, body map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(body)
	if err != nil {
		log.Error("response encoding failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *BookingServer) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))
	f := fieldsOf(req)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment create", err)
	}
	date, err := f.date("date")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment create", err)
	}
	start, err := f.timeOfDay("start")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment create", err)
	}
	serviceID, err := f.id("service_id")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment create", err)
	}

	appt, err := s.booking.Create(ctx, booking.CreateInput{
		ProviderID:      s.provider(f),
		ServiceID:       serviceID,
		Date:            date,
		Start:           start,
		ClientName:      f.str("client_name"),
		ClientEmail:     f.str("client_email"),
		ClientPhone:     f.str("client_phone"),
		ClientPronouns:  f.str("client_pronouns"),
		ClientMessage:   f.str("client_message"),
		ConsentAccepted: f.boolean("consent_accepted"),
		Modality:        domain.Modality(f.str("modality")),
		Status:          domain.Status(f.str("status")),
		AdminNotes:      f.str("admin_notes"),
		Actor:           actor,
		IdempotencyKey:  idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(ctx, log, "appointment create", err)
	}

	log.InfoContext(ctx, "appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("provider_id", appt.ProviderID),
		slog.String("date", domain.FormatDate(appt.Date)),
		slog.String("start", appt.Start.String()),
		slog.String("status", string(appt.Status)),
	)
	return respond(log, map[string]any{"appointment": appointmentValue(appt)})
}

func (s *BookingServer) TransitionAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "TransitionAppointment"))
	f := fieldsOf(req)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment transition", err)
	}
	id, err := f.id("appointment_id")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment transition", err)
	}
	to, ok := domain.ParseStatus(f.str("status"))
	if !ok {
		return nil, toStatus(ctx, log, "appointment transition", domain.Invalid("status", "is not recognised"))
	}
	in := booking.TransitionInput{AppointmentID: id, To: to, Actor: actor, Reason: f.str("reason")}
	if f.has("admin_notes") {
		notes := f.str("admin_notes")
		in.AdminNotes = &notes
	}

	appt, err := s.booking.Transition(ctx, in)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment transition", err)
	}

	log.InfoContext(ctx, "appointment status changed",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
		slog.String("actor", string(actor)),
	)
	return respond(log, map[string]any{"appointment": appointmentValue(appt)})
}

func (s *BookingServer) RescheduleAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))
	f := fieldsOf(req)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment reschedule", err)
	}
	id, err := f.id("appointment_id")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment reschedule", err)
	}
	date, err := f.date("date")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment reschedule", err)
	}
	start, err := f.timeOfDay("start")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment reschedule", err)
	}

	appt, err := s.booking.Reschedule(ctx, booking.RescheduleInput{
		AppointmentID: id,
		Date:          date,
		Start:         start,
		Actor:         actor,
		Reason:        f.str("reason"),
	})
	if err != nil {
		return nil, toStatus(ctx, log, "appointment reschedule", err)
	}

	log.InfoContext(ctx, "appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("date", domain.FormatDate(appt.Date)),
		slog.String("start", appt.Start.String()),
	)
	return respond(log, map[string]any{"appointment": appointmentValue(appt)})
}

func (s *BookingServer) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetAppointment"))
	id, err := fieldsOf(req).id("appointment_id")
	if err != nil {
		return nil, toStatus(ctx, log, "appointment get", err)
	}
	appt, err := s.booking.Get(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, log, "appointment get", err)
	}
	return respond(log, map[string]any{"appointment": appointmentValue(appt)})
}

func (s *BookingServer) ListTransitions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListTransitions"))
	id, err := fieldsOf(req).id("appointment_id")
	if err != nil {
		return nil, toStatus(ctx, log, "transitions list", err)
	}
	history, err := s.booking.ListTransitions(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, log, "transitions list", err)
	}
	log.DebugContext(ctx, "transitions listed", slog.String("appointment_id", id.String()), slog.Int("count", len(history)))
	return respond(log, map[string]any{"transitions": listOf(history, transitionValue)})
}

func (s *BookingServer) GetWeekView(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetWeekView"))
	f := fieldsOf(req)
	date, err := f.date("date")
	if err != nil {
		return nil, toStatus(ctx, log, "week view", err)
	}
	view, err := s.calendar.GetWeekView(ctx, s.provider(f), date)
	if err != nil {
		return nil, toStatus(ctx, log, "week view", err)
	}
	log.DebugContext(ctx, "week view served",
		slog.String("provider_id", view.ProviderID),
		slog.String("week_start", domain.FormatDate(view.WeekStart)),
	)
	return respond(log, map[string]any{"week": weekValue(view)})
}

func (s *BookingServer) ListAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListAvailableSlots"))
	f := fieldsOf(req)
	date, err := f.date("date")
	if err != nil {
		return nil, toStatus(ctx, log, "slots list", err)
	}
	serviceID, err := f.id("service_id")
	if err != nil {
		return nil, toStatus(ctx, log, "slots list", err)
	}
	slots, err := s.calendar.ListAvailableSlots(ctx, s.provider(f), date, serviceID)
	if err != nil {
		return nil, toStatus(ctx, log, "slots list", err)
	}
	return respond(log, map[string]any{"slots": listOf(slots, slotValue)})
}

func (s *BookingServer) CreateBlockedInterval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateBlockedInterval"))
	f := fieldsOf(req)
	date, err := f.date("date")
	if err != nil {
		return nil, toStatus(ctx, log, "block create", err)
	}
	start, err := f.optionalTimeOfDay("start")
	if err != nil {
		return nil, toStatus(ctx, log, "block create", err)
	}
	end, err := f.optionalTimeOfDay("end")
	if err != nil {
		return nil, toStatus(ctx, log, "block create", err)
	}

	b, err := s.blocks.Create(ctx, blocks.CreateInput{
		ProviderID: s.provider(f),
		Date:       date,
		Start:      start,
		End:        end,
		Reason:     f.str("reason"),
	})
	if err != nil {
		return nil, toStatus(ctx, log, "block create", err)
	}

	log.InfoContext(ctx, "blocked interval created",
		slog.String("block_id", b.ID.String()),
		slog.String("provider_id", b.ProviderID),
		slog.String("date", domain.FormatDate(b.Date)),
		slog.Bool("full_day", b.FullDay()),
	)
	return respond(log, map[string]any{"blocked_interval": blockValue(b)})
}

func (s *BookingServer) DeleteBlockedInterval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteBlockedInterval"))
	id, err := fieldsOf(req).id("block_id")
	if err != nil {
		return nil, toStatus(ctx, log, "block delete", err)
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		return nil, toStatus(ctx, log, "block delete", err)
	}
	log.InfoContext(ctx, "blocked interval deleted", slog.String("block_id", id.String()))
	return respond(log, map[string]any{})
}

func (s *BookingServer) ListServices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListServices"))
	services, err := s.calendar.ListServices(ctx)
	if err != nil {
		return nil, toStatus(ctx, log, "services list", err)
	}
	return respond(log, map[string]any{"services": listOf(services, serviceValue)})
}
