package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
)

const errorDomain = "agenda"

// toStatus maps an engine error onto a gRPC status and logs it at a level matching its kind.
func toStatus(ctx context.Context, log *slog.Logger, op string, err error) error {
	var (
		vErr *domain.ValidationError
		cErr *domain.ConflictError
		iErr *domain.IllegalTransitionError
		uErr *domain.StoreUnavailableError
	)
	switch {
	case errors.As(err, &vErr):
		log.WarnContext(ctx, "invalid request", slog.Any("err", err))
		return withDetails(codes.InvalidArgument, vErr.Error(), &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: vErr.Field, Description: vErr.Error()}},
		})
	case errors.As(err, &cErr):
		log.InfoContext(ctx, op+" conflict",
			slog.String("date", domain.FormatDate(cErr.Date)),
			slog.String("span", cErr.Span.String()),
			slog.String("source", string(cErr.Source)),
		)
		return withDetails(codes.FailedPrecondition, "That time is no longer available. Pick a different slot.", &errdetails.ErrorInfo{
			Reason: "SLOT_CONFLICT",
			Domain: errorDomain,
			Metadata: map[string]string{
				"date":   domain.FormatDate(cErr.Date),
				"start":  cErr.Span.Start.String(),
				"end":    cErr.Span.End.String(),
				"source": string(cErr.Source),
			},
		})
	case errors.As(err, &iErr):
		log.InfoContext(ctx, op+" rejected", slog.Any("err", err))
		return withDetails(codes.FailedPrecondition, iErr.Error(), &errdetails.ErrorInfo{
			Reason: "ILLEGAL_TRANSITION",
			Domain: errorDomain,
			Metadata: map[string]string{
				"from": string(iErr.From),
				"to":   string(iErr.To),
			},
		})
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.InfoContext(ctx, op+" idempotency conflict")
		return withDetails(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.", &errdetails.ErrorInfo{
			Reason: "IDEMPOTENCY_CONFLICT",
			Domain: errorDomain,
		})
	case errors.Is(err, store.ErrNotFound):
		log.InfoContext(ctx, op+" not found")
		return status.Error(codes.NotFound, "not found")
	case errors.As(err, &uErr):
		log.ErrorContext(ctx, op+" failed", slog.Any("err", err), slog.Int("attempts", uErr.Attempts))
		return withDetails(codes.Unavailable, "service temporarily unavailable", &errdetails.RetryInfo{})
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(ctx, op+" timed out")
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	default:
		log.ErrorContext(ctx, op+" failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func withDetails(code codes.Code, msg string, details ...protoadapt.MessageV1) error {
	st := status.New(code, msg)
	for _, d := range details {
		withD, err := st.WithDetails(d)
		if err != nil {
			return st.Err()
		}
		st = withD
	}
	return st.Err()
}
