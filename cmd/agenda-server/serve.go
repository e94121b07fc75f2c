package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/clock"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/config"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/logging"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/retry"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/blocks"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/booking"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/calendar"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/tracing"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/transport/admin"
	grpcTransport "github.com/valentina-code311/tu-lugar-seguro-sub001/internal/transport/grpc"
)

const serviceName = "agenda-server"

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC booking API and the admin HTTP listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log, logCloser := logging.New(cfg.Log, serviceName)
	defer logCloser.Close() //nolint:errcheck
	slog.SetDefault(log)

	grpcAddr := net.JoinHostPort(cfg.GRPCHost, strconv.Itoa(cfg.GRPCPort))
	log.Info("starting",
		slog.String("grpc_addr", grpcAddr),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("storage", cfg.StorageDriver),
		slog.String("timezone", cfg.Schedule.Timezone),
		slog.String("log_level", cfg.Log.Level),
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.TracingEnabled,
		ServiceName: serviceName,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", slog.Any("err", err))
		}
	}()

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engine := metrics.NewEngine(reg)
	clk := clock.NewSystem(cfg.Schedule.Location)

	bookingOpts := []booking.Option{
		booking.WithPublisher(b.publisher),
		booking.WithMetrics(engine),
		booking.WithLogger(log),
	}
	blockOpts := []blocks.Option{
		blocks.WithMetrics(engine),
		blocks.WithLogger(log),
	}
	calendarOpts := []calendar.Option{
		calendar.WithMetrics(engine),
		calendar.WithLogger(log),
	}
	adminCfg := admin.Config{
		Log:     log,
		Checks:  b.checks,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		// Hour bounds must sit on the grid that booking starts are validated against.
		Granularity: cfg.Schedule.GranularityMinutes,
	}
	if b.weeks != nil {
		bookingOpts = append(bookingOpts, booking.WithWeekInvalidator(b.weeks))
		blockOpts = append(blockOpts, blocks.WithWeekInvalidator(b.weeks))
		calendarOpts = append(calendarOpts, calendar.WithCache(b.weeks))
		adminCfg.Weeks = b.weeks
	}
	if b.editor != nil {
		adminCfg.Hours = b.editor
	}

	bookings := booking.NewManager(b.store, b.catalog, b.hours, clk, booking.Config{
		Granularity:          cfg.Schedule.GranularityMinutes,
		Buffer:               cfg.Schedule.BufferMinutes,
		MaxAttempts:          cfg.Booking.MaxAttempts,
		RetryInitialInterval: cfg.Booking.RetryInitialInterval,
		PhoneRegion:          cfg.Booking.PhoneRegion,
		EnforceBusinessHours: cfg.Booking.EnforceBusinessHours,
	}, bookingOpts...)
	blockSvc := blocks.NewService(b.store, retry.Policy{
		MaxAttempts:     cfg.Booking.MaxAttempts,
		InitialInterval: cfg.Booking.RetryInitialInterval,
	}, blockOpts...)
	calendarSvc := calendar.NewService(b.store, b.catalog, b.hours, clk, calendar.Config{
		Granularity: cfg.Schedule.GranularityMinutes,
		Buffer:      cfg.Schedule.BufferMinutes,
	}, calendarOpts...)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpcTransport.UnaryInterceptors(log, cfg.GRPCRequestTimeout),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer,
		grpcTransport.NewBookingServer(bookings, calendarSvc, blockSvc, cfg.Schedule.DefaultProvider, log))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(grpcTransport.ServiceName, healthpb.HealthCheckResponse_SERVING)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           admin.NewRouter(adminCfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", grpcAddr))
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin http: %w", err)
		}
	}()

	log.Info("servers started", slog.String("grpc_addr", grpcAddr), slog.String("http_addr", cfg.HTTPAddr))

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			runErr = err
		}
	}

	healthSrv.Shutdown()
	shutdown(log, grpcServer, cfg.ShutdownTimeout)

	httpCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Warn("admin http shutdown failed", slog.Any("err", err))
	}
	return runErr
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}
