package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/config"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/hours"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/notify"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/service/calendar"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store/memory"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store/postgres"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/transport/admin"
)

// backend holds the stateful dependencies of the server and releases them in reverse order.
type backend struct {
	store   store.AppointmentStore
	catalog store.ServiceCatalog

	hours hours.Provider
	// editor and weeks stay nil without redis.
	editor *hours.RedisStore
	weeks  *calendar.RedisCache

	publisher notify.Publisher
	checks    []admin.ReadyCheck
	closers   []func() error
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

func (b *backend) close(log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn("close failed", slog.Any("err", err))
		}
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{}

	seeds, err := servicesFromConfig(cfg.Services)
	if err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case "memory":
		st := memory.New(seeds...)
		b.store, b.catalog = st, st
		log.Warn("using in-memory storage; appointments are lost on restart")
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			ApplicationName: serviceName,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			return nil, err
		}
		b.onClose(func() error { return postgres.Close(db) })

		if pending, err := postgres.Pending(ctx, db); err != nil {
			log.Warn("migration status unknown", slog.Any("err", err))
		} else if len(pending) > 0 {
			log.Warn("database has pending migrations", slog.Any("migrations", pending))
		}

		catalog := postgres.NewServiceRepo(db)
		for _, svc := range seeds {
			if _, err := catalog.UpsertService(ctx, svc); err != nil {
				b.close(log)
				return nil, fmt.Errorf("seed service %s: %w", svc.Name, err)
			}
		}
		b.store = postgres.NewAppointmentRepo(db, postgres.WithLockTimeout(cfg.DBLockTimeout))
		b.catalog = catalog
	}
	b.checks = append(b.checks, admin.ReadyCheck{Name: "store", Check: b.store.Ping})

	static, err := hours.ParseStatic(cfg.Schedule.Hours)
	if err != nil {
		b.close(log)
		return nil, fmt.Errorf("schedule.hours: %w", err)
	}
	b.hours = static

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.onClose(client.Close)
		b.editor = hours.NewRedisStore(client, static, hours.WithGrid(cfg.Schedule.GranularityMinutes))
		b.hours = b.editor
		b.weeks = calendar.NewRedisCache(client, cfg.WeekCacheTTL)
		b.checks = append(b.checks, admin.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		log.Info("redis enabled", slog.String("redis_addr", cfg.RedisAddr))
	}

	if brokers := notify.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := notify.NewKafkaPublisher(brokers, cfg.KafkaTopic, cfg.KafkaWriteTimeout)
		b.onClose(kp.Close)
		b.publisher = kp
		log.Info("publishing status changes to kafka", slog.Any("brokers", brokers), slog.String("topic", cfg.KafkaTopic))
	} else {
		b.publisher = notify.NewLogPublisher(log)
	}

	return b, nil
}

// servicesFromConfig turns catalog seeds into services. A seed without an id gets one derived
// from its name, so restarts upsert the same row.
func servicesFromConfig(seeds []config.ServiceSeed) ([]domain.Service, error) {
	out := make([]domain.Service, 0, len(seeds))
	for i, seed := range seeds {
		name := strings.TrimSpace(seed.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog.services[%d]: name is required", i)
		}
		if seed.DurationMinutes <= 0 || seed.DurationMinutes > 24*60 {
			return nil, fmt.Errorf("catalog.services[%d]: duration_minutes out of range", i)
		}

		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("agenda:service:"+strings.ToLower(name)))
		if seed.ID != "" {
			parsed, err := uuid.Parse(seed.ID)
			if err != nil {
				return nil, fmt.Errorf("catalog.services[%d].id: %w", i, err)
			}
			id = parsed
		}

		modalities := make([]domain.Modality, 0, len(seed.Modalities))
		for _, raw := range seed.Modalities {
			m, ok := domain.ParseModality(strings.TrimSpace(raw))
			if !ok {
				return nil, fmt.Errorf("catalog.services[%d].modalities: unknown %q", i, raw)
			}
			modalities = append(modalities, m)
		}
		if len(modalities) == 0 {
			modalities = []domain.Modality{domain.ModalityOnline, domain.ModalityInPerson}
		}

		now := time.Now().UTC()
		out = append(out, domain.Service{
			ID:              id,
			Name:            name,
			Description:     seed.Description,
			DurationMinutes: seed.DurationMinutes,
			PriceCents:      seed.PriceCents,
			Modalities:      modalities,
			Active:          seed.Active,
			SortOrder:       seed.SortOrder,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return out, nil
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
