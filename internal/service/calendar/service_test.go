package calendar

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/clock"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/hours"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/store/memory"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func morning(t *testing.T) hours.Static {
	t.Helper()
	h, err := hours.ParseStatic(map[string]string{"monday": "09:00-12:00"})
	require.NoError(t, err)
	return h
}

func seed(t *testing.T, st *memory.Store, date time.Time, fn func(ctx context.Context, tx store.ScheduleTx) error) {
	t.Helper()
	require.NoError(t, st.InScheduleTransaction(context.Background(), "p1", []time.Time{date}, fn))
}

func starts(slots []domain.Slot, onlyFree bool) []string {
	out := []string{}
	for _, s := range slots {
		if onlyFree && !s.Available {
			continue
		}
		out = append(out, s.Start.String())
	}
	return out
}

func TestGetWeekView_EmptyStoreHasSevenDays(t *testing.T) {
	st := memory.New()
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{Granularity: 30})

	// Sunday belongs to the week that started the previous Monday.
	view, err := svc.GetWeekView(context.Background(), "p1", monday.AddDate(0, 0, 6).Add(15*time.Hour))
	require.NoError(t, err)

	require.Len(t, view.Days, 7)
	assert.True(t, view.WeekStart.Equal(monday))
	for i, d := range view.Days {
		assert.True(t, d.Date.Equal(monday.AddDate(0, 0, i)))
		assert.Empty(t, d.Appointments)
		assert.Empty(t, d.Blocks)
		assert.Equal(t, i != 0, d.Closed)
	}
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, starts(view.Days[0].Slots, true))
}

func TestGetWeekView_ReflectsAppointmentsAndBlocks(t *testing.T) {
	st := memory.New()
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{Granularity: 30})
	seed(t, st, monday, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID: "p1", Date: monday, Start: domain.NewTimeOfDay(10, 0), DurationMinutes: 30,
			ClientName: "Ana", ClientEmail: "ana@example.com", Modality: domain.ModalityOnline, Status: domain.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		_, err = tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID: "p1", Date: monday, Start: domain.NewTimeOfDay(11, 0), DurationMinutes: 30,
			ClientName: "Bea", ClientEmail: "bea@example.com", Modality: domain.ModalityOnline, Status: domain.StatusCancelled,
		})
		return err
	})
	tuesday := monday.AddDate(0, 0, 1)
	seed(t, st, tuesday, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.InsertBlockedInterval(ctx, domain.BlockedInterval{ProviderID: "p1", Date: tuesday})
		return err
	})

	view, err := svc.GetWeekView(context.Background(), "p1", monday)
	require.NoError(t, err)

	assert.Len(t, view.Days[0].Appointments, 2)
	assert.Equal(t, []string{"09:00", "09:30", "10:30", "11:00", "11:30"}, starts(view.Days[0].Slots, true))
	assert.True(t, view.Days[1].FullyBlocked)
	assert.Len(t, view.Days[1].Blocks, 1)

	again, err := svc.GetWeekView(context.Background(), "p1", monday.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(view, again), "week view is not idempotent")
}

func TestGetWeekView_Validation(t *testing.T) {
	st := memory.New()
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{})
	_, err := svc.GetWeekView(context.Background(), " ", monday)
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
	_, err = svc.GetWeekView(context.Background(), "p1", time.Time{})
	assert.ErrorAs(t, err, &vErr)
}

func TestGetWeekView_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := memory.New()
	cache := NewRedisCache(client, time.Minute)
	reg := prometheus.NewRegistry()
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{Granularity: 30},
		WithCache(cache), WithMetrics(metrics.NewEngine(reg)))
	ctx := context.Background()

	first, err := svc.GetWeekView(ctx, "p1", monday)
	require.NoError(t, err)
	assert.True(t, mr.Exists("agenda:week:p1:2025-03-10"))

	// A write that skips invalidation stays invisible until the entry is dropped.
	seed(t, st, monday, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID: "p1", Date: monday, Start: domain.NewTimeOfDay(9, 0), DurationMinutes: 30,
			ClientName: "Ana", ClientEmail: "ana@example.com", Modality: domain.ModalityOnline, Status: domain.StatusPending,
		})
		return err
	})
	cached, err := svc.GetWeekView(ctx, "p1", monday)
	require.NoError(t, err)
	assert.Len(t, cached.Days[0].Appointments, 0)
	assert.Equal(t, starts(first.Days[0].Slots, false), starts(cached.Days[0].Slots, false))

	require.NoError(t, cache.Invalidate(ctx, "p1", monday.AddDate(0, 0, 2), monday.AddDate(0, 0, 4)))
	assert.False(t, mr.Exists("agenda:week:p1:2025-03-10"))

	fresh, err := svc.GetWeekView(ctx, "p1", monday)
	require.NoError(t, err)
	assert.Len(t, fresh.Days[0].Appointments, 1)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("agenda:week:p1:2025-03-10"))
}

func TestGetWeekView_CacheFailureFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	st := memory.New()
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{}, WithCache(NewRedisCache(client, time.Minute)))

	mr.Close()
	view, err := svc.GetWeekView(context.Background(), "p1", monday)
	require.NoError(t, err)
	assert.Len(t, view.Days, 7)
}

func TestListAvailableSlots(t *testing.T) {
	st := memory.New()
	hour := st.PutService(domain.Service{Name: "Session", DurationMinutes: 60, Active: true})
	retired := st.PutService(domain.Service{Name: "Old", DurationMinutes: 60})
	clk := clock.NewFixed(monday.Add(9*time.Hour+15*time.Minute), time.UTC)
	svc := NewService(st, st, morning(t), clk, Config{Granularity: 30})
	seed(t, st, monday, func(ctx context.Context, tx store.ScheduleTx) error {
		_, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID: "p1", Date: monday, Start: domain.NewTimeOfDay(10, 30), DurationMinutes: 30,
			ClientName: "Ana", ClientEmail: "ana@example.com", Modality: domain.ModalityOnline, Status: domain.StatusPending,
		})
		return err
	})
	ctx := context.Background()

	slots, err := svc.ListAvailableSlots(ctx, "p1", monday, hour.ID)
	require.NoError(t, err)
	// 09:00 has started; 10:00 and 10:30 overlap the 10:30 booking, 09:30 only touches it.
	assert.Equal(t, []string{"09:30", "11:00"}, starts(slots, true))

	var vErr *domain.ValidationError
	_, err = svc.ListAvailableSlots(ctx, "p1", monday, retired.ID)
	assert.ErrorAs(t, err, &vErr)
	_, err = svc.ListAvailableSlots(ctx, "p1", monday, uuid.New())
	assert.ErrorAs(t, err, &vErr)
}

func TestListServicesOnlyActive(t *testing.T) {
	st := memory.New(
		domain.Service{Name: "B", DurationMinutes: 30, Active: true},
		domain.Service{Name: "A", DurationMinutes: 30, Active: true},
		domain.Service{Name: "Hidden", DurationMinutes: 30},
	)
	svc := NewService(st, st, morning(t), clock.NewFixed(monday, nil), Config{})
	got, err := svc.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Name)
}

func TestRedisCache_InvalidateProvider(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	for _, v := range []WeekView{
		{ProviderID: "p1", WeekStart: monday},
		{ProviderID: "p1", WeekStart: monday.AddDate(0, 0, 7)},
		{ProviderID: "p2", WeekStart: monday},
	} {
		require.NoError(t, cache.Put(ctx, v))
	}
	require.NoError(t, cache.InvalidateProvider(ctx, "p1"))

	_, ok, err := cache.Get(ctx, "p1", monday)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Get(ctx, "p2", monday)
	require.NoError(t, err)
	assert.True(t, ok)
}
