// Package admin serves the operator HTTP listener: health checks, metrics and business hours.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/hours"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// HoursEditor changes per-provider business hours.
type HoursEditor interface {
	hours.Provider
	Set(ctx context.Context, providerID string, h domain.BusinessHours) error
	Reset(ctx context.Context, providerID string) error
}

// ProviderInvalidator drops every cached week of a provider.
type ProviderInvalidator interface {
	InvalidateProvider(ctx context.Context, providerID string) error
}

type Config struct {
	Log     *slog.Logger
	Checks  []ReadyCheck
	Metrics http.Handler
	// Hours is optional; without it the /hours routes are not mounted.
	Hours HoursEditor
	Weeks ProviderInvalidator
	// Granularity, when set, is the booking grid that hour bounds must sit on.
	Granularity int
}

func NewRouter(cfg Config) http.Handler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http.admin"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readyHandler(cfg.Checks))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Hours != nil {
		h := &hoursHandler{hours: cfg.Hours, weeks: cfg.Weeks, grid: cfg.Granularity, log: log}
		r.Route("/providers/{providerID}/hours", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.put)
			r.Delete("/", h.reset)
		})
	}
	return r
}

func readyHandler(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var failures []string
		for _, check := range checks {
			if check.Check == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := check.Check(ctx)
			cancel()
			if err != nil {
				name := check.Name
				if name == "" {
					name = "dependency"
				}
				failures = append(failures, name+": "+err.Error())
			}
		}
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type hoursHandler struct {
	hours HoursEditor
	weeks ProviderInvalidator
	grid  int
	log   *slog.Logger
}

func (h *hoursHandler) get(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	bh, err := h.hours.BusinessHours(r.Context(), providerID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "hours read failed", slog.String("provider_id", providerID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, hours.FormatWeek(bh))
}

func (h *hoursHandler) put(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	var days map[string]string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&days); err != nil {
		writeError(w, http.StatusBadRequest, "body must be an object of weekday to intervals")
		return
	}
	bh, err := hours.ParseWeek(days)
	if err == nil {
		err = bh.Validate()
	}
	if err == nil && h.grid > 0 {
		err = bh.AlignedTo(h.grid)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.hours.Set(r.Context(), providerID, bh); err != nil {
		h.log.ErrorContext(r.Context(), "hours write failed", slog.String("provider_id", providerID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.afterChange(r.Context(), providerID)
	h.log.InfoContext(r.Context(), "business hours updated", slog.String("provider_id", providerID))
	writeJSON(w, http.StatusOK, hours.FormatWeek(bh))
}

func (h *hoursHandler) reset(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if err := h.hours.Reset(r.Context(), providerID); err != nil {
		h.log.ErrorContext(r.Context(), "hours reset failed", slog.String("provider_id", providerID), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.afterChange(r.Context(), providerID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *hoursHandler) afterChange(ctx context.Context, providerID string) {
	if h.weeks == nil {
		return
	}
	if err := h.weeks.InvalidateProvider(ctx, providerID); err != nil {
		h.log.WarnContext(ctx, "week cache invalidation failed", slog.String("provider_id", providerID), slog.Any("err", err))
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
