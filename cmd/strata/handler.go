package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"goflare.io/strata"
)

const maxValueBytes = 1 << 20

type handler struct {
	cache    *strata.Manager[json.RawMessage]
	registry *prometheus.Registry
	logger   *zap.Logger
}

func newHandler(cache *strata.Manager[json.RawMessage], registry *prometheus.Registry, logger *zap.Logger) *handler {
	return &handler{cache: cache, registry: registry, logger: logger}
}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/cache/{key}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.put)
		r.Delete("/", h.delete)
	})
	r.Post("/invalidate", h.invalidate)
	r.Post("/invalidate-all", h.invalidateAll)
	r.Get("/status", h.status)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	return r
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	value, ok := h.cache.Get(r.Context(), chi.URLParam(r, "key"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(value)
}

// put stores the JSON request body. The optional ttl query parameter sets the
// remote TTL, either in seconds ("30") or as a duration ("1m30s").
func (h *handler) put(w http.ResponseWriter, r *http.Request) {
	var ttl []time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := parseTTL(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid ttl")
			return
		}
		ttl = append(ttl, d)
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "value too large")
		return
	}
	if !json.Valid(body) {
		h.writeError(w, http.StatusBadRequest, "value must be JSON")
		return
	}

	h.cache.Set(r.Context(), chi.URLParam(r, "key"), json.RawMessage(body), ttl...)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	h.cache.Delete(r.Context(), chi.URLParam(r, "key"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) invalidate(w http.ResponseWriter, r *http.Request) {
	h.cache.Invalidate(r.Context(), r.URL.Query().Get("pattern"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) invalidateAll(w http.ResponseWriter, r *http.Request) {
	h.cache.InvalidateAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Status())
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}

func parseTTL(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, strconv.ErrRange
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, strconv.ErrRange
	}
	return d, nil
}
