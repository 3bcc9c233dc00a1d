package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandlerOptions configures the HTTP surface.
type HandlerOptions struct {
	Logger   *slog.Logger
	PageSize int
	// Registry receives the request metrics and backs /metrics. A nil
	// Registry gets a fresh one.
	Registry *prometheus.Registry
	// DB is pinged by /healthz; nil skips the check.
	DB Pinger
}

type server struct {
	admin    *Admin
	logger   *slog.Logger
	pageSize int
	db       Pinger
}

// Handler serves the admin views as a JSON API.
func Handler(a *Admin, opts HandlerOptions) http.Handler {
	s := &server{admin: a, logger: opts.Logger, pageSize: opts.PageSize, db: opts.DB}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pageSize <= 0 {
		s.pageSize = 20
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(s.notFound)
	router.MethodNotAllowed = http.HandlerFunc(s.methodNotAllowed)

	handle := func(method, route string, fn http.HandlerFunc) {
		router.Handler(method, route, metrics.instrument(route, s.recoverPanic(fn)))
	}

	handle(http.MethodGet, "/admin", s.indexHandler)
	handle(http.MethodGet, "/admin/:view", s.listHandler)
	handle(http.MethodPost, "/admin/:view", s.createHandler)
	handle(http.MethodGet, "/admin/:view/:id", s.showHandler)
	handle(http.MethodPatch, "/admin/:view/:id", s.updateHandler)
	handle(http.MethodDelete, "/admin/:view/:id", s.deleteHandler)
	handle(http.MethodGet, "/healthz", s.healthHandler)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return withRequestID(s.recoverPanic(router))
}

func (s *server) view(r *http.Request) (View, error) {
	return s.admin.View(httprouter.ParamsFromContext(r.Context()).ByName("view"))
}

func (s *server) respond(w http.ResponseWriter, r *http.Request, status int, data envelope) {
	if err := s.writeJSON(w, status, data, nil); err != nil {
		s.errorResponse(w, r, err)
	}
}

func (s *server) indexHandler(w http.ResponseWriter, r *http.Request) {
	views := make([]map[string]any, 0, len(s.admin.Views()))
	for _, v := range s.admin.Views() {
		views = append(views, map[string]any{
			"name":    v.Name(),
			"label":   v.Label(),
			"columns": v.Columns(),
		})
	}
	s.respond(w, r, http.StatusOK, envelope{"name": s.admin.Name, "views": views})
}

func (s *server) listHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	page, size, err := readPage(r, s.pageSize)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	rows, total, err := v.List(r.Context(), page, size)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, envelope{
		v.Name(): rows,
		"metadata": map[string]any{
			"page":      page,
			"page_size": size,
			"total":     total,
		},
	})
}

func (s *server) showHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	id, err := readID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	record, err := v.Get(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, envelope{"record": record})
}

func (s *server) createHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var input map[string]any
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	record, err := v.Create(r.Context(), input)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.logger.Info("record created", "view", v.Name(), "id", record["id"], "request_id", requestID(r.Context()))
	s.respond(w, r, http.StatusCreated, envelope{"record": record})
}

func (s *server) updateHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	id, err := readID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var input map[string]any
	if err := s.readJSON(w, r, &input); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	record, err := v.Update(r.Context(), id, input)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, envelope{"record": record})
}

func (s *server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	v, err := s.view(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	id, err := readID(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if err := v.Delete(r.Context(), id); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.logger.Info("record deleted", "view", v.Name(), "id", id, "request_id", requestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "available"
	code := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	s.respond(w, r, code, envelope{"status": status, "admin": s.admin.Name})
}
