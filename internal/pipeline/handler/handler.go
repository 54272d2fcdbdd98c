// Package handler exposes the case pipeline and the audit trail over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sarflow/internal/agents/complianceofficer"
	"sarflow/internal/pipeline"
	"sarflow/internal/platform/metrics"
	"sarflow/internal/platform/middleware"
	dErrors "sarflow/pkg/domain-errors"
	audit "sarflow/pkg/platform/audit"
	"sarflow/pkg/platform/httputil"
)

// Service processes one case.
type Service interface {
	Process(ctx context.Context, in pipeline.CaseInput) (*pipeline.Report, error)
}

// Trail reads the in-process audit entries.
type Trail interface {
	Entries(ctx context.Context) ([]audit.Entry, error)
	EntriesForCase(ctx context.Context, caseID string) ([]audit.Entry, error)
}

type Handler struct {
	service  Service
	trail    Trail
	logger   *slog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

// New constructs the handler. gatherer backs GET /metrics; nil uses the
// default gatherer.
func New(service Service, trail Trail, logger *slog.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, timeout time.Duration) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		service:  service,
		trail:    trail,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
		timeout:  timeout,
	}
}

// Router returns the full route tree with the middleware chain applied.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Latency(h.metrics))
	h.Register(r)
	return r
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Get("/audit", h.HandleAudit)
	r.Group(func(r chi.Router) {
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout))
		}
		r.Post("/cases", h.HandleProcessCase)
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleProcessCase handles POST /cases. Cases that end in manual review
// are still 200; the report carries the fallback markers.
func (h *Handler) HandleProcessCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var in pipeline.CaseInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if in.Customer == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "customer is required"))
		return
	}

	report, err := h.service.Process(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "case not processed",
			"request_id", requestID,
			"customer_id", report.CustomerID,
			"outcome", report.Outcome,
			"error", err,
		)
		var violation *complianceofficer.ViolationError
		switch {
		case errors.As(err, &violation):
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, report)
		case errors.Is(err, context.DeadlineExceeded):
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeTimeout, "case processing timed out"))
		default:
			httputil.WriteError(w, err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleAudit streams audit entries as JSON lines, optionally filtered by
// ?case_id=.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		entries []audit.Entry
		err     error
	)
	if caseID := r.URL.Query().Get("case_id"); caseID != "" {
		entries, err = h.trail.EntriesForCase(ctx, caseID)
	} else {
		entries, err = h.trail.Entries(ctx)
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "read audit trail"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	for _, e := range entries {
		line, err := audit.MarshalLine(e)
		if err != nil {
			h.logger.ErrorContext(ctx, "encode audit entry", "log_id", e.LogID, "error", err)
			return
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return
		}
	}
}
