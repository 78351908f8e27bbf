package hierarchyhandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/hierarchy"
	"perfdash/internal/platform/odoo"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Aggregator interface {
	AggregateForEmployee(ctx context.Context, employeeID int64) (json.RawMessage, error)
}

type Recorder interface {
	RecordAggregate(err error)
}

type Handler struct {
	Service Aggregator
	Metrics Recorder
	Audit   shared.Auditor
}

func NewHandler(service Aggregator, metrics Recorder, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Metrics: metrics, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/employees/{employeeID}/aggregate-subordinates", h.handleAggregate)
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	employeeID := v.PositiveID("employeeId", chi.URLParam(r, "employeeID"))
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.AggregateForEmployee(r.Context(), employeeID)
	if h.Metrics != nil {
		h.Metrics.RecordAggregate(err)
	}
	outcome := audit.OutcomeOK
	if err != nil {
		outcome = audit.OutcomeFailed
	}
	shared.Audit(h.Audit, r, audit.ActionAggregate, hierarchy.ModelEmployee, strconv.FormatInt(employeeID, 10), outcome)
	if err != nil {
		slog.Warn("subordinate aggregation failed", "employeeId", employeeID, "err", err, "requestId", requestID)
		var fault *odoo.Fault
		if errors.As(err, &fault) {
			api.Fail(w, http.StatusBadGateway, "aggregation_failed", fault.Error(), requestID)
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			api.Fail(w, http.StatusGatewayTimeout, "upstream_timeout", "odoo did not answer in time", requestID)
			return
		}
		api.Fail(w, http.StatusBadGateway, "upstream_unavailable", "odoo request failed", requestID)
		return
	}
	api.Forward(w, result, requestID)
}
