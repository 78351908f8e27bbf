package dashboardhandler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/dashboard"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Recorder interface {
	RecordDashboard(phase dashboard.Phase)
	StreamOpened()
	StreamClosed()
}

type Handler struct {
	Caller  dashboard.Caller
	OdooURL string
	Metrics Recorder
	Audit   shared.Auditor
	Now     func() time.Time
}

func NewHandler(caller dashboard.Caller, odooURL string, metrics Recorder, auditor shared.Auditor) *Handler {
	return &Handler{Caller: caller, OdooURL: odooURL, Metrics: metrics, Audit: auditor, Now: time.Now}
}

// RegisterRoutes mounts the JSON, report and stream endpoints. The HTML page
// lives outside the API prefix, see RegisterPages.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Get("/stream", h.handleStream)
		r.Get("/report.pdf", h.handleReport)
		r.Post("/actions/{action}", h.handleAction)
	})
}

type dashboardResponse struct {
	State   string             `json:"state"`
	Error   string             `json:"error,omitempty"`
	Payload *dashboard.Payload `json:"payload"`
	View    dashboard.View     `json:"view"`
}

type actionResponse struct {
	Action dashboard.Action `json:"action"`
	URL    string           `json:"url"`
}

// mount runs one full dashboard lifecycle for a request.
func (h *Handler) mount(ctx context.Context) dashboard.ViewState {
	state := dashboard.NewComponent(h.Caller, nil).Mount(ctx)
	if h.Metrics != nil {
		h.Metrics.RecordDashboard(state.Phase())
	}
	return state
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	state := h.mount(r.Context())
	resp := dashboardResponse{
		State:   string(state.Phase()),
		Payload: state.Data,
		View:    dashboard.BuildView(state),
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	state := h.mount(r.Context())

	var buf bytes.Buffer
	if err := dashboard.WriteReport(&buf, dashboard.BuildView(state), h.now()); err != nil {
		slog.Error("dashboard report failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "could not render report", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="performance-dashboard-%s.pdf"`, h.now().Format("20060102")))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	name := chi.URLParam(r, "action")
	action, err := h.resolveAction(r.Context(), name)
	if err != nil {
		api.Fail(w, http.StatusNotFound, "unknown_action", err.Error(), requestID)
		return
	}
	h.auditAction(r, name, action)
	target := action.WebURL(h.OdooURL)
	if isFormPost(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	api.Success(w, actionResponse{Action: action, URL: target}, requestID)
}

var errUnknownAction = errors.New("unknown dashboard action")

// resolveAction runs the component command for name and captures the action
// it dispatches.
func (h *Handler) resolveAction(ctx context.Context, name string) (dashboard.Action, error) {
	var captured *dashboard.Action
	capture := dashboard.DispatcherFunc(func(_ context.Context, action dashboard.Action) {
		captured = &action
	})
	c := dashboard.NewComponent(h.Caller, capture)
	switch name {
	case "add-kpi":
		c.AddKPI(ctx)
	case "evaluate-performance":
		c.EvaluatePerformance(ctx)
	case "submit-appraisal":
		c.SubmitAppraisal(ctx)
	}
	if captured == nil {
		return dashboard.Action{}, fmt.Errorf("%w: %q", errUnknownAction, name)
	}
	return *captured, nil
}

func (h *Handler) auditAction(r *http.Request, name string, action dashboard.Action) {
	entity := action.ResModel
	if entity == "" {
		entity = action.XMLID
	}
	shared.Audit(h.Audit, r, audit.ActionDashboardAction, entity, name, audit.OutcomeOK)
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}
