package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/audit"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Handler struct {
	Log *audit.Log
}

func NewHandler(log *audit.Log) *Handler {
	return &Handler{Log: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

func (h *Handler) parseFilter(r *http.Request, v *shared.Validator) audit.Filter {
	query := r.URL.Query()
	return audit.Filter{
		Action:     query.Get("action"),
		EntityType: query.Get("entityType"),
		Actor:      query.Get("actor"),
		Since:      v.Time("since", query.Get("since")),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	filter := h.parseFilter(r, v)
	page := shared.ParsePagination(r, v, 100, 500)
	if v.Reject(w, requestID) {
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(h.Log.Count(filter)))
	api.Success(w, h.Log.List(filter, page.Limit, page.Offset), requestID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	filter := h.parseFilter(r, v)
	if v.Reject(w, requestID) {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor", "action", "entity_type", "entity_id", "outcome", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range h.Log.List(filter, 0, 0) {
		row := []string{evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.Outcome, evt.RequestID, evt.IP, evt.CreatedAt.Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
