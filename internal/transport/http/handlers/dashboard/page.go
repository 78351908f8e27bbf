package dashboardhandler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/dashboard"
	"perfdash/internal/transport/http/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	dashboard.View
	ActionBase string
	ReportPath string
}

// RegisterPages mounts the server-rendered dashboard and its form actions.
func (h *Handler) RegisterPages(r chi.Router) {
	r.Get("/", h.handlePage)
	r.Get("/dashboard", h.handlePage)
	r.Post("/dashboard/actions/{action}", h.handleAction)
}

func (h *Handler) handlePage(w http.ResponseWriter, r *http.Request) {
	state := h.mount(r.Context())
	data := pageData{
		View:       dashboard.BuildView(state),
		ActionBase: "/dashboard/actions/",
		ReportPath: "/api/v1/dashboard/report.pdf",
	}

	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		slog.Error("dashboard page render failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
