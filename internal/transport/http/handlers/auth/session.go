package authhandler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"perfdash/internal/domain/audit"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

//go:embed templates/login.html
var templateFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templateFS, "templates/login.html"))

type loginPage struct {
	Login  string
	Failed bool
}

// HandleLoginPage renders the operator sign-in form.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPage{})
}

// HandleLogin exchanges form credentials for a session cookie so the pages
// never carry the token in a URL.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginPage{Failed: true})
		return
	}
	login := strings.TrimSpace(r.PostFormValue("login"))
	password := r.PostFormValue("password")

	token, expiresAt, err := h.issue(r, login, password)
	if err != nil {
		h.renderLogin(w, r, http.StatusUnauthorized, loginPage{Login: login, Failed: true})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// HandleLogout drops the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	if claims, ok := middleware.GetOperator(r.Context()); ok {
		shared.Audit(h.Audit, r, audit.ActionSessionEnded, "operator", claims.Login, audit.OutcomeOK)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPage) {
	var buf bytes.Buffer
	if err := loginTemplate.ExecuteTemplate(&buf, "login.html", data); err != nil {
		slog.Error("login page render failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		http.Error(w, "failed to render login page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
