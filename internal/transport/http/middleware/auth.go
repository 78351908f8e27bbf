package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"perfdash/internal/auth"
	"perfdash/internal/transport/http/api"
)

// SessionCookie holds the operator token for the server-rendered pages.
const SessionCookie = "perfdash_session"

// Auth attaches the operator from a valid bearer token, taken from the
// Authorization header or the session cookie. Requests without a usable token
// continue anonymously; RequireOperator decides whether that is allowed. The
// access_token query parameter is read only on websocket upgrades, which
// cannot set headers from a browser.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyOperator, *claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if websocket.IsWebSocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func GetOperator(ctx context.Context) (auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyOperator).(auth.Claims)
	return claims, ok
}

// RequireOperator rejects anonymous requests when enabled.
func RequireOperator(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			claims, ok := GetOperator(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
				return
			}
			if claims.Role != auth.RoleOperator {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", GetRequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePageOperator sends anonymous browsers to loginPath.
func RequirePageOperator(enabled bool, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			claims, ok := GetOperator(r.Context())
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			if claims.Role != auth.RoleOperator {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
