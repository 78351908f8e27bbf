package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"perfdash/internal/auth"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Fatal("expected request id in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRequestIDKeepsIncomingHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) != "abc" {
			t.Fatalf("expected incoming id, got %q", GetRequestID(r.Context()))
		}
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

type countingRecorder struct {
	statuses []int
}

func (c *countingRecorder) Record(status int, _ time.Duration) {
	c.statuses = append(c.statuses, status)
}

func TestLoggerRecordsStatus(t *testing.T) {
	recorder := &countingRecorder{}
	handler := Logger(recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(recorder.statuses) != 1 || recorder.statuses[0] != http.StatusTeapot {
		t.Fatalf("unexpected statuses %v", recorder.statuses)
	}
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAuthMiddlewareSetsOperator(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, auth.Claims{Login: "admin", Role: auth.RoleOperator}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	called := false
	handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := GetOperator(r.Context())
		if !ok || claims.Login != "admin" {
			t.Fatalf("unexpected operator %+v %v", claims, ok)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected handler to run")
	}
}

func TestAuthMiddlewareQueryTokenOnlyOnWebsocketUpgrade(t *testing.T) {
	token, _ := auth.GenerateToken("s", auth.Claims{Login: "admin", Role: auth.RoleOperator}, time.Hour)
	var found bool
	handler := Auth("s")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = GetOperator(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard?access_token="+token, nil))
	if found {
		t.Fatal("query token must not authenticate a plain request")
	}

	upgrade := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stream?access_token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	handler.ServeHTTP(httptest.NewRecorder(), upgrade)
	if !found {
		t.Fatal("expected operator from query token on websocket upgrade")
	}
}

func TestAuthMiddlewareAcceptsSessionCookie(t *testing.T) {
	token, _ := auth.GenerateToken("s", auth.Claims{Login: "admin", Role: auth.RoleOperator}, time.Hour)
	var found bool
	handler := Auth("s")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = GetOperator(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !found {
		t.Fatal("expected operator from session cookie")
	}
}

func TestRequirePageOperatorRedirects(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequirePageOperator(true, "/login")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	ctx := context.WithValue(context.Background(), ctxKeyOperator, auth.Claims{Login: "admin", Role: auth.RoleOperator})
	rec = httptest.NewRecorder()
	RequirePageOperator(true, "/login")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil).WithContext(ctx))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected operator through, got %d", rec.Code)
	}
}

func TestAuthMiddlewareMissingOrBadToken(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetOperator(r.Context()); ok {
			t.Fatal("did not expect operator in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequireOperator(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequireOperator(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	RequireOperator(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough when disabled, got %d", rec.Code)
	}

	ctx := context.WithValue(context.Background(), ctxKeyOperator, auth.Claims{Login: "admin", Role: "viewer"})
	rec = httptest.NewRecorder()
	RequireOperator(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d", rec.Code)
	}
}

func TestRateLimitUsesOperatorKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := context.WithValue(context.Background(), ctxKeyOperator, auth.Claims{Login: "admin", Role: auth.RoleOperator})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/employees/1/aggregate-subordinates", nil).WithContext(ctx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/employees/1/aggregate-subordinates", nil).WithContext(ctx)
	second.RemoteAddr = "198.51.100.12:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by operator key, got %d", secondRec.Code)
	}
	if secondRec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestLoginRateLimitKeysOnLoginAndPreservesBody(t *testing.T) {
	var bodies []string
	limited := LoginRateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		bodies = append(bodies, buf.String())
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{"login":"Admin","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("203.0.113.1:1"); code != http.StatusNoContent {
		t.Fatalf("expected first login attempt to pass, got %d", code)
	}
	if code := send("203.0.113.2:1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second attempt for same login to be throttled, got %d", code)
	}
	if len(bodies) != 1 || !strings.Contains(bodies[0], `"login":"Admin"`) {
		t.Fatalf("expected body to reach handler intact, got %v", bodies)
	}
}

func TestSecureHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecureHeaders(true)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("missing security headers %v", rec.Header())
	}
}
