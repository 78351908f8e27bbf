package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"perfdash/internal/auth"
	"perfdash/internal/domain/audit"
	"perfdash/internal/transport/http/api"
	"perfdash/internal/transport/http/middleware"
	"perfdash/internal/transport/http/shared"
)

type Handler struct {
	Operator     auth.Operator
	Secret       string
	TTL          time.Duration
	Audit        shared.Auditor
	SecureCookie bool
}

var errTokenFailed = errors.New("token generation failed")

func NewHandler(operator auth.Operator, secret string, ttl time.Duration, auditor shared.Auditor) *Handler {
	return &Handler{Operator: operator, Secret: secret, TTL: ttl, Audit: auditor}
}

type tokenRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	if h.Secret == "" {
		api.Fail(w, http.StatusNotFound, "auth_disabled", "token issuance is not configured", requestID)
		return
	}

	var payload tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("login", payload.Login)
	v.Required("password", payload.Password)
	if v.Reject(w, requestID) {
		return
	}

	token, expiresAt, err := h.issue(r, payload.Login, payload.Password)
	switch {
	case errors.Is(err, errTokenFailed):
		api.Fail(w, http.StatusInternalServerError, "token_failed", "failed to issue token", requestID)
		return
	case err != nil:
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}
	api.Success(w, tokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, requestID)
}

// issue verifies the operator and signs a token, auditing either outcome.
func (h *Handler) issue(r *http.Request, login, password string) (string, time.Time, error) {
	requestID := middleware.GetRequestID(r.Context())
	if err := h.Operator.Verify(login, password); err != nil {
		slog.Warn("operator login rejected", "login", login, "requestId", requestID)
		shared.Audit(h.Audit, r, audit.ActionTokenRejected, "operator", login, audit.OutcomeFailed)
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(h.TTL).UTC()
	token, err := auth.GenerateToken(h.Secret, auth.Claims{Login: h.Operator.Login, Role: auth.RoleOperator}, h.TTL)
	if err != nil {
		slog.Error("token generation failed", "err", err, "requestId", requestID)
		return "", time.Time{}, errTokenFailed
	}
	shared.Audit(h.Audit, r, audit.ActionTokenIssued, "operator", h.Operator.Login, audit.OutcomeOK)
	return token, expiresAt, nil
}
