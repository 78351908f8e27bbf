package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"perfdash/internal/domain/audit"
)

func TestValidatorRejectsWithAllIssues(t *testing.T) {
	v := NewValidator()
	v.Required("password", " ")
	if id := v.PositiveID("employeeId", "-4"); id != 0 {
		t.Fatalf("expected 0 for bad id, got %d", id)
	}
	if got := v.Time("since", "yesterday"); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-9") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "validation_error" || len(env.Error.Details.Fields) != 3 {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if env.Error.Details.Fields[0].Field != "employeeId" {
		t.Fatalf("expected issues sorted by field, got %+v", env.Error.Details.Fields)
	}
}

func TestValidatorAcceptsGoodInput(t *testing.T) {
	v := NewValidator()
	if id := v.PositiveID("employeeId", "42"); id != 42 {
		t.Fatalf("expected 42, got %d", id)
	}
	if got := v.Time("since", "2026-02-03"); !got.Equal(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	if got := v.Time("since", "2026-02-03T10:00:00Z"); got.Hour() != 10 {
		t.Fatalf("unexpected timestamp %v", got)
	}
	if v.Reject(httptest.NewRecorder(), "") {
		t.Fatal("expected no rejection")
	}
}

func TestParsePagination(t *testing.T) {
	v := NewValidator()
	page := ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil), v, 50, 200)
	if page.Limit != 200 || page.Offset != 20 || v.HasIssues() {
		t.Fatalf("unexpected page %+v", page)
	}

	page = ParsePagination(httptest.NewRequest(http.MethodGet, "/", nil), v, 50, 200)
	if page.Limit != 50 || page.Offset != 0 {
		t.Fatalf("unexpected defaults %+v", page)
	}

	ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=abc", nil), v, 50, 200)
	if !v.HasIssues() {
		t.Fatal("expected malformed limit to be reported")
	}
}

type recordingAuditor struct {
	events []audit.Event
}

func (r *recordingAuditor) Record(_ context.Context, evt audit.Event) {
	r.events = append(r.events, evt)
}

func TestAuditFillsRequestContext(t *testing.T) {
	auditor := &recordingAuditor{}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"

	Audit(auditor, req, audit.ActionAggregate, "hr.employee", "42", audit.OutcomeOK)
	Audit(nil, req, audit.ActionAggregate, "hr.employee", "42", audit.OutcomeOK)

	if len(auditor.events) != 1 {
		t.Fatalf("expected one event, got %d", len(auditor.events))
	}
	evt := auditor.events[0]
	if evt.ActorID != "anonymous" || evt.IP != "10.1.2.3" || evt.EntityID != "42" {
		t.Fatalf("unexpected event %+v", evt)
	}
}
