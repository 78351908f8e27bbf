package hierarchyhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"perfdash/internal/domain/audit"
	"perfdash/internal/platform/odoo"
)

type stubAggregator struct {
	ids    []int64
	result json.RawMessage
	err    error
}

func (s *stubAggregator) AggregateForEmployee(_ context.Context, employeeID int64) (json.RawMessage, error) {
	s.ids = append(s.ids, employeeID)
	return s.result, s.err
}

type stubRecorder struct {
	errs []error
}

func (s *stubRecorder) RecordAggregate(err error) {
	s.errs = append(s.errs, err)
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
	return rec
}

func TestAggregateForwardsResult(t *testing.T) {
	agg := &stubAggregator{result: json.RawMessage(`{"type":"ir.actions.client","tag":"display_notification"}`)}
	recorder := &stubRecorder{}
	auditor := audit.New(10)
	rec := serve(NewHandler(agg, recorder, auditor), "/employees/42/aggregate-subordinates")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(agg.ids) != 1 || agg.ids[0] != 42 {
		t.Fatalf("expected one call for 42, got %v", agg.ids)
	}
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || string(env.Data) != string(agg.result) {
		t.Fatalf("expected verbatim result, got %s", env.Data)
	}
	if len(recorder.errs) != 1 || recorder.errs[0] != nil {
		t.Fatalf("expected success recorded, got %v", recorder.errs)
	}
	events := auditor.List(audit.Filter{Action: audit.ActionAggregate}, 0, 0)
	if len(events) != 1 || events[0].EntityID != "42" || events[0].Outcome != audit.OutcomeOK {
		t.Fatalf("unexpected audit trail %+v", events)
	}
}

func TestAggregateRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"abc", "0", "-3"} {
		agg := &stubAggregator{}
		rec := serve(NewHandler(agg, nil, nil), fmt.Sprintf("/employees/%s/aggregate-subordinates", id))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", id, rec.Code)
		}
		if len(agg.ids) != 0 {
			t.Fatalf("%s: expected no upstream call", id)
		}
	}
}

func TestAggregateFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{name: "fault", err: &odoo.Fault{Code: 200, Data: odoo.FaultData{Message: "no rights"}}, want: http.StatusBadGateway, code: "aggregation_failed"},
		{name: "timeout", err: fmt.Errorf("object.execute_kw request: %w", context.DeadlineExceeded), want: http.StatusGatewayTimeout, code: "upstream_timeout"},
		{name: "transport", err: errors.New("connection refused"), want: http.StatusBadGateway, code: "upstream_unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := &stubRecorder{}
			auditor := audit.New(10)
			rec := serve(NewHandler(&stubAggregator{err: tc.err}, recorder, auditor), "/employees/9/aggregate-subordinates")
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			_ = json.NewDecoder(rec.Body).Decode(&env)
			if env.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, env.Error.Code)
			}
			if len(recorder.errs) != 1 || recorder.errs[0] == nil {
				t.Fatal("expected failure recorded")
			}
			if auditor.Count(audit.Filter{}) != 1 || auditor.List(audit.Filter{}, 1, 0)[0].Outcome != audit.OutcomeFailed {
				t.Fatal("expected failed aggregation audited")
			}
		})
	}
}
