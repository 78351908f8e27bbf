// Package hierarchy triggers bottom-up KPI aggregation for a supervisor's
// subordinates on the Odoo side.
package hierarchy

import (
	"context"
	"encoding/json"
)

const (
	ModelEmployee   = "hr.employee"
	AggregateMethod = "action_aggregate_subordinates"
)

type Caller interface {
	Call(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error)
}

type Service struct {
	caller Caller
}

func NewService(caller Caller) *Service {
	return &Service{caller: caller}
}

// AggregateForEmployee asks the server to roll subordinate records up into
// employeeID's own records. The result, or the error, is the server's.
func (s *Service) AggregateForEmployee(ctx context.Context, employeeID int64) (json.RawMessage, error) {
	return AggregateForEmployee(ctx, s.caller, employeeID)
}

// AggregateForEmployee issues the aggregation call with caller directly. The
// server method takes a batch of ids; a single id is always sent.
func AggregateForEmployee(ctx context.Context, caller Caller, employeeID int64) (json.RawMessage, error) {
	return caller.Call(ctx, ModelEmployee, AggregateMethod, []any{[]int64{employeeID}}, nil)
}
