package dashboard

import (
	"context"
	"net/url"
)

const (
	ActionTypeWindow = "ir.actions.act_window"

	ModelObjective   = "performance.objective"
	ModelPerformance = "employee.performance"

	AppraisalEntriesAction = "employee_performance.action_employee_performance_entries"
)

// Action asks the host to open a view. Either a window action on a model or
// a reference to a stored action by XML id.
type Action struct {
	Type     string  `json:"type,omitempty"`
	Name     string  `json:"name,omitempty"`
	ResModel string  `json:"res_model,omitempty"`
	ViewMode string  `json:"view_mode,omitempty"`
	Views    [][]any `json:"views,omitempty"`
	Target   string  `json:"target,omitempty"`
	XMLID    string  `json:"xml_id,omitempty"`
}

// Dispatcher delivers actions to whatever opens views. Dispatch is fire and
// forget.
type Dispatcher interface {
	Dispatch(ctx context.Context, action Action)
}

type DispatcherFunc func(ctx context.Context, action Action)

func (f DispatcherFunc) Dispatch(ctx context.Context, action Action) {
	f(ctx, action)
}

func formAction(name, model string) Action {
	return Action{
		Type:     ActionTypeWindow,
		Name:     name,
		ResModel: model,
		ViewMode: "form",
		Views:    [][]any{{false, "form"}},
		Target:   "current",
	}
}

func AddKPIAction() Action {
	return formAction("Add KPI", ModelObjective)
}

func EvaluatePerformanceAction() Action {
	return formAction("Evaluate Performance", ModelPerformance)
}

func SubmitAppraisalAction() Action {
	return Action{XMLID: AppraisalEntriesAction}
}

// WebURL points the Odoo web client at the action.
func (a Action) WebURL(base string) string {
	fragment := url.Values{}
	if a.XMLID != "" {
		fragment.Set("action", a.XMLID)
	} else {
		fragment.Set("model", a.ResModel)
		fragment.Set("view_type", a.ViewMode)
	}
	return base + "/web#" + fragment.Encode()
}
