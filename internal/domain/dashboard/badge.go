package dashboard

import "strings"

const DefaultBadgeClass = "bg-secondary"

// statusBadges covers both record states and the KPI progress labels the
// dashboard table shows.
var statusBadges = map[string]string{
	StatusDone:      "bg-success",
	StatusConfirmed: "bg-primary",
	StatusChecked:   "bg-info",
	StatusDraft:     "bg-secondary",
	"achieved":      "bg-success",
	"on track":      "bg-primary",
	"exceeded":      "bg-info",
	"at risk":       "bg-warning",
	"behind":        "bg-danger",
}

const (
	StatusDraft     = "draft"
	StatusChecked   = "checked"
	StatusConfirmed = "confirmed"
	StatusDone      = "done"
)

// StatusBadgeClass maps a free-text status to a badge style. Matching is
// case-insensitive; anything unknown gets DefaultBadgeClass.
func StatusBadgeClass(status string) string {
	if class, ok := statusBadges[strings.ToLower(strings.TrimSpace(status))]; ok {
		return class
	}
	return DefaultBadgeClass
}
