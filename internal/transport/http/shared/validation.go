package shared

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"perfdash/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field problems so a request can be rejected with all of
// them at once.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 2)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil || strings.TrimSpace(reason) == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: strings.TrimSpace(reason)})
}

func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

// PositiveID parses an Odoo record id.
func (v *Validator) PositiveID(field, raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		v.Add(field, "must be a positive integer")
		return 0
	}
	return id
}

// NonNegativeInt parses an optional integer; empty input yields fallback.
func (v *Validator) NonNegativeInt(field, raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		v.Add(field, "must be a non-negative integer")
		return fallback
	}
	return n
}

// Time accepts RFC3339 or YYYY-MM-DD; empty input yields the zero time.
func (v *Validator) Time(field, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		v.Add(field, "must be RFC3339 or YYYY-MM-DD")
		return time.Time{}
	}
	return parsed
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Reject writes a 400 with every issue and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed",
		map[string]any{"fields": v.Issues()}, requestID)
	return true
}
