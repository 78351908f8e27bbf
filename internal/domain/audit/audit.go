// Package audit keeps a bounded, in-memory trail of operator activity. Every
// event is also written to the structured log, which is the durable record.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ActionDashboardAction = "dashboard.action"
	ActionAggregate       = "employee.aggregate_subordinates"
	ActionTokenIssued     = "auth.token_issued"
	ActionTokenRejected   = "auth.token_rejected"
	ActionSessionEnded    = "auth.session_ended"

	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

type Event struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Outcome    string    `json:"outcome"`
	RequestID  string    `json:"requestId"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
	Actor      string
	Since      time.Time
}

type Log struct {
	mu       sync.Mutex
	events   []Event
	next     int
	full     bool
	capacity int
	now      func() time.Time
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 500
	}
	return &Log{events: make([]Event, capacity), capacity: capacity, now: time.Now}
}

// Record stamps evt and stores it, evicting the oldest event once full.
func (l *Log) Record(ctx context.Context, evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Outcome == "" {
		evt.Outcome = OutcomeOK
	}

	l.mu.Lock()
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = l.now().UTC()
	}
	l.events[l.next] = evt
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.full = true
	}
	l.mu.Unlock()

	slog.InfoContext(ctx, "audit",
		"action", evt.Action,
		"actor", evt.ActorID,
		"entityType", evt.EntityType,
		"entityId", evt.EntityID,
		"outcome", evt.Outcome,
		"requestId", evt.RequestID,
		"ip", evt.IP,
	)
}

func (l *Log) Count(filter Filter) int {
	return len(l.matching(filter))
}

// List returns matching events newest first.
func (l *Log) List(filter Filter, limit, offset int) []Event {
	events := l.matching(filter)
	if offset >= len(events) {
		return []Event{}
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}

func (l *Log) matching(filter Filter) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.full {
		size = l.capacity
	}
	out := make([]Event, 0, size)
	for i := 1; i <= size; i++ {
		evt := l.events[(l.next-i+l.capacity)%l.capacity]
		if filter.matches(evt) {
			out = append(out, evt)
		}
	}
	return out
}

func (f Filter) matches(evt Event) bool {
	if f.Action != "" && !strings.EqualFold(f.Action, evt.Action) {
		return false
	}
	if f.EntityType != "" && !strings.EqualFold(f.EntityType, evt.EntityType) {
		return false
	}
	if f.Actor != "" && f.Actor != evt.ActorID {
		return false
	}
	if !f.Since.IsZero() && evt.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
