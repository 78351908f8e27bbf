package shared

import (
	"context"
	"net/http"

	"perfdash/internal/domain/audit"
	"perfdash/internal/transport/http/middleware"
)

type Auditor interface {
	Record(ctx context.Context, evt audit.Event)
}

// Audit records an operator event for r. A nil auditor is a no-op.
func Audit(a Auditor, r *http.Request, action, entityType, entityID, outcome string) {
	if a == nil {
		return
	}
	actor := "anonymous"
	if claims, ok := middleware.GetOperator(r.Context()); ok {
		actor = claims.Login
	}
	a.Record(r.Context(), audit.Event{
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Outcome:    outcome,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         middleware.ClientIP(r),
	})
}
