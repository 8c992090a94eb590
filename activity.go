package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventAccountCreated     ActivityEventType = "account.created"
	ActivityEventAccountStatus      ActivityEventType = "account.status.changed"
	ActivityEventAccountAccess      ActivityEventType = "account.access.changed"
	ActivityEventPasswordChanged    ActivityEventType = "account.password.changed"
	ActivityEventBootstrap          ActivityEventType = "auth.bootstrap"
	ActivityEventBranchRoleAssigned ActivityEventType = "branch.role.assigned"
	ActivityEventBranchRoleCleared  ActivityEventType = "branch.role.cleared"
	ActivityEventBranchCreated      ActivityEventType = "branch.created"
)

// ActorRef identifies who performed an action
type ActorRef struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	BranchID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// NewLoggingActivitySink writes every event to the logger at info level
func NewLoggingActivitySink(logger Logger) ActivitySink {
	logger = normalizeLogger(logger)
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		args := []any{
			"event", string(event.EventType),
			"actor_id", event.Actor.ID,
			"actor_type", event.Actor.Type,
		}
		if event.AccountID != "" {
			args = append(args, "account_id", event.AccountID)
		}
		if event.BranchID != "" {
			args = append(args, "branch_id", event.BranchID)
		}
		for k, v := range event.Metadata {
			args = append(args, k, v)
		}
		logger.Info("activity", args...)
		return nil
	})
}

// recordActivity never fails the caller, sink errors are only logged
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if sink == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := sink.Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink failed", "event", string(event.EventType), "error", err)
	}
}
