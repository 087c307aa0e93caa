package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegister     ActivityEventType = "auth.register"
	ActivityEventLoginSuccess ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefresh ActivityEventType = "auth.token.refresh"
	ActivityEventLogout       ActivityEventType = "auth.logout"
	ActivityEventUserUpdated  ActivityEventType = "user.updated"
	ActivityEventUserDeleted  ActivityEventType = "user.deleted"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    string
	UserID     string
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

// LoggingActivitySink writes every event to a Logger at info level
type LoggingActivitySink struct {
	logger Logger
}

// NewLoggingActivitySink returns a sink backed by logger
func NewLoggingActivitySink(logger Logger) *LoggingActivitySink {
	if logger == nil {
		logger = defaultLogger()
	}
	return &LoggingActivitySink{logger: logger}
}

// Record implements ActivitySink.
func (s *LoggingActivitySink) Record(_ context.Context, event ActivityEvent) error {
	args := []any{
		"event", string(event.EventType),
		"user_id", event.UserID,
		"occurred_at", event.OccurredAt,
	}
	if event.ActorID != "" {
		args = append(args, "actor_id", event.ActorID)
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}

	if event.EventType == ActivityEventLoginFailure {
		s.logger.Warn("activity", args...)
		return nil
	}
	s.logger.Info("activity", args...)
	return nil
}

// recordActivity is best effort, sink failures are logged and dropped
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink failed", "event", string(event.EventType), "error", err)
	}
}
