package gatekeeper

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignupValidated  ActivityEventType = "signup.validated"
	ActivityEventSignupCompleted  ActivityEventType = "signup.completed"
	ActivityEventSignupFailed     ActivityEventType = "signup.failed"
	ActivityEventCheckoutRedirect ActivityEventType = "signup.checkout.redirect"
	ActivityEventCheckoutResumed  ActivityEventType = "signup.checkout.resumed"
	ActivityEventCheckoutCanceled ActivityEventType = "signup.checkout.canceled"
	ActivityEventSocialSignup     ActivityEventType = "signup.social"
	ActivityEventSessionChanged   ActivityEventType = "session.changed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	IdentityID string
	Email      string
	FromState  State
	ToState    State
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
