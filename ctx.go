package gatekeeper

import (
	"context"

	"github.com/goliatone/go-router"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// SessionContextKey is the router locals key GuardMiddleware stores the
// evaluated session under.
const SessionContextKey = "gatekeeper_session"

// WithSessionContext sets the Session in the given context
func WithSessionContext(r context.Context, session Session) context.Context {
	return context.WithValue(r, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// SessionFromRouterContext extracts the session GuardMiddleware stored in
// the router locals.
func SessionFromRouterContext(ctx router.Context, key ...string) (Session, bool) {
	k := SessionContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}

	raw, ok := ctx.Locals(k).(Session)
	return raw, ok
}
