package gatekeeper_test

import (
	"context"
	"testing"

	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContextRoundTrip(t *testing.T) {
	identity := gatekeeper.Identity{ID: "0191d4a0-0000-7000-8000-000000000070", Email: "ana@example.com"}
	session := gatekeeper.AuthenticatedSession(identity, gatekeeper.RoleAdmin)

	ctx := gatekeeper.WithSessionContext(context.Background(), session)

	got, ok := gatekeeper.SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, session, got)
}

func TestSessionFromContextMissing(t *testing.T) {
	_, ok := gatekeeper.SessionFromContext(context.Background())
	assert.False(t, ok)
}

func TestSessionFromRouterContext(t *testing.T) {
	session := gatekeeper.AnonymousSession()

	ctx := router.NewMockContext()
	ctx.LocalsMock[gatekeeper.SessionContextKey] = session

	got, ok := gatekeeper.SessionFromRouterContext(ctx)
	require.True(t, ok)
	assert.Equal(t, session, got)

	_, ok = gatekeeper.SessionFromRouterContext(ctx, "other_key")
	assert.False(t, ok)
}
