package gatekeeper_test

import (
	"testing"

	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/stretchr/testify/assert"
)

func anonymous() gatekeeper.Session {
	return gatekeeper.AnonymousSession()
}

func authenticatedAs(role gatekeeper.Role) gatekeeper.Session {
	return gatekeeper.AuthenticatedSession(gatekeeper.Identity{
		ID:    "0191d4a0-0000-7000-8000-000000000030",
		Email: "ana@example.com",
	}, role)
}

func TestGuardPendingSessionHoldsEveryRoute(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	for _, route := range []string{"/", "/login", "/home", "/admin", "/reports"} {
		decision := guard.Decide(gatekeeper.PendingSession(), route)
		assert.True(t, decision.Pending, "route %s", route)
		assert.False(t, decision.Allow, "route %s", route)
		assert.Empty(t, decision.RedirectTo, "route %s", route)
	}
}

func TestGuardPublicRoutesAlwaysAllowed(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	for _, route := range []string{"/", "/intro", "/login", "/signup"} {
		assert.True(t, guard.Decide(anonymous(), route).Allow, "route %s", route)
		assert.True(t, guard.Decide(authenticatedAs(gatekeeper.RoleGuest), route).Allow, "route %s", route)
	}
}

func TestGuardProtectedRouteRedirectsAnonymousToLogin(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	decision := guard.Decide(anonymous(), "/home")
	assert.Equal(t, "/login", decision.RedirectTo)
	assert.False(t, decision.Allow)
}

func TestGuardAdminRouteRequiresAdminRole(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	// authenticated non-admins land on home, not login, to avoid a
	// redirect loop
	for _, role := range []gatekeeper.Role{gatekeeper.RoleGuest, gatekeeper.RoleModerator} {
		decision := guard.Decide(authenticatedAs(role), "/admin")
		assert.Equal(t, "/home", decision.RedirectTo, "role %s", role)
	}

	assert.True(t, guard.Decide(authenticatedAs(gatekeeper.RoleAdmin), "/admin").Allow)
}

func TestGuardAdminRouteUnauthenticatedGoesToLogin(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	// the authentication rule wins before the role rule
	decision := guard.Decide(anonymous(), "/admin")
	assert.Equal(t, "/login", decision.RedirectTo)
}

func TestGuardAuthenticatedAllowedOnProtectedRoutes(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	assert.True(t, guard.Decide(authenticatedAs(gatekeeper.RoleGuest), "/home").Allow)
	assert.True(t, guard.Decide(authenticatedAs(gatekeeper.RoleModerator), "/reports").Allow)
}

func TestGuardNormalizesRoutes(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{})

	assert.True(t, guard.Decide(anonymous(), "/login/").Allow)
	assert.True(t, guard.Decide(anonymous(), "/signup?checkout=success&plan=monthly").Allow)
	assert.True(t, guard.Decide(anonymous(), "/intro#pricing").Allow)
	assert.Equal(t, "/home", guard.Decide(authenticatedAs(gatekeeper.RoleGuest), "/admin/").RedirectTo)
}

func TestGuardCustomConfig(t *testing.T) {
	guard := gatekeeper.NewRouteGuard(gatekeeper.GuardConfig{
		PublicRoutes: []string{"/", "/welcome"},
		AdminRoutes:  []string{"/backoffice"},
		LoginRoute:   "/auth/login",
		HomeRoute:    "/dashboard",
	})

	assert.True(t, guard.Decide(anonymous(), "/welcome").Allow)
	assert.Equal(t, "/auth/login", guard.Decide(anonymous(), "/dashboard").RedirectTo)
	assert.Equal(t, "/dashboard", guard.Decide(authenticatedAs(gatekeeper.RoleGuest), "/backoffice").RedirectTo)
	assert.Equal(t, "/auth/login", guard.LoginRoute())
	assert.Equal(t, "/dashboard", guard.HomeRoute())
}
