package gatekeeper

import "strings"

// Decision is the outcome of evaluating a session against a route. Exactly
// one of Allow, Pending, or a non-empty RedirectTo is set.
type Decision struct {
	Allow      bool
	Pending    bool
	RedirectTo string
}

// Allowed lets the navigation proceed.
func Allowed() Decision {
	return Decision{Allow: true}
}

// RedirectDecision sends the navigation elsewhere.
func RedirectDecision(to string) Decision {
	return Decision{RedirectTo: to}
}

// PendingDecision renders a neutral loading placeholder: neither allow nor
// redirect while session resolution is in flight.
func PendingDecision() Decision {
	return Decision{Pending: true}
}

// GuardConfig declares the route policy. Routes not listed as public or
// admin-only are treated as authenticated-only.
type GuardConfig struct {
	// PublicRoutes are always allowed (landing, login, signup, marketing).
	PublicRoutes []string

	// AdminRoutes require an authenticated admin session.
	AdminRoutes []string

	// LoginRoute receives unauthenticated visitors of protected routes.
	LoginRoute string

	// HomeRoute is the default authenticated landing route. Authenticated
	// non-admins hitting an admin route land here, not on login, to avoid
	// a redirect loop.
	HomeRoute string
}

// RouteGuard is a pure policy table over (Session, route). It holds no
// mutable state, so decisions are never stale: re-evaluate on every session
// change and every navigation.
type RouteGuard struct {
	public map[string]struct{}
	admin  map[string]struct{}
	login  string
	home   string
}

// NewRouteGuard builds a guard from the config, applying the default route
// layout for any field left empty.
func NewRouteGuard(cfg GuardConfig) *RouteGuard {
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/login"
	}
	if cfg.HomeRoute == "" {
		cfg.HomeRoute = "/home"
	}
	if cfg.PublicRoutes == nil {
		cfg.PublicRoutes = []string{"/", "/intro", cfg.LoginRoute, "/signup"}
	}
	if cfg.AdminRoutes == nil {
		cfg.AdminRoutes = []string{"/admin"}
	}

	g := &RouteGuard{
		public: make(map[string]struct{}, len(cfg.PublicRoutes)),
		admin:  make(map[string]struct{}, len(cfg.AdminRoutes)),
		login:  cfg.LoginRoute,
		home:   cfg.HomeRoute,
	}
	for _, r := range cfg.PublicRoutes {
		g.public[normalizeRoute(r)] = struct{}{}
	}
	for _, r := range cfg.AdminRoutes {
		g.admin[normalizeRoute(r)] = struct{}{}
	}
	return g
}

// LoginRoute returns the configured login route.
func (g *RouteGuard) LoginRoute() string { return g.login }

// HomeRoute returns the default authenticated landing route.
func (g *RouteGuard) HomeRoute() string { return g.home }

// Decide evaluates the policy table in order:
//
//  1. pending session: loading placeholder, nothing allowed or redirected
//  2. public route: always allow
//  3. any protected route without an authenticated session: redirect login
//  4. admin route without the admin role: redirect to the authenticated
//     landing route
func (g *RouteGuard) Decide(session Session, route string) Decision {
	route = normalizeRoute(route)

	if session.Pending() {
		return PendingDecision()
	}

	if _, ok := g.public[route]; ok {
		return Allowed()
	}

	if !session.Authenticated() {
		return RedirectDecision(g.login)
	}

	if _, ok := g.admin[route]; ok && !session.IsAdmin() {
		return RedirectDecision(g.home)
	}

	return Allowed()
}

func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	return route
}
