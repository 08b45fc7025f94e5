package gatekeeper

import "fmt"

// AuthState is the three-valued authentication status of a Session. The
// pending state means resolution is in progress; consumers must treat it
// distinctly from both authenticated and anonymous.
type AuthState string

const (
	// AuthStatePending means an identity event arrived but the profile is
	// still being resolved
	AuthStatePending AuthState = "pending"
	// AuthStateAnonymous means no identity is signed in, or the signed-in
	// identity has no profile
	AuthStateAnonymous AuthState = "anonymous"
	// AuthStateAuthenticated means an identity with a resolved profile is
	// signed in
	AuthStateAuthenticated AuthState = "authenticated"
)

// Session is the derived, UI-facing summary of authentication and role. It
// is never stored; SessionObserver recomputes it on every identity event.
type Session struct {
	State    AuthState
	Role     Role
	Identity *Identity
}

// PendingSession is the neutral session while resolution is in flight.
func PendingSession() Session {
	return Session{State: AuthStatePending}
}

// AnonymousSession is the signed-out session. A signed-in identity with no
// profile degrades to this as well.
func AnonymousSession() Session {
	return Session{State: AuthStateAnonymous}
}

// AuthenticatedSession builds a resolved session for the given identity.
func AuthenticatedSession(identity Identity, role Role) Session {
	return Session{
		State:    AuthStateAuthenticated,
		Role:     role,
		Identity: &identity,
	}
}

// Pending reports whether resolution is still in progress.
func (s Session) Pending() bool {
	return s.State == AuthStatePending
}

// Authenticated reports whether an identity with a profile is signed in.
func (s Session) Authenticated() bool {
	return s.State == AuthStateAuthenticated
}

// HasRole checks if the session carries a specific role.
func (s Session) HasRole(role Role) bool {
	return s.Authenticated() && s.Role == role
}

// IsAtLeast checks if the session's role meets the minimum required level.
func (s Session) IsAtLeast(minRole Role) bool {
	return s.Authenticated() && RoleIsAtLeast(s.Role, minRole)
}

// IsAdmin reports whether the session belongs to a paid admin.
func (s Session) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

func (s Session) String() string {
	id := "<nil>"
	if s.Identity != nil {
		id = s.Identity.ID
	}
	return fmt.Sprintf("state=%s role=%s identity=%s", s.State, s.Role, id)
}
