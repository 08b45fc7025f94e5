// Package gatekeeper derives role-aware sessions from an external identity
// provider and coordinates account signup, including a paid admin tier that
// must survive a full-page redirect to an external checkout service.
//
// Session lifecycle:
//   - SessionObserver subscribes to an IdentityClient change stream and
//     resolves the matching Profile into a Session value. Sessions carry a
//     distinct pending state so consumers can render a neutral view while
//     resolution is in flight instead of guessing.
//   - RouteGuard maps (Session, route) pairs to allow/redirect/pending
//     decisions. Decisions are computed fresh on every call; nothing is
//     cached between navigations.
//
// Signup orchestration:
//   - SignupOrchestrator centralizes the transition graph for account
//     provisioning. Guest signups provision directly. Admin signups persist
//     a SignupDraft into a DraftStore before any checkout redirect is
//     initiated, then resume from the stored draft when the browser returns
//     with a checkout marker. The suspended state of the machine is defined
//     by what is in storage, never by an in-memory flag, since the process
//     may fully restart between suspension and resume.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the orchestrator
//     and observer to describe signup, checkout, and session events. Sinks
//     run best-effort (errors are logged) so you can forward to a database
//     or queue without blocking provisioning.
//
// Subpackages: identity/local and identity/hosted provide IdentityClient
// implementations (in-process credential store, JWKS-verified hosted
// provider), checkout builds the provider redirect, and activitymap
// normalizes activity events for downstream feeds.
package gatekeeper
