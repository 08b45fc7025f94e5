package gatekeeper

import (
	"context"
	"sync"
)

// ObserverOption customizes SessionObserver construction.
type ObserverOption func(*SessionObserver)

// WithObserverLogger overrides the logger used for resolution anomalies.
func WithObserverLogger(logger Logger) ObserverOption {
	return func(o *SessionObserver) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserverActivitySink sets the ActivitySink notified on session changes.
func WithObserverActivitySink(sink ActivitySink) ObserverOption {
	return func(o *SessionObserver) {
		o.sink = normalizeActivitySink(sink)
	}
}

// WithObserverContext sets the base context for profile fetches. Close
// cancels a context derived from it.
func WithObserverContext(ctx context.Context) ObserverOption {
	return func(o *SessionObserver) {
		if ctx != nil {
			o.baseCtx = ctx
		}
	}
}

// SessionObserver owns a subscription to an IdentityClient change stream
// and exposes the single current Session value. Each identity event is
// numbered; a profile fetch started for an older event is discarded on
// completion if a newer event has since fired, so the session never
// reflects stale state. Close releases the subscription and discards any
// in-flight resolution.
type SessionObserver struct {
	mu          sync.Mutex
	profiles    ProfileStore
	logger      Logger
	sink        ActivitySink
	baseCtx     context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	session     Session
	seq         uint64
	subscribers map[int]func(Session)
	nextSub     int
	unsubscribe Unsubscribe
	closed      bool
}

// NewSessionObserver subscribes to the identity change stream on
// construction. The stream fires once immediately, so the observer holds a
// meaningful session before this returns (pending when an identity is
// present and its profile is still resolving).
func NewSessionObserver(identities IdentityClient, profiles ProfileStore, opts ...ObserverOption) *SessionObserver {
	o := &SessionObserver{
		profiles:    profiles,
		logger:      defLogger{},
		sink:        noopActivitySink{},
		baseCtx:     context.Background(),
		session:     PendingSession(),
		subscribers: map[int]func(Session){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	o.ctx, o.cancel = context.WithCancel(o.baseCtx)
	o.unsubscribe = identities.OnChange(o.handleChange)

	return o
}

// Current returns the session as of the most recent identity event.
func (o *SessionObserver) Current() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Subscribe registers a callback invoked on every session change. The
// callback fires once immediately with the current session. The returned
// function releases the subscription.
func (o *SessionObserver) Subscribe(fn func(Session)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	current := o.session
	o.mu.Unlock()

	fn(current)

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}

// Close releases the identity subscription and stops further session
// updates. In-flight profile fetches that resolve after Close are
// discarded. Close is idempotent.
func (o *SessionObserver) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	unsub := o.unsubscribe
	o.mu.Unlock()

	o.cancel()
	if unsub != nil {
		unsub()
	}
	return nil
}

func (o *SessionObserver) handleChange(identity *Identity) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}

	o.seq++
	seq := o.seq

	if identity == nil {
		fns := o.setSessionLocked(AnonymousSession())
		session := o.session
		o.mu.Unlock()
		o.publish(session, fns)
		return
	}

	ident := *identity
	fns := o.setSessionLocked(PendingSession())
	session := o.session
	o.mu.Unlock()
	o.publish(session, fns)

	go o.resolve(seq, ident)
}

// resolve completes an identity event by fetching the profile. Stale
// results (a newer event fired meanwhile) and post-Close results are
// dropped without touching the session.
func (o *SessionObserver) resolve(seq uint64, identity Identity) {
	profile, err := o.profiles.Get(o.ctx, identity.ID)

	o.mu.Lock()
	if o.closed || seq != o.seq {
		o.mu.Unlock()
		return
	}

	var next Session
	if err != nil {
		// Missing profile for a signed-in identity is a recoverable
		// anomaly, not a fatal error: degrade to anonymous.
		o.logger.Warn("profile resolution failed for identity %s: %v", identity.ID, err)
		next = AnonymousSession()
	} else {
		next = AuthenticatedSession(identity, profile.Role)
	}

	fns := o.setSessionLocked(next)
	o.mu.Unlock()
	o.publish(next, fns)
}

func (o *SessionObserver) setSessionLocked(s Session) []func(Session) {
	o.session = s
	fns := make([]func(Session), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		fns = append(fns, fn)
	}
	return fns
}

func (o *SessionObserver) publish(s Session, fns []func(Session)) {
	for _, fn := range fns {
		fn(s)
	}

	event := ActivityEvent{
		EventType: ActivityEventSessionChanged,
		Metadata:  map[string]any{"state": string(s.State), "role": string(s.Role)},
	}
	if s.Identity != nil {
		event.IdentityID = s.Identity.ID
		event.Email = s.Identity.Email
	}
	if err := o.sink.Record(o.ctx, event); err != nil {
		o.logger.Warn("session observer activity sink error: %v", err)
	}
}
