package gatekeeper

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// State identifies a position in the signup transition graph.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateAwaitingCheckout State = "awaiting_checkout"
	StateResuming         State = "resuming"
	StateProvisioning     State = "provisioning"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// TransitionHook observes every state change, in order.
type TransitionHook func(from, to State)

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*SignupOrchestrator)

// WithOrchestratorLogger overrides the default logger.
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *SignupOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOrchestratorClock injects a custom clock (useful for tests).
func WithOrchestratorClock(clock func() time.Time) OrchestratorOption {
	return func(o *SignupOrchestrator) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithOrchestratorActivitySink sets the ActivitySink used to publish
// signup lifecycle events.
func WithOrchestratorActivitySink(sink ActivitySink) OrchestratorOption {
	return func(o *SignupOrchestrator) {
		o.sink = normalizeActivitySink(sink)
	}
}

// WithTransitionHook adds a hook invoked after every state change.
func WithTransitionHook(h TransitionHook) OrchestratorOption {
	return func(o *SignupOrchestrator) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// WithReturnURL sets the route the checkout provider sends the browser
// back to. The success and cancel markers are appended as query
// parameters.
func WithReturnURL(returnURL string) OrchestratorOption {
	return func(o *SignupOrchestrator) {
		if returnURL != "" {
			o.returnURL = strings.TrimRight(returnURL, "?&")
		}
	}
}

// SignupResult describes the outcome of a signup operation.
type SignupResult struct {
	State       State
	Identity    *Identity
	Profile     *Profile
	Notice      string
	FieldErrors map[string]string
}

// SignupOrchestrator coordinates validation, role branching, the external
// checkout step, and profile provisioning.
//
// The in-memory state is advisory: the machine's suspended position (admin
// signup awaiting checkout) is defined entirely by the DraftStore contents
// plus the return URL marker, because the process is discarded across the
// redirect boundary. A fresh orchestrator resumes correctly from Idle.
type SignupOrchestrator struct {
	identities  IdentityClient
	profiles    ProfileStore
	drafts      DraftStore
	checkout    CheckoutClient
	logger      Logger
	sink        ActivitySink
	now         func() time.Time
	returnURL   string
	hooks       []TransitionHook
	transitions map[State]map[State]struct{}

	mu    sync.Mutex
	state State
}

// NewSignupOrchestrator wires the orchestrator to its collaborators. All
// four are required.
func NewSignupOrchestrator(
	identities IdentityClient,
	profiles ProfileStore,
	drafts DraftStore,
	checkout CheckoutClient,
	opts ...OrchestratorOption,
) *SignupOrchestrator {
	o := &SignupOrchestrator{
		identities: identities,
		profiles:   profiles,
		drafts:     drafts,
		checkout:   checkout,
		logger:     defLogger{},
		sink:       noopActivitySink{},
		now:        time.Now,
		returnURL:  "/signup",
		state:      StateIdle,
		transitions: map[State]map[State]struct{}{
			StateIdle: {
				StateValidating: {},
				StateResuming:   {},
			},
			StateValidating: {
				StateIdle:             {},
				StateProvisioning:     {},
				StateAwaitingCheckout: {},
			},
			StateAwaitingCheckout: {
				StateIdle:       {},
				StateResuming:   {},
				StateValidating: {},
			},
			StateResuming: {
				StateIdle:         {},
				StateProvisioning: {},
			},
			StateProvisioning: {
				StateCompleted: {},
				StateFailed:    {},
			},
			StateCompleted: {
				StateValidating: {},
				StateResuming:   {},
			},
			StateFailed: {
				StateIdle: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// State returns the orchestrator's current in-memory state.
func (o *SignupOrchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit runs a signup submission through validation and role branching.
// Guest and moderator drafts provision directly. Admin drafts are persisted
// into the draft store and then handed to the checkout client; the draft
// write always happens before the redirect is initiated, since losing the
// draft after sending the user to an external domain is unrecoverable.
func (o *SignupOrchestrator) Submit(ctx context.Context, draft SignupDraft) (*SignupResult, error) {
	if o.State() == StateAwaitingCheckout {
		// Overwrite-with-warning: only the most recent admin signup
		// attempt is resumable.
		o.logger.Warn("new signup submission overwrites a pending checkout draft for %s", draft.Email)
	}

	if err := o.transition(StateValidating); err != nil {
		return nil, err
	}

	if err := draft.Validate(); err != nil {
		fields := fieldErrors(err)
		o.forceTransition(StateIdle)
		return &SignupResult{
			State:       StateIdle,
			Notice:      UserMessage(ErrDraftInvalid),
			FieldErrors: fields,
		}, ErrDraftInvalid.WithMetadata(map[string]any{"fields": fields})
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSignupValidated,
		Email:     draft.Email,
		FromState: StateValidating,
		ToState:   StateValidating,
		Metadata:  map[string]any{"role": string(draft.Role)},
	})

	if !draft.RequiresCheckout() {
		return o.provision(ctx, draft)
	}

	return o.beginCheckout(ctx, draft)
}

// SignUpWithProvider is the delegated signup shortcut: the provider flow
// runs entirely inside the identity client, so there is no draft, no role
// selection, and no checkout. The role defaults to guest.
func (o *SignupOrchestrator) SignUpWithProvider(ctx context.Context, provider ProviderKind) (*SignupResult, error) {
	identity, err := o.identities.SignInWithProvider(ctx, provider)
	if err != nil {
		tagged := ClassifyProviderError(err)
		o.fail(ctx, tagged, "")
		return &SignupResult{State: StateIdle, Notice: UserMessage(tagged)}, tagged
	}

	profile, err := o.ensureGuestProfile(ctx, identity)
	if err != nil {
		o.fail(ctx, err, identity.ID)
		return &SignupResult{State: StateIdle, Identity: &identity, Notice: UserMessage(err)}, err
	}

	o.forceTransition(StateCompleted)
	o.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSocialSignup,
		IdentityID: identity.ID,
		Email:      identity.Email,
		ToState:    StateCompleted,
		Metadata:   map[string]any{"provider": string(provider)},
	})

	return &SignupResult{State: StateCompleted, Identity: &identity, Profile: profile}, nil
}

// RetryProfileWrite re-attempts the profile document for an identity left
// without one by a partial provisioning failure. It never creates a second
// identity.
func (o *SignupOrchestrator) RetryProfileWrite(ctx context.Context, identity Identity, draft SignupDraft) (*SignupResult, error) {
	profile := NewProfile(identity, draft)
	if err := o.profiles.Set(ctx, identity.ID, profile); err != nil {
		perr := ErrPartialProvision.WithMetadata(map[string]any{"identity_id": identity.ID})
		o.logger.Error("profile retry failed for identity %s: %v", identity.ID, err)
		return &SignupResult{State: StateIdle, Identity: &identity, Notice: UserMessage(perr)}, perr
	}

	o.forceTransition(StateCompleted)
	return &SignupResult{State: StateCompleted, Identity: &identity, Profile: profile}, nil
}

func (o *SignupOrchestrator) beginCheckout(ctx context.Context, draft SignupDraft) (*SignupResult, error) {
	priceRef := string(draft.BillingCycle)
	if preflight, ok := o.checkout.(CheckoutPreflight); ok {
		ref, err := preflight.PriceRefFor(draft.BillingCycle)
		if err != nil {
			// Configuration problems are reported immediately: no draft
			// is persisted and the redirect is never attempted.
			o.forceTransition(StateIdle)
			return &SignupResult{State: StateIdle, Notice: UserMessage(err)}, err
		}
		priceRef = ref
	}

	if err := o.drafts.Save(ctx, &draft); err != nil {
		o.forceTransition(StateIdle)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist signup draft")
	}

	if err := o.transition(StateAwaitingCheckout); err != nil {
		return nil, err
	}

	params := CheckoutParams{
		Mode:          "subscription",
		PriceRef:      priceRef,
		CustomerEmail: draft.Email,
		SuccessURL:    fmt.Sprintf("%s?%s=%s&%s=%s", o.returnURL, checkoutParam, markerSuccess, planParam, draft.BillingCycle),
		CancelURL:     fmt.Sprintf("%s?%s=%s", o.returnURL, checkoutParam, markerCancel),
	}

	if err := o.checkout.RedirectToCheckout(ctx, params); err != nil {
		// Roll the draft back so no orphaned draft lingers.
		if cerr := o.drafts.Clear(ctx); cerr != nil {
			o.logger.Error("failed to roll back signup draft: %v", cerr)
		}
		o.forceTransition(StateIdle)
		rerr := ErrCheckoutRedirect.WithMetadata(map[string]any{"cause": err.Error()})
		return &SignupResult{State: StateIdle, Notice: UserMessage(rerr)}, rerr
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventCheckoutRedirect,
		Email:     draft.Email,
		FromState: StateValidating,
		ToState:   StateAwaitingCheckout,
		Metadata:  map[string]any{"billing_cycle": string(draft.BillingCycle)},
	})

	return &SignupResult{
		State:  StateAwaitingCheckout,
		Notice: "Redirecting to checkout.",
	}, nil
}

// provision creates the identity, then writes the profile. The profile
// write is only attempted after identity creation succeeds, so a failure
// never leaves a profile without an identity. The reverse, an identity
// without a profile, is surfaced as ErrPartialProvision.
func (o *SignupOrchestrator) provision(ctx context.Context, draft SignupDraft) (*SignupResult, error) {
	if err := o.transition(StateProvisioning); err != nil {
		return nil, err
	}

	identity, err := o.identities.SignUp(ctx, draft.Email, draft.Password)
	if err != nil {
		tagged := ClassifyProviderError(err)
		o.fail(ctx, tagged, "")
		return &SignupResult{State: StateIdle, Notice: UserMessage(tagged)}, tagged
	}

	profile := NewProfile(identity, draft)
	if err := o.profiles.Set(ctx, identity.ID, profile); err != nil {
		perr := ErrPartialProvision.WithMetadata(map[string]any{"identity_id": identity.ID})
		o.logger.Error("profile write failed after identity creation for %s: %v", identity.ID, err)
		o.fail(ctx, perr, identity.ID)
		return &SignupResult{State: StateIdle, Identity: &identity, Notice: UserMessage(perr)}, perr
	}

	if err := o.transition(StateCompleted); err != nil {
		return nil, err
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignupCompleted,
		IdentityID: identity.ID,
		Email:      identity.Email,
		FromState:  StateProvisioning,
		ToState:    StateCompleted,
		Metadata:   map[string]any{"role": string(profile.Role)},
	})

	return &SignupResult{
		State:    StateCompleted,
		Identity: &identity,
		Profile:  profile,
	}, nil
}

// ensureGuestProfile creates a guest profile for a delegated signup unless
// one already exists (a provider sign-in for a returning account must not
// clobber their role).
func (o *SignupOrchestrator) ensureGuestProfile(ctx context.Context, identity Identity) (*Profile, error) {
	existing, err := o.profiles.Get(ctx, identity.ID)
	if err == nil {
		return existing, nil
	}
	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up profile")
	}

	profile := NewProfile(identity, SignupDraft{
		Username: usernameFromEmail(identity.Email),
		Email:    identity.Email,
		Role:     RoleGuest,
	})
	if err := o.profiles.Set(ctx, identity.ID, profile); err != nil {
		return nil, ErrPartialProvision.WithMetadata(map[string]any{"identity_id": identity.ID})
	}

	return profile, nil
}

// fail moves the machine through Failed back to Idle, the stable state
// every failure path ends in.
func (o *SignupOrchestrator) fail(ctx context.Context, cause error, identityID string) {
	from := o.State()
	o.forceTransition(StateFailed)
	o.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignupFailed,
		IdentityID: identityID,
		FromState:  from,
		ToState:    StateFailed,
		Metadata:   map[string]any{"reason": cause.Error()},
	})
	o.forceTransition(StateIdle)
}

func (o *SignupOrchestrator) transition(to State) error {
	return o.move(to, false)
}

// forceTransition is used on recovery paths where the machine must land in
// a stable state regardless of where the failure happened.
func (o *SignupOrchestrator) forceTransition(to State) {
	_ = o.move(to, true)
}

func (o *SignupOrchestrator) move(to State, force bool) error {
	o.mu.Lock()
	from := o.state
	if from == to {
		o.mu.Unlock()
		return nil
	}

	if !force && !o.canTransition(from, to) {
		o.mu.Unlock()
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	}

	o.state = to
	hooks := o.hooks
	o.mu.Unlock()

	for _, h := range hooks {
		h(from, to)
	}
	return nil
}

func (o *SignupOrchestrator) canTransition(from, to State) bool {
	if allowed, ok := o.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (o *SignupOrchestrator) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now()
	}

	sink := normalizeActivitySink(o.sink)
	if err := sink.Record(ctx, event); err != nil {
		o.logger.Warn("signup activity sink error: %v", err)
	}
}

func fieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	return map[string]string{"form": err.Error()}
}

func usernameFromEmail(email string) string {
	if strings.Contains(email, "@") {
		return strings.Split(email, "@")[0]
	}
	return email
}
