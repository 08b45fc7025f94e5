package gatekeeper

import (
	"context"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

const (
	checkoutParam = "checkout"
	planParam     = "plan"
	markerSuccess = "success"
	markerCancel  = "cancel"
)

// ResumeResult describes how a checkout return was handled. CleanURL is
// what the address bar should be replaced with (without reloading), so a
// refresh cannot re-trigger the transition.
type ResumeResult struct {
	Handled  bool
	State    State
	Notice   string
	Identity *Identity
	Profile  *Profile
	CleanURL string
}

// ResumeFromURL inspects a full return URL for the checkout marker and
// dispatches to Resume. Call it on application start, before any signup UI
// renders.
func (o *SignupOrchestrator) ResumeFromURL(ctx context.Context, rawURL string) (*ResumeResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid resume URL")
	}

	result, rerr := o.Resume(ctx, u.Query())
	if result != nil {
		result.CleanURL = u.Path
	}
	return result, rerr
}

// Resume handles the checkout return markers:
//
//   - checkout=success with a stored draft: consume the draft (read and
//     delete, exactly once) and provision it with the role forced to
//     admin. A replayed success URL finds the slot empty and takes the
//     soft path below instead of creating a duplicate identity.
//   - checkout=success with no draft: ask the user to resubmit their
//     details; never guess stale state or auto-create an account.
//   - checkout=cancel: clear any pending draft and report cancellation.
//   - no marker: nothing to do.
func (o *SignupOrchestrator) Resume(ctx context.Context, query url.Values) (*ResumeResult, error) {
	switch query.Get(checkoutParam) {
	case markerSuccess:
		return o.resumeSuccess(ctx, query)
	case markerCancel:
		return o.resumeCancel(ctx)
	default:
		return &ResumeResult{Handled: false, State: o.State()}, nil
	}
}

func (o *SignupOrchestrator) resumeSuccess(ctx context.Context, query url.Values) (*ResumeResult, error) {
	if err := o.transition(StateResuming); err != nil {
		return nil, err
	}

	draft, err := o.drafts.Load(ctx)
	if err != nil {
		o.forceTransition(StateIdle)
		if goerrors.IsNotFound(err) {
			// Storage was cleared, or the success URL is a replay after
			// the draft was already consumed. Soft recovery only.
			o.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventCheckoutResumed,
				FromState: StateResuming,
				ToState:   StateIdle,
				Metadata:  map[string]any{"draft": "missing"},
			})
			return &ResumeResult{
				Handled: true,
				State:   StateIdle,
				Notice:  UserMessage(ErrDraftNotFound),
			}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load signup draft")
	}

	// Consume before provisioning so the draft is never used twice, even
	// if provisioning itself is interrupted.
	if err := o.drafts.Clear(ctx); err != nil {
		o.forceTransition(StateIdle)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume signup draft")
	}

	resumed := *draft
	resumed.Role = RoleAdmin
	if plan := query.Get(planParam); plan != "" && plan != string(resumed.BillingCycle) {
		o.logger.Warn("checkout return plan %q does not match stored draft plan %q", plan, resumed.BillingCycle)
	}

	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventCheckoutResumed,
		Email:     resumed.Email,
		FromState: StateResuming,
		ToState:   StateProvisioning,
		Metadata:  map[string]any{"billing_cycle": string(resumed.BillingCycle)},
	})

	signup, serr := o.provision(ctx, resumed)
	if signup == nil {
		return nil, serr
	}

	notice := signup.Notice
	if serr == nil && signup.State == StateCompleted {
		notice = "Payment confirmed. Admin account activated."
	}

	return &ResumeResult{
		Handled:  true,
		State:    signup.State,
		Notice:   notice,
		Identity: signup.Identity,
		Profile:  signup.Profile,
	}, serr
}

func (o *SignupOrchestrator) resumeCancel(ctx context.Context) (*ResumeResult, error) {
	if err := o.drafts.Clear(ctx); err != nil {
		o.logger.Warn("failed to clear draft on checkout cancel: %v", err)
	}

	o.forceTransition(StateIdle)
	o.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventCheckoutCanceled,
		ToState:   StateIdle,
	})

	return &ResumeResult{
		Handled: true,
		State:   StateIdle,
		Notice:  "Checkout canceled. No account was created.",
	}, nil
}
