package gatekeeper

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeDraftInvalid        = "signup_draft_invalid"
	TextCodeEmailInUse          = "identity_email_in_use"
	TextCodeInvalidCredentials  = "identity_invalid_credentials"
	TextCodeProviderUnavailable = "identity_provider_unavailable"
	TextCodeProviderFailure     = "identity_provider_failure"
	TextCodeCheckoutNotReady    = "checkout_not_configured"
	TextCodeCheckoutRedirect    = "checkout_redirect_failed"
	TextCodeDraftNotFound       = "signup_draft_not_found"
	TextCodePartialProvision    = "signup_partial_provision"
	TextCodeInvalidTransition   = "invalid_signup_transition"
	TextCodeObserverClosed      = "session_observer_closed"
	TextCodeProfileNotFound     = "profile_not_found"
	TextCodeInvalidIdentityID   = "invalid_identity_id"
)

// ErrDraftInvalid is returned when local validation rejects a signup draft.
var ErrDraftInvalid = errors.New("signup draft failed validation", errors.CategoryValidation).
	WithTextCode(TextCodeDraftInvalid).
	WithCode(errors.CodeBadRequest)

// ErrEmailInUse is returned when the identity provider reports the email is
// already registered.
var ErrEmailInUse = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials is returned for bad email/password combinations.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrProviderUnavailable is returned when the identity provider cannot be
// reached.
var ErrProviderUnavailable = errors.New("identity provider unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeProviderUnavailable).
	WithCode(errors.CodeInternal)

// ErrProviderFailure is the generic identity provider failure.
var ErrProviderFailure = errors.New("identity provider error", errors.CategoryAuth).
	WithTextCode(TextCodeProviderFailure).
	WithCode(errors.CodeUnauthorized)

// ErrCheckoutNotConfigured is returned when price or key configuration is
// missing. The redirect is never attempted and no draft is persisted.
var ErrCheckoutNotConfigured = errors.New("checkout is not configured", errors.CategoryInternal).
	WithTextCode(TextCodeCheckoutNotReady).
	WithCode(errors.CodeInternal)

// ErrCheckoutRedirect is returned when redirect initiation fails. The
// persisted draft is rolled back so no orphaned draft lingers.
var ErrCheckoutRedirect = errors.New("checkout redirect failed", errors.CategoryOperation).
	WithTextCode(TextCodeCheckoutRedirect).
	WithCode(errors.CodeInternal)

// ErrDraftNotFound is returned when the draft slot is empty.
var ErrDraftNotFound = errors.New("no pending signup draft", errors.CategoryNotFound).
	WithTextCode(TextCodeDraftNotFound).
	WithCode(errors.CodeNotFound)

// ErrPartialProvision is returned when the identity was created but the
// profile write failed. The account exists without a profile; automatic
// retry risks duplicate identities, so the condition is surfaced distinctly.
var ErrPartialProvision = errors.New("account created but profile setup failed", errors.CategoryInternal).
	WithTextCode(TextCodePartialProvision).
	WithCode(errors.CodeInternal)

// ErrInvalidTransition is returned when a requested orchestrator state
// change is not allowed.
var ErrInvalidTransition = errors.New("invalid signup state transition", errors.CategoryConflict).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(errors.CodeConflict)

// ErrObserverClosed is returned when using a SessionObserver after Close.
var ErrObserverClosed = errors.New("session observer is closed", errors.CategoryOperation).
	WithTextCode(TextCodeObserverClosed).
	WithCode(errors.CodeConflict)

// ErrProfileNotFound is returned when no profile exists for an identity.
var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidIdentityID is returned for identity ids that cannot key a
// profile document.
var ErrInvalidIdentityID = errors.New("invalid identity id", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidIdentityID).
	WithCode(errors.CodeBadRequest)

// ClassifyProviderError maps an identity provider failure onto the small
// set of tagged errors callers are expected to branch on. Already tagged
// errors pass through untouched.
func ClassifyProviderError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, ErrEmailInUse),
		stderrors.Is(err, ErrInvalidCredentials),
		stderrors.Is(err, ErrProviderUnavailable):
		return err
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.Category {
		case errors.CategoryConflict:
			return ErrEmailInUse
		case errors.CategoryAuth:
			return ErrInvalidCredentials
		case errors.CategoryOperation:
			return ErrProviderUnavailable
		}
	}

	return errors.Wrap(err, errors.CategoryAuth, "identity provider error").
		WithTextCode(TextCodeProviderFailure)
}

// UserMessage converts a tagged error into the user-facing notice the UI
// should display. Unknown errors collapse into a generic message so raw
// provider detail never leaks to the page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case stderrors.Is(err, ErrEmailInUse):
		return "An account with this email already exists."
	case stderrors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case stderrors.Is(err, ErrProviderUnavailable):
		return "We could not reach the sign-in service. Please try again."
	case stderrors.Is(err, ErrCheckoutNotConfigured):
		return "Checkout is not configured. Please contact support."
	case stderrors.Is(err, ErrCheckoutRedirect):
		return "We could not start the checkout. Please try again."
	case stderrors.Is(err, ErrPartialProvision):
		return "Account created but profile setup failed. Please contact support."
	case stderrors.Is(err, ErrDraftNotFound):
		return "Payment confirmed. Please submit your details to finish sign up."
	case stderrors.Is(err, ErrDraftInvalid):
		return "Please correct the highlighted fields."
	}

	return "Something went wrong. Please try again."
}
