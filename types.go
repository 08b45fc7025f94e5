package gatekeeper

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is an externally managed authenticated principal. The provider
// owns it; this package only reads it.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ProviderKind identifies a delegated sign-in provider.
type ProviderKind = string

const (
	ProviderGoogle   ProviderKind = "google"
	ProviderFacebook ProviderKind = "facebook"
)

// Unsubscribe releases an identity change subscription.
type Unsubscribe func()

// IdentityClient is the external identity provider boundary. OnChange fires
// once immediately with the current identity (nil when signed out), then
// again on every sign-in and sign-out.
type IdentityClient interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignInWithProvider(ctx context.Context, provider ProviderKind) (Identity, error)
	SignOut(ctx context.Context) error
	OnChange(fn func(identity *Identity)) Unsubscribe
}

// ProfileStore reads and writes the role-bearing profile document keyed by
// identity id. Get returns an error satisfying errors.IsNotFound when no
// profile exists for the identity.
type ProfileStore interface {
	Get(ctx context.Context, identityID string) (*Profile, error)
	Set(ctx context.Context, identityID string, profile *Profile) error
	Update(ctx context.Context, identityID string, fields map[string]any) error
	Delete(ctx context.Context, identityID string) error
	ListAll(ctx context.Context) ([]*Profile, error)
}

// CheckoutParams parameterize an external payment session.
type CheckoutParams struct {
	Mode          string
	PriceRef      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutClient redirects the browser to an external payment session.
// Completion is observed only via the browser returning to SuccessURL or
// CancelURL, never via a direct callback.
type CheckoutClient interface {
	RedirectToCheckout(ctx context.Context, params CheckoutParams) error
}

// CheckoutPreflight is optionally implemented by CheckoutClient values that
// can resolve the price reference for a billing cycle up front. It lets the
// orchestrator report configuration problems before any draft is persisted
// or any navigation is attempted.
type CheckoutPreflight interface {
	PriceRefFor(cycle BillingCycle) (string, error)
}

// DraftStore is durable single-slot storage for a pending signup draft. It
// must survive a full process restart. Save overwrites any previous draft,
// Load returns an error satisfying errors.IsNotFound when the slot is
// empty, and Clear is idempotent.
type DraftStore interface {
	Save(ctx context.Context, draft *SignupDraft) error
	Load(ctx context.Context) (*SignupDraft, error)
	Clear(ctx context.Context) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GATE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GATE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GATE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GATE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
