// Package checkout adapts an external hosted payment page to the
// CheckoutClient contract. It only builds and follows the redirect; payment
// outcomes are observed by the browser returning to the success or cancel
// URL, never by a direct callback.
package checkout

import (
	"context"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	gatekeeper "github.com/goliatone/go-gatekeeper"
)

// Redirector performs the actual navigation to the payment page. HTTP
// transports respond with a redirect; embedded hosts open a browser.
type Redirector interface {
	Redirect(ctx context.Context, checkoutURL string) error
}

// RedirectorFunc adapts a function into a Redirector.
type RedirectorFunc func(ctx context.Context, checkoutURL string) error

// Redirect satisfies the Redirector interface.
func (f RedirectorFunc) Redirect(ctx context.Context, checkoutURL string) error {
	if f == nil {
		return gatekeeper.ErrCheckoutRedirect
	}
	return f(ctx, checkoutURL)
}

// Config holds the payment provider settings. Price references identify the
// subscription price objects configured on the provider's dashboard.
type Config struct {
	// PublishableKey identifies the provider account.
	PublishableKey string

	// BaseURL is the hosted payment page endpoint.
	BaseURL string

	// MonthlyPriceRef and YearlyPriceRef select the subscription price per
	// billing cycle.
	MonthlyPriceRef string
	YearlyPriceRef  string
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PublishableKey, validation.Required),
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.MonthlyPriceRef, validation.Required),
		validation.Field(&c.YearlyPriceRef, validation.Required),
	)
}

// Client implements the CheckoutClient and CheckoutPreflight contracts on
// top of a hosted payment page.
type Client struct {
	config     Config
	redirector Redirector
	logger     gatekeeper.Logger
}

var (
	_ gatekeeper.CheckoutClient    = (*Client)(nil)
	_ gatekeeper.CheckoutPreflight = (*Client)(nil)
)

// Option configures the client.
type Option func(*Client)

// WithLogger overrides the client logger.
func WithLogger(logger gatekeeper.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a checkout client. The config is validated up front so a
// misconfigured deployment fails at construction, not mid-signup.
func New(cfg Config, redirector Redirector, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, gatekeeper.ErrCheckoutNotConfigured.WithMetadata(map[string]any{
			"validation": err.Error(),
		})
	}
	if redirector == nil {
		return nil, gatekeeper.ErrCheckoutNotConfigured.WithMetadata(map[string]any{
			"validation": "redirector is required",
		})
	}

	c := &Client{
		config:     cfg,
		redirector: redirector,
		logger:     noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// PriceRefFor resolves the price reference for a billing cycle.
func (c *Client) PriceRefFor(cycle gatekeeper.BillingCycle) (string, error) {
	switch cycle {
	case gatekeeper.BillingMonthly:
		return c.config.MonthlyPriceRef, nil
	case gatekeeper.BillingYearly:
		return c.config.YearlyPriceRef, nil
	}

	return "", gatekeeper.ErrCheckoutNotConfigured.WithMetadata(map[string]any{
		"billing_cycle": string(cycle),
	})
}

// RedirectToCheckout builds the hosted payment page URL and hands it to the
// redirector. Control does not return to the signup flow on success; the
// browser leaves for the payment page and later comes back on the success
// or cancel URL.
func (c *Client) RedirectToCheckout(ctx context.Context, params gatekeeper.CheckoutParams) error {
	checkoutURL, err := c.buildURL(params)
	if err != nil {
		return err
	}

	c.logger.Debug("redirecting to checkout: %s", checkoutURL)

	if err := c.redirector.Redirect(ctx, checkoutURL); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "checkout redirect failed").
			WithTextCode(gatekeeper.TextCodeCheckoutRedirect)
	}

	return nil
}

func (c *Client) buildURL(params gatekeeper.CheckoutParams) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", gatekeeper.ErrCheckoutNotConfigured.WithMetadata(map[string]any{
			"base_url": c.config.BaseURL,
		})
	}

	q := base.Query()
	q.Set("key", c.config.PublishableKey)
	q.Set("mode", params.Mode)
	q.Set("price", params.PriceRef)
	q.Set("success_url", params.SuccessURL)
	q.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		q.Set("customer_email", params.CustomerEmail)
	}
	base.RawQuery = q.Encode()

	return base.String(), nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
