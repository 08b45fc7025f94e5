package checkout_test

import (
	"context"
	"net/url"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/goliatone/go-gatekeeper/checkout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() checkout.Config {
	return checkout.Config{
		PublishableKey:  "pk_test_123",
		BaseURL:         "https://pay.example.com/session",
		MonthlyPriceRef: "price_monthly_001",
		YearlyPriceRef:  "price_yearly_001",
	}
}

func noopRedirector() checkout.Redirector {
	return checkout.RedirectorFunc(func(context.Context, string) error { return nil })
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := checkout.New(checkout.Config{}, noopRedirector())
	require.Error(t, err)
	assert.ErrorIs(t, err, gatekeeper.ErrCheckoutNotConfigured)

	cfg := testConfig()
	cfg.YearlyPriceRef = ""
	_, err = checkout.New(cfg, noopRedirector())
	require.Error(t, err)

	_, err = checkout.New(testConfig(), nil)
	require.Error(t, err)

	client, err := checkout.New(testConfig(), noopRedirector())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestPriceRefFor(t *testing.T) {
	client, err := checkout.New(testConfig(), noopRedirector())
	require.NoError(t, err)

	ref, err := client.PriceRefFor(gatekeeper.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, "price_monthly_001", ref)

	ref, err = client.PriceRefFor(gatekeeper.BillingYearly)
	require.NoError(t, err)
	assert.Equal(t, "price_yearly_001", ref)

	_, err = client.PriceRefFor("weekly")
	require.Error(t, err)
	assert.ErrorIs(t, err, gatekeeper.ErrCheckoutNotConfigured)
}

func TestRedirectToCheckoutBuildsURL(t *testing.T) {
	var captured string
	client, err := checkout.New(testConfig(), checkout.RedirectorFunc(func(_ context.Context, u string) error {
		captured = u
		return nil
	}))
	require.NoError(t, err)

	err = client.RedirectToCheckout(context.Background(), gatekeeper.CheckoutParams{
		Mode:          "subscription",
		PriceRef:      "price_monthly_001",
		CustomerEmail: "ana@example.com",
		SuccessURL:    "/signup?checkout=success&plan=monthly",
		CancelURL:     "/signup?checkout=cancel",
	})
	require.NoError(t, err)
	require.NotEmpty(t, captured)

	u, err := url.Parse(captured)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)

	q := u.Query()
	assert.Equal(t, "pk_test_123", q.Get("key"))
	assert.Equal(t, "subscription", q.Get("mode"))
	assert.Equal(t, "price_monthly_001", q.Get("price"))
	assert.Equal(t, "ana@example.com", q.Get("customer_email"))
	assert.Equal(t, "/signup?checkout=success&plan=monthly", q.Get("success_url"))
	assert.Equal(t, "/signup?checkout=cancel", q.Get("cancel_url"))
}

func TestRedirectToCheckoutOmitsEmptyEmail(t *testing.T) {
	var captured string
	client, err := checkout.New(testConfig(), checkout.RedirectorFunc(func(_ context.Context, u string) error {
		captured = u
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, client.RedirectToCheckout(context.Background(), gatekeeper.CheckoutParams{
		Mode:     "subscription",
		PriceRef: "price_monthly_001",
	}))

	u, err := url.Parse(captured)
	require.NoError(t, err)
	assert.False(t, u.Query().Has("customer_email"))
}

func TestRedirectToCheckoutReportsNavigationFailure(t *testing.T) {
	client, err := checkout.New(testConfig(), checkout.RedirectorFunc(func(context.Context, string) error {
		return goerrors.New("window closed", goerrors.CategoryOperation)
	}))
	require.NoError(t, err)

	err = client.RedirectToCheckout(context.Background(), gatekeeper.CheckoutParams{
		Mode:     "subscription",
		PriceRef: "price_monthly_001",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, gatekeeper.TextCodeCheckoutRedirect, richErr.TextCode)
}
