package gatekeeper_test

import (
	"testing"

	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupDraftValidate(t *testing.T) {
	assert.NoError(t, validDraft().Validate())
	assert.NoError(t, adminDraft().Validate())
}

func TestSignupDraftValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*gatekeeper.SignupDraft)
		field  string
	}{
		{"missing username", func(d *gatekeeper.SignupDraft) { d.Username = "" }, "username"},
		{"missing email", func(d *gatekeeper.SignupDraft) { d.Email = "" }, "email"},
		{"malformed email", func(d *gatekeeper.SignupDraft) { d.Email = "not-an-email" }, "email"},
		{"missing password", func(d *gatekeeper.SignupDraft) { d.Password = "" }, "password"},
		{"short password", func(d *gatekeeper.SignupDraft) { d.Password = "2shrt" }, "password"},
		{"unknown role", func(d *gatekeeper.SignupDraft) { d.Role = "superuser" }, "role"},
		{"unknown billing cycle", func(d *gatekeeper.SignupDraft) { d.BillingCycle = "weekly" }, "billing_cycle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := validDraft()
			tt.mutate(&draft)

			err := draft.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSignupDraftRequiresCheckout(t *testing.T) {
	assert.False(t, validDraft().RequiresCheckout())

	moderator := validDraft()
	moderator.Role = gatekeeper.RoleModerator
	assert.False(t, moderator.RequiresCheckout())

	assert.True(t, adminDraft().RequiresCheckout())
}

func TestNewProfileGuest(t *testing.T) {
	identity := gatekeeper.Identity{ID: "0191d4a0-0000-7000-8000-000000000050", Email: "ana@example.com"}

	profile := gatekeeper.NewProfile(identity, validDraft())

	assert.Equal(t, "ana", profile.Username)
	assert.Equal(t, "ana@example.com", profile.Email)
	assert.Equal(t, gatekeeper.RoleGuest, profile.Role)
	assert.Equal(t, gatekeeper.PlanGuest, profile.SubscriptionPlan)
	assert.Equal(t, gatekeeper.SubscriptionNone, profile.SubscriptionStatus)
	assert.Equal(t, identity.ID, profile.ID.String())
}

func TestNewProfileAdmin(t *testing.T) {
	identity := gatekeeper.Identity{ID: "0191d4a0-0000-7000-8000-000000000051", Email: "ana@example.com"}

	draft := adminDraft()
	draft.BillingCycle = gatekeeper.BillingYearly

	profile := gatekeeper.NewProfile(identity, draft)

	assert.Equal(t, gatekeeper.RoleAdmin, profile.Role)
	assert.Equal(t, "yearly", profile.SubscriptionPlan)
	assert.Equal(t, gatekeeper.SubscriptionActive, profile.SubscriptionStatus)
}
