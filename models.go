package gatekeeper

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the profile's role
type Role = string

const (
	// RoleGuest is the default role (ie. view)
	RoleGuest Role = "guest"
	// RoleModerator is a moderator (i.e. view, edit)
	RoleModerator Role = "moderator"
	// RoleAdmin is the paid elevated role, provisioned only after a
	// confirmed checkout outcome
	RoleAdmin Role = "admin"
)

// BillingCycle selects the admin subscription cadence
type BillingCycle = string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

const (
	// SubscriptionActive marks a paid, running subscription
	SubscriptionActive = "active"
	// SubscriptionNone marks profiles without a subscription
	SubscriptionNone = "n/a"
	// PlanGuest is the plan recorded for non-admin profiles
	PlanGuest = "guest"
)

// Profile extends an Identity with role and subscription metadata. Exactly
// one profile exists per identity, created at signup completion.
type Profile struct {
	bun.BaseModel      `bun:"table:profiles,alias:prf"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username           string     `bun:"username,notnull" json:"username,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Role               Role       `bun:"role,notnull" json:"role,omitempty"`
	SubscriptionPlan   string     `bun:"subscription_plan,notnull" json:"subscription_plan,omitempty"`
	SubscriptionStatus string     `bun:"subscription_status,notnull" json:"subscription_status,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SignupDraft is a not-yet-committed signup submission. Admin drafts are
// serialized into the DraftStore so they survive the checkout redirect.
type SignupDraft struct {
	Username     string       `json:"username" form:"username"`
	Email        string       `json:"email" form:"email"`
	Password     string       `json:"password" form:"password"`
	Role         Role         `json:"role" form:"role"`
	BillingCycle BillingCycle `json:"billing_cycle" form:"billing_cycle"`
}

// Validate runs local validation rules. First failure wins per field; no
// collaborator is contacted.
func (d SignupDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Username, validation.Required),
		validation.Field(&d.Email, validation.Required, is.Email),
		validation.Field(&d.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(
			&d.Role,
			validation.Required,
			validation.In(RoleGuest, RoleModerator, RoleAdmin),
		),
		validation.Field(
			&d.BillingCycle,
			validation.In(BillingMonthly, BillingYearly),
		),
	)
}

// RequiresCheckout reports whether the draft must clear the external
// payment step before provisioning.
func (d SignupDraft) RequiresCheckout() bool {
	return d.Role == RoleAdmin
}

// NewProfile builds the profile document for a finished signup. Admin
// profiles record the billing cycle as their plan; everyone else gets the
// guest plan with no subscription.
func NewProfile(identity Identity, draft SignupDraft) *Profile {
	p := &Profile{
		Username:           draft.Username,
		Email:              identity.Email,
		Role:               draft.Role,
		SubscriptionPlan:   PlanGuest,
		SubscriptionStatus: SubscriptionNone,
	}

	if id, err := uuid.Parse(identity.ID); err == nil {
		p.ID = id
	}

	if draft.Role == RoleAdmin {
		p.SubscriptionPlan = string(draft.BillingCycle)
		p.SubscriptionStatus = SubscriptionActive
	}

	return p
}
