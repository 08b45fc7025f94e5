package gatekeeper_test

import (
	"context"
	"sync"

	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/stretchr/testify/mock"
)

// FakeIdentityClient is a controllable identity change stream. Tests drive
// it with Fire to simulate provider events.
type FakeIdentityClient struct {
	mock.Mock

	mu           sync.Mutex
	handler      func(*gatekeeper.Identity)
	initial      *gatekeeper.Identity
	unsubscribed bool
}

func (m *FakeIdentityClient) SignUp(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(gatekeeper.Identity), args.Error(1)
}

func (m *FakeIdentityClient) SignIn(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(gatekeeper.Identity), args.Error(1)
}

func (m *FakeIdentityClient) SignInWithProvider(ctx context.Context, provider gatekeeper.ProviderKind) (gatekeeper.Identity, error) {
	args := m.Called(ctx, provider)
	return args.Get(0).(gatekeeper.Identity), args.Error(1)
}

func (m *FakeIdentityClient) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *FakeIdentityClient) OnChange(fn func(*gatekeeper.Identity)) gatekeeper.Unsubscribe {
	m.mu.Lock()
	m.handler = fn
	initial := m.initial
	m.mu.Unlock()

	fn(initial)

	return func() {
		m.mu.Lock()
		m.unsubscribed = true
		m.mu.Unlock()
	}
}

// Fire simulates an identity change event from the provider.
func (m *FakeIdentityClient) Fire(identity *gatekeeper.Identity) {
	m.mu.Lock()
	fn := m.handler
	m.mu.Unlock()

	if fn != nil {
		fn(identity)
	}
}

func (m *FakeIdentityClient) Unsubscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed
}

// MockProfileStore implements gatekeeper.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, identityID string) (*gatekeeper.Profile, error) {
	args := m.Called(ctx, identityID)
	if p, ok := args.Get(0).(*gatekeeper.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) Set(ctx context.Context, identityID string, profile *gatekeeper.Profile) error {
	args := m.Called(ctx, identityID, profile)
	return args.Error(0)
}

func (m *MockProfileStore) Update(ctx context.Context, identityID string, fields map[string]any) error {
	args := m.Called(ctx, identityID, fields)
	return args.Error(0)
}

func (m *MockProfileStore) Delete(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockProfileStore) ListAll(ctx context.Context) ([]*gatekeeper.Profile, error) {
	args := m.Called(ctx)
	if p, ok := args.Get(0).([]*gatekeeper.Profile); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCheckoutClient implements gatekeeper.CheckoutClient and
// gatekeeper.CheckoutPreflight
type MockCheckoutClient struct {
	mock.Mock
}

func (m *MockCheckoutClient) RedirectToCheckout(ctx context.Context, params gatekeeper.CheckoutParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockCheckoutClient) PriceRefFor(cycle gatekeeper.BillingCycle) (string, error) {
	args := m.Called(cycle)
	return args.String(0), args.Error(1)
}

// PlainCheckoutClient implements only gatekeeper.CheckoutClient, without the
// preflight interface.
type PlainCheckoutClient struct {
	mock.Mock
}

func (m *PlainCheckoutClient) RedirectToCheckout(ctx context.Context, params gatekeeper.CheckoutParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockDraftStore implements gatekeeper.DraftStore
type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Save(ctx context.Context, draft *gatekeeper.SignupDraft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *MockDraftStore) Load(ctx context.Context) (*gatekeeper.SignupDraft, error) {
	args := m.Called(ctx)
	if d, ok := args.Get(0).(*gatekeeper.SignupDraft); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDraftStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CapturingSink records activity events for assertions.
type CapturingSink struct {
	mu     sync.Mutex
	events []gatekeeper.ActivityEvent
}

func (s *CapturingSink) Record(ctx context.Context, event gatekeeper.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *CapturingSink) Events() []gatekeeper.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gatekeeper.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *CapturingSink) EventTypes() []gatekeeper.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gatekeeper.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func validDraft() gatekeeper.SignupDraft {
	return gatekeeper.SignupDraft{
		Username:     "ana",
		Email:        "ana@example.com",
		Password:     "secret123",
		Role:         gatekeeper.RoleGuest,
		BillingCycle: gatekeeper.BillingMonthly,
	}
}

func adminDraft() gatekeeper.SignupDraft {
	d := validDraft()
	d.Role = gatekeeper.RoleAdmin
	return d
}
