// Package local provides an in-process IdentityClient backed by bcrypt
// password hashes. It implements the same contract as a hosted provider,
// including the change stream, so the rest of the stack does not care which
// one it is wired to. Accounts live in memory; use it for tests, demos, and
// embedded single-node deployments.
package local

import (
	"context"
	"strings"
	"sync"

	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/goliatone/hashid/pkg/hashid"
)

// ProviderResolver resolves a federated sign-in to an identity. The resolver
// performs whatever interactive flow the provider requires and returns the
// provider's view of the principal.
type ProviderResolver func(ctx context.Context) (gatekeeper.Identity, error)

type account struct {
	id           string
	email        string
	passwordHash string
}

// Client is an in-process IdentityClient.
type Client struct {
	mu          sync.Mutex
	accounts    map[string]account
	providers   map[gatekeeper.ProviderKind]ProviderResolver
	subscribers map[int]func(*gatekeeper.Identity)
	nextSub     int
	current     *gatekeeper.Identity
	logger      gatekeeper.Logger
}

var _ gatekeeper.IdentityClient = (*Client)(nil)

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

// WithProvider registers a federated provider resolver.
func WithProvider(kind gatekeeper.ProviderKind, resolver ProviderResolver) Option {
	return func(c *Client) {
		if resolver != nil {
			c.providers[kind] = resolver
		}
	}
}

// New creates an empty client.
func New(opts ...Option) *Client {
	c := &Client{
		accounts:    map[string]account{},
		providers:   map[gatekeeper.ProviderKind]ProviderResolver{},
		subscribers: map[int]func(*gatekeeper.Identity){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.logger == nil {
		c.logger = noopLogger{}
	}

	return c
}

// SignUp creates a credentialed account and signs it in. Identity ids are
// derived deterministically from the email, so re-creating the same account
// in a fresh process yields the same id.
func (c *Client) SignUp(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	key := normalizeEmail(email)

	hash, err := gatekeeper.HashPassword(password)
	if err != nil {
		return gatekeeper.Identity{}, err
	}

	id, err := hashid.NewUUID(key)
	if err != nil {
		return gatekeeper.Identity{}, err
	}

	c.mu.Lock()
	if _, exists := c.accounts[key]; exists {
		c.mu.Unlock()
		return gatekeeper.Identity{}, gatekeeper.ErrEmailInUse.WithMetadata(map[string]any{
			"email": key,
		})
	}

	acc := account{id: id.String(), email: key, passwordHash: hash}
	c.accounts[key] = acc
	identity := gatekeeper.Identity{ID: acc.id, Email: acc.email}
	fns := c.setCurrentLocked(&identity)
	c.mu.Unlock()

	notify(fns, &identity)
	return identity, nil
}

// SignIn authenticates an existing account. Unknown emails and bad
// passwords both report invalid credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	key := normalizeEmail(email)

	c.mu.Lock()
	acc, exists := c.accounts[key]
	c.mu.Unlock()

	if !exists || acc.passwordHash == "" {
		return gatekeeper.Identity{}, gatekeeper.ErrInvalidCredentials
	}

	if err := gatekeeper.ComparePasswordAndHash(password, acc.passwordHash); err != nil {
		return gatekeeper.Identity{}, gatekeeper.ErrInvalidCredentials
	}

	identity := gatekeeper.Identity{ID: acc.id, Email: acc.email}

	c.mu.Lock()
	fns := c.setCurrentLocked(&identity)
	c.mu.Unlock()

	notify(fns, &identity)
	return identity, nil
}

// SignInWithProvider runs the registered resolver for a federated provider
// and signs the resulting identity in, creating a passwordless account
// record on first contact.
func (c *Client) SignInWithProvider(ctx context.Context, provider gatekeeper.ProviderKind) (gatekeeper.Identity, error) {
	c.mu.Lock()
	resolver, ok := c.providers[provider]
	c.mu.Unlock()

	if !ok {
		return gatekeeper.Identity{}, gatekeeper.ErrProviderUnavailable.WithMetadata(map[string]any{
			"provider": provider,
		})
	}

	identity, err := resolver(ctx)
	if err != nil {
		c.logger.Warn("provider %s sign-in failed: %v", provider, err)
		return gatekeeper.Identity{}, gatekeeper.ClassifyProviderError(err)
	}

	identity.Email = normalizeEmail(identity.Email)
	if identity.ID == "" {
		id, err := hashid.NewUUID(identity.Email)
		if err != nil {
			return gatekeeper.Identity{}, err
		}
		identity.ID = id.String()
	}

	c.mu.Lock()
	if _, exists := c.accounts[identity.Email]; !exists {
		c.accounts[identity.Email] = account{id: identity.ID, email: identity.Email}
	}
	fns := c.setCurrentLocked(&identity)
	c.mu.Unlock()

	notify(fns, &identity)
	return identity, nil
}

// SignOut clears the current identity.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	fns := c.setCurrentLocked(nil)
	c.mu.Unlock()

	notify(fns, nil)
	return nil
}

// OnChange registers a change callback. It fires once immediately with the
// current identity, then on every sign-in and sign-out.
func (c *Client) OnChange(fn func(identity *gatekeeper.Identity)) gatekeeper.Unsubscribe {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(cloneIdentity(current))

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

// Current returns the signed-in identity, or nil.
func (c *Client) Current() *gatekeeper.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneIdentity(c.current)
}

func (c *Client) setCurrentLocked(identity *gatekeeper.Identity) []func(*gatekeeper.Identity) {
	c.current = cloneIdentity(identity)
	fns := make([]func(*gatekeeper.Identity), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(*gatekeeper.Identity), identity *gatekeeper.Identity) {
	for _, fn := range fns {
		fn(cloneIdentity(identity))
	}
}

func cloneIdentity(identity *gatekeeper.Identity) *gatekeeper.Identity {
	if identity == nil {
		return nil
	}
	copied := *identity
	return &copied
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
