// Package hosted provides an IdentityClient backed by a hosted identity
// provider that issues OIDC-style ID tokens. Credential operations go
// through a TokenExchanger that talks to the provider's REST API; the
// returned ID tokens are verified locally against the provider's JWKS.
package hosted

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/goliatone/hashid/pkg/hashid"
)

// TokenExchanger performs the credential legs against the provider's REST
// API and returns a signed ID token for the authenticated principal.
type TokenExchanger interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignInWithProvider(ctx context.Context, provider gatekeeper.ProviderKind) (string, error)
	SignOut(ctx context.Context) error
}

// Config configures the hosted identity client.
type Config struct {
	// Issuer is the expected token issuer.
	Issuer string

	// Audience is the expected token audience.
	Audience string

	// JWKSURL overrides the JWKS endpoint. Defaults to the issuer's
	// /.well-known/jwks.json.
	JWKSURL string

	// RefreshInterval is the JWKS background refresh cadence.
	RefreshInterval time.Duration

	// Exchanger performs the credential legs against the provider.
	Exchanger TokenExchanger

	Logger gatekeeper.Logger
}

func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return strings.TrimRight(c.Issuer, "/") + "/.well-known/jwks.json"
}

// Client is an IdentityClient for a hosted token-issuing provider.
type Client struct {
	mu          sync.Mutex
	config      Config
	jwks        *keyfunc.JWKS
	subscribers map[int]func(*gatekeeper.Identity)
	nextSub     int
	current     *gatekeeper.Identity
	logger      gatekeeper.Logger
}

var _ gatekeeper.IdentityClient = (*Client)(nil)

// New creates the client and fetches the provider JWKS.
func New(cfg Config) (*Client, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("hosted: issuer is required")
	}
	if cfg.Exchanger == nil {
		return nil, fmt.Errorf("hosted: token exchanger is required")
	}

	refresh := cfg.RefreshInterval
	if refresh == 0 {
		refresh = time.Hour
	}

	jwks, err := keyfunc.Get(cfg.jwksURL(), keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWK set: %s", err)
		},
		RefreshInterval:   refresh,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to fetch provider JWKS")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Client{
		config:      cfg,
		jwks:        jwks,
		subscribers: map[int]func(*gatekeeper.Identity){},
		logger:      logger,
	}, nil
}

// SignUp registers a new credentialed account with the provider.
func (c *Client) SignUp(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	token, err := c.config.Exchanger.SignUp(ctx, email, password)
	if err != nil {
		return gatekeeper.Identity{}, gatekeeper.ClassifyProviderError(err)
	}
	return c.establish(token)
}

// SignIn authenticates an existing account.
func (c *Client) SignIn(ctx context.Context, email, password string) (gatekeeper.Identity, error) {
	token, err := c.config.Exchanger.SignIn(ctx, email, password)
	if err != nil {
		return gatekeeper.Identity{}, gatekeeper.ClassifyProviderError(err)
	}
	return c.establish(token)
}

// SignInWithProvider runs a federated flow through the provider.
func (c *Client) SignInWithProvider(ctx context.Context, provider gatekeeper.ProviderKind) (gatekeeper.Identity, error) {
	token, err := c.config.Exchanger.SignInWithProvider(ctx, provider)
	if err != nil {
		return gatekeeper.Identity{}, gatekeeper.ClassifyProviderError(err)
	}
	return c.establish(token)
}

// SignOut clears the current identity and notifies the provider.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.config.Exchanger.SignOut(ctx); err != nil {
		c.logger.Warn("provider sign-out failed: %v", err)
	}

	c.mu.Lock()
	fns := c.setCurrentLocked(nil)
	c.mu.Unlock()

	notify(fns, nil)
	return nil
}

// ResumeSession verifies a previously issued ID token, for restoring a
// session on process start, and establishes it as the current identity.
func (c *Client) ResumeSession(token string) (gatekeeper.Identity, error) {
	return c.establish(token)
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

// Close stops the background JWKS refresh.
func (c *Client) Close() {
	c.jwks.EndBackground()
}

func (c *Client) establish(token string) (gatekeeper.Identity, error) {
	identity, err := c.verify(token)
	if err != nil {
		return gatekeeper.Identity{}, err
	}

	c.mu.Lock()
	fns := c.setCurrentLocked(&identity)
	c.mu.Unlock()

	notify(fns, &identity)
	return identity, nil
}

// verify checks the token signature against the JWKS and extracts the
// subject and email claims.
func (c *Client) verify(tokenString string) (gatekeeper.Identity, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(c.config.Issuer),
	}
	if c.config.Audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(c.config.Audience))
	}

	token, err := jwt.Parse(tokenString, c.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return gatekeeper.Identity{}, gatekeeper.ErrInvalidCredentials.WithMetadata(map[string]any{
				"cause": "token expired",
			})
		}
		return gatekeeper.Identity{}, goerrors.Wrap(err, goerrors.CategoryAuth, "failed to verify identity token").
			WithTextCode(gatekeeper.TextCodeProviderFailure)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return gatekeeper.Identity{}, gatekeeper.ErrProviderFailure
	}

	subject, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if subject == "" {
		return gatekeeper.Identity{}, gatekeeper.ErrProviderFailure.WithMetadata(map[string]any{
			"cause": "token missing subject",
		})
	}

	return gatekeeper.Identity{
		ID:    identityID(subject),
		Email: strings.ToLower(email),
	}, nil
}

// identityID derives a stable uuid from the provider subject.
func identityID(subject string) string {
	if id, err := hashid.NewUUID(subject); err == nil {
		return id.String()
	}
	return subject
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

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
