package local_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	gatekeeper "github.com/goliatone/go-gatekeeper"
	"github.com/goliatone/go-gatekeeper/identity/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpAndSignIn(t *testing.T) {
	client := local.New()
	ctx := context.Background()

	created, err := client.SignUp(ctx, "Ana@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.NotEmpty(t, created.ID)

	require.NoError(t, client.SignOut(ctx))

	signedIn, err := client.SignIn(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, signedIn.ID)
}

func TestSignUpDeterministicIDs(t *testing.T) {
	ctx := context.Background()

	first := local.New()
	a, err := first.SignUp(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	// a fresh process derives the same id for the same email
	second := local.New()
	b, err := second.SignUp(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	client := local.New()
	ctx := context.Background()

	_, err := client.SignUp(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	_, err = client.SignUp(ctx, "ANA@example.com", "another456")
	require.Error(t, err)
	assert.ErrorIs(t, err, gatekeeper.ErrEmailInUse)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	client := local.New()
	ctx := context.Background()

	_, err := client.SignUp(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	_, err = client.SignIn(ctx, "ana@example.com", "wrongpass")
	assert.ErrorIs(t, err, gatekeeper.ErrInvalidCredentials)

	// unknown emails report the same error as bad passwords
	_, err = client.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, gatekeeper.ErrInvalidCredentials)
}

func TestSignUpRejectsEmptyPassword(t *testing.T) {
	client := local.New()

	_, err := client.SignUp(context.Background(), "ana@example.com", "")
	require.Error(t, err)
}

func TestSignInWithProvider(t *testing.T) {
	resolved := gatekeeper.Identity{Email: "Ana@Example.com"}
	client := local.New(
		local.WithProvider(gatekeeper.ProviderGoogle, func(context.Context) (gatekeeper.Identity, error) {
			return resolved, nil
		}),
	)

	identity, err := client.SignInWithProvider(context.Background(), gatekeeper.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.NotEmpty(t, identity.ID)

	current := client.Current()
	require.NotNil(t, current)
	assert.Equal(t, identity.ID, current.ID)
}

func TestSignInWithUnknownProvider(t *testing.T) {
	client := local.New()

	_, err := client.SignInWithProvider(context.Background(), gatekeeper.ProviderFacebook)
	require.Error(t, err)
	assert.ErrorIs(t, err, gatekeeper.ErrProviderUnavailable)
}

func TestSignInWithProviderFailureIsClassified(t *testing.T) {
	client := local.New(
		local.WithProvider(gatekeeper.ProviderGoogle, func(context.Context) (gatekeeper.Identity, error) {
			return gatekeeper.Identity{}, goerrors.New("consent window closed", goerrors.CategoryOperation)
		}),
	)

	_, err := client.SignInWithProvider(context.Background(), gatekeeper.ProviderGoogle)
	assert.ErrorIs(t, err, gatekeeper.ErrProviderUnavailable)
}

func TestOnChangeStream(t *testing.T) {
	client := local.New()
	ctx := context.Background()

	var events []*gatekeeper.Identity
	unsubscribe := client.OnChange(func(identity *gatekeeper.Identity) {
		events = append(events, identity)
	})

	// fires once immediately with the current (signed out) identity
	require.Len(t, events, 1)
	assert.Nil(t, events[0])

	created, err := client.SignUp(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NotNil(t, events[1])
	assert.Equal(t, created.ID, events[1].ID)

	require.NoError(t, client.SignOut(ctx))
	require.Len(t, events, 3)
	assert.Nil(t, events[2])

	unsubscribe()
	_, err = client.SignIn(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Len(t, events, 3)
}
