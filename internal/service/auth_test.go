package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/forgeapp/forge-server/internal/errors"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, RegisterRequest{
		Email:    " Alice.Smith@Example.com ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-alice-smith", res.User.ID)
	assert.Equal(t, "alice.smith@example.com", res.User.Email)
	assert.Equal(t, "Alice", res.User.Name)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, 15*60, res.ExpiresIn)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := env.auth.VerifyAccessToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = env.auth.Register(ctx, RegisterRequest{Email: "alice.smith@example.com", Password: "another pass"})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterRequest{Email: "nope", Password: "long enough"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.auth.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "short"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRegister_DerivedIDCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.Register(ctx, RegisterRequest{Email: "sam@one.example", Password: "password123"})
	require.NoError(t, err)
	second, err := env.auth.Register(ctx, RegisterRequest{Email: "sam@two.example", Password: "password123"})
	require.NoError(t, err)

	assert.Equal(t, "user-sam", first.User.ID)
	assert.NotEqual(t, first.User.ID, second.User.ID)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.auth.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "password123", Name: "Alice"})
	require.NoError(t, err)

	res, err := env.auth.Login(ctx, LoginRequest{Email: "ALICE@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.User.Name)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong password"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "password123"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered, err := env.auth.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := env.auth.Refresh(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)

	_, err = env.auth.Refresh(ctx, registered.RefreshToken)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized, "a rotated token is spent")

	require.NoError(t, env.auth.Logout(ctx, refreshed.RefreshToken))
	_, err = env.auth.Refresh(ctx, refreshed.RefreshToken)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	require.NoError(t, env.auth.Logout(ctx, "unknown"))
	_, err = env.auth.Refresh(ctx, "")
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.VerifyAccessToken(context.Background(), "v4.local.garbage")
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered, err := env.auth.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	user, err := env.auth.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	_, err = env.auth.Me(ctx, "user-ghost")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
