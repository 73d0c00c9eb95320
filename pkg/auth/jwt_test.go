package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests"

func newTestPair(t *testing.T, cfg JWTConfig) (*JWTGenerator, *JWTValidator) {
	t.Helper()
	generator, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)
	return generator, validator
}

func TestGenerateAndValidateToken(t *testing.T) {
	generator, validator := newTestPair(t, JWTConfig{SecretKey: testSecret, Issuer: "dome"})

	token, err := generator.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "dome", claims.Issuer)
}

func TestValidateToken_BearerPrefixStripped(t *testing.T) {
	generator, validator := newTestPair(t, JWTConfig{SecretKey: testSecret})

	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	generator, _ := newTestPair(t, JWTConfig{SecretKey: testSecret})
	_, validator := newTestPair(t, JWTConfig{SecretKey: "some-other-secret"})

	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateToken_Expired(t *testing.T) {
	generator, validator := newTestPair(t, JWTConfig{
		SecretKey:  testSecret,
		ExpiryTime: -time.Minute,
	})

	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	generator, _ := newTestPair(t, JWTConfig{SecretKey: testSecret, Issuer: "someone-else"})
	_, validator := newTestPair(t, JWTConfig{SecretKey: testSecret, Issuer: "dome"})

	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestValidateToken_Missing(t *testing.T) {
	_, validator := newTestPair(t, JWTConfig{SecretKey: testSecret})

	_, err := validator.ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = validator.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerator_DefaultExpiry(t *testing.T) {
	generator, err := NewJWTGenerator(JWTConfig{SecretKey: testSecret})
	require.NoError(t, err)

	assert.Equal(t, 8*24*time.Hour, generator.Expiry())
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1", Email: "a@b.c"})

	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.Error(t, err)
}
