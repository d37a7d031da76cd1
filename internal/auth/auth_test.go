package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("testpass123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "testpass123"))
	assert.False(t, CheckPassword(hash, "wrongpass"))
}

func TestAccessTokenExpiry(t *testing.T) {
	tokens := NewTokens(testSecret, 15*time.Minute)

	tok, err := tokens.Make("test-uid", "a@b.com", false)
	require.NoError(t, err)

	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "test-uid", claims.UserID())
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, RoleAuthenticated, claims.Role)

	diff := time.Until(claims.ExpiresAt.Time)
	assert.True(t, diff > 14*time.Minute && diff <= 15*time.Minute, "expiry %v", diff)
}

func TestAdminRole(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	tok, err := tokens.Make("uid", "admin@b.com", true)
	require.NoError(t, err)
	claims, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestExpiredToken(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, err := tokens.Make("uid", "", false)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(tok)
	assert.Error(t, err)
}

func TestAlgorithmConfusion(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)

	tok, _ := tokens.Make("uid", "", false)
	_, err := NewTokens("wrong-secret-0123456789", time.Minute).Parse(tok)
	assert.Error(t, err, "wrong secret")

	_, err = tokens.Parse("not.a.token")
	assert.Error(t, err, "garbage")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid",
			Audience:  jwt.ClaimStrings{RoleAuthenticated},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	assert.Error(t, err, "alg none")
}

func TestMissingSubject(t *testing.T) {
	tokens := NewTokens(testSecret, time.Minute)
	tok, err := tokens.Make("", "", false)
	require.NoError(t, err)
	_, err = tokens.Parse(tok)
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestRefreshTokenGeneration(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashRefreshToken(raw))
}

func TestRandomState(t *testing.T) {
	a, err := RandomState()
	require.NoError(t, err)
	b, err := RandomState()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
