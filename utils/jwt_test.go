package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateTokenWithSecret("secret", "user_7", time.Hour)
	require.NoError(t, err)

	claims, err := ParseTokenWithSecret("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user_7", claims.UserID)
	assert.Equal(t, "user_7", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	tok, err := GenerateTokenWithSecret("secret", "user_7", time.Hour)
	require.NoError(t, err)

	_, err = ParseTokenWithSecret("other", tok)
	assert.Error(t, err)

	_, err = ParseTokenWithSecret("", tok)
	assert.Error(t, err)

	expired, err := GenerateTokenWithSecret("secret", "user_7", -time.Minute)
	require.NoError(t, err)
	_, err = ParseTokenWithSecret("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "ext_99",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	parsed, err := ParseTokenWithSecret("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "ext_99", parsed.UserID)
}
