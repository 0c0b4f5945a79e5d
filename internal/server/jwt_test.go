package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-matcher/internal/config"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(_ *testing.T, expirationHours int) *JWTService {
	return NewJWTService(config.JWTConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := setupTestJWTService(t, 24)

	token, err := service.GenerateToken("recruiting-ui")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	sub, err := claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "recruiting-ui", sub)
}

func TestJWTService_GenerateToken_Errors(t *testing.T) {
	_, err := setupTestJWTService(t, 24).GenerateToken("")
	assert.Error(t, err)

	_, err = NewJWTService(config.JWTConfig{}).GenerateToken("cli")
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	service := setupTestJWTService(t, 1)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return issued }

	token, err := service.GenerateToken("cli")
	require.NoError(t, err)

	service.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token expired")
}

func TestJWTService_WrongSecret(t *testing.T) {
	token, err := setupTestJWTService(t, 24).GenerateToken("cli")
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{Secret: "another-secret-of-enough-length", ExpirationHours: 24})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token signature")
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	service := setupTestJWTService(t, 24)

	t.Run("malformed", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.jwt")
		assert.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := service.ValidateToken("")
		assert.Error(t, err)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "cli",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})
	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "cli"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})
}
