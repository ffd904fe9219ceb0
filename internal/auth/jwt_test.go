package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)

	token, err := m.GenerateAccessToken("google:123", "user@example.com", "User")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "google:123", claims.UID())
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "User", claims.Name)
}

func TestExpiredAccessToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken("google:123", "user@example.com", "User")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestWrongSecretRejected(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, time.Hour)
	other := NewJWTManager("other-secret", time.Hour, time.Hour)

	token, err := m.GenerateAccessToken("google:123", "user@example.com", "User")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, time.Hour)
	_, err := m.ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)

	token, err := m.GenerateRefreshToken("google:123")
	require.NoError(t, err)

	uid, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "google:123", uid)
}

func TestAuthContextStates(t *testing.T) {
	assert.False(t, Pending.Resolved)
	assert.False(t, Pending.LoggedIn())

	anon := Anonymous()
	assert.True(t, anon.Resolved)
	assert.False(t, anon.LoggedIn())

	subject := Subject("u1")
	assert.True(t, subject.Resolved)
	assert.True(t, subject.LoggedIn())
	assert.Equal(t, "u1", subject.UID)
}
