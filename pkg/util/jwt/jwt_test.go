package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", 30, "reconnect")

	token, claims, err := m.GenerateAccessToken(42)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	parsed, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.InDelta(t, 30*time.Minute, m.Remaining(parsed), float64(5*time.Second))
}

func TestManager_DistinctJTI(t *testing.T) {
	m := NewManager("test-secret", 30, "reconnect")
	_, c1, err := m.GenerateAccessToken(1)
	require.NoError(t, err)
	_, c2, err := m.GenerateAccessToken(1)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewManager("secret-a", 30, "reconnect").GenerateAccessToken(1)
	require.NoError(t, err)

	_, err = NewManager("secret-b", 30, "reconnect").ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("test-secret", 1, "reconnect")
	token, _, err := m.GenerateAccessToken(1)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestManager_RejectsOtherSubject(t *testing.T) {
	m := NewManager("test-secret", 30, "reconnect")
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "refresh_token",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidSubject)
}
