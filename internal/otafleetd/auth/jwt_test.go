package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewManager("secret", time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, time.Hour, m.TTL())
}

func TestGenerateAndParse(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	token, err := m.Generate("user-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m1, err := NewManager("secret-one", time.Hour)
	require.NoError(t, err)
	m2, err := NewManager("secret-two", time.Hour)
	require.NoError(t, err)

	token, err := m1.Generate("user-1", "viewer")
	require.NoError(t, err)

	_, err = m2.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m, err := NewManager("secret", -time.Minute)
	require.NoError(t, err)

	token, err := m.Generate("user-1", "viewer")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	m, err := NewManager("secret", time.Hour)
	require.NoError(t, err)

	_, err = m.Parse("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("", "hunter22"))
}
