package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret-key-0123456789abcdef", time.Hour)
	require.True(t, auth.Enabled())

	token, err := auth.GenerateToken("agent-1")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.ServerName)
}

func TestAuthRejectsForeignToken(t *testing.T) {
	a := NewAuthService("secret-a-0123456789abcdef000000", time.Hour)
	b := NewAuthService("secret-b-0123456789abcdef000000", time.Hour)

	token, err := a.GenerateToken("agent-1")
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	auth := NewAuthService("", time.Hour)
	assert.False(t, auth.Enabled())

	_, err := auth.GenerateToken("agent-1")
	assert.Error(t, err)
}
