package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)

	token, err := ti.GenerateToken(42)
	require.NoError(t, err)

	userID, err := ti.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestValidateTokenRejects(t *testing.T) {
	ti := NewTokenIssuer("secret", time.Hour)
	token, err := ti.GenerateToken(1)
	require.NoError(t, err)

	other := NewTokenIssuer("another-secret", time.Hour)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(1)
	require.NoError(t, err)
	_, err = ti.ValidateToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ti.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
