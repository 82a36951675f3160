package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "MANAGER", "Ada", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.ID)
	assert.Equal(t, "MANAGER", claims.Role)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "42", claims.Subject)
}

func TestParseToken_Rejects(t *testing.T) {
	expired, err := GenerateToken(1, "EMPLOYEE", "Bo", secret, -time.Minute)
	require.NoError(t, err)

	other, err := GenerateToken(1, "EMPLOYEE", "Bo", []byte("other-secret"), time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong secret": other,
		"garbage":      "not.a.token",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token, secret)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}
