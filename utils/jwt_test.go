package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	InitLogger("warn")
	issuer := NewTokenIssuer("secret", time.Hour)

	token, err := issuer.GenerateToken(42, "staff")
	require.NoError(t, err)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "staff", claims.Role)

	_, err = NewTokenIssuer("other", time.Hour).ParseToken(token)
	assert.Error(t, err, "wrong secret")

	expired, err := NewTokenIssuer("secret", -time.Minute).GenerateToken(42, "staff")
	require.NoError(t, err)
	_, err = issuer.ParseToken(expired)
	assert.Error(t, err, "expired token")

	_, err = issuer.ParseToken("not-a-token")
	assert.Error(t, err)
}
