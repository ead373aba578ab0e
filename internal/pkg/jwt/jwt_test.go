package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken("analyst-1", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "analyst-1", claims.UserID)
	require.Equal(t, "analyst-1", claims.Subject)
}

func TestParseTokenRejects(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := GenerateToken("analyst-1", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	require.Error(t, err)

	valid, err := GenerateToken("analyst-1", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(valid, []byte("other-secret"))
	require.Error(t, err)

	_, err = ParseToken("not-a-token", secret)
	require.Error(t, err)
}

func TestGenerateTokenRequiresUser(t *testing.T) {
	_, err := GenerateToken("  ", []byte("s"), time.Hour)
	require.Error(t, err)
}
