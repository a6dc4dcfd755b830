package security

import (
	"strings"
	"testing"

	"github.com/printly/printly-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdminConfig() config.AdminConfig {
	return config.AdminConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPasscode(t *testing.T) {
	encoded, err := HashPasscode("shop-secret-1234", testAdminConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := VerifyPasscode("shop-secret-1234", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPasscode("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasscodeRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPasscode("anything", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestGenerateTokenShape(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	assert.True(t, LooksLikeToken(token))
	assert.True(t, strings.HasPrefix(token, "PT-"))
}

func TestGenerateTokenIsRandom(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestLooksLikeToken(t *testing.T) {
	assert.False(t, LooksLikeToken(""))
	assert.False(t, LooksLikeToken("PT-"))
	assert.False(t, LooksLikeToken("TK-ABCDEF"))
	assert.True(t, LooksLikeToken("PT-ABCDEF123"))
}
