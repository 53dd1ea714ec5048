package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cohort/pkg/domain-errors"
)

func TestGenerate(t *testing.T) {
	first, err := Generate()
	require.NoError(t, err)
	second, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.GreaterOrEqual(t, len(first), 32)
	assert.NotContains(t, first, "=", "raw url encoding has no padding")
}

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("Pass123$")
	require.NoError(t, err)
	assert.NotEqual(t, "Pass123$", hash)

	assert.NoError(t, Verify("Pass123$", hash))

	t.Run("wrong secret", func(t *testing.T) {
		err := Verify("wrong", hash)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("same input hashes differently", func(t *testing.T) {
		other, err := Hash("Pass123$")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})
}

func TestHashRejectsBadInput(t *testing.T) {
	t.Run("empty secret", func(t *testing.T) {
		_, err := Hash("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("secret beyond bcrypt limit", func(t *testing.T) {
		_, err := Hash(strings.Repeat("a", 100))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestVerifyMalformedHash(t *testing.T) {
	err := Verify("Pass123$", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.False(t, dErrors.HasCode(err, dErrors.CodeUnauthorized),
		"a malformed hash is a server problem, not a credential failure")
}
