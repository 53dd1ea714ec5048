package models

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func TestVerifyPKCES256(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	assert.True(t, VerifyPKCES256(verifier, challenge(verifier)))
	assert.False(t, VerifyPKCES256("some-other-verifier", challenge(verifier)))
	assert.False(t, VerifyPKCES256("", challenge(verifier)))
	assert.False(t, VerifyPKCES256(verifier, ""))
	// The raw verifier is not its own challenge.
	assert.False(t, VerifyPKCES256(verifier, verifier))
}

func TestValidateForConsume(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	record := func() *AuthorizationCodeRecord {
		return &AuthorizationCodeRecord{
			Code:          "authz_x",
			UserID:        "user-1",
			ClientID:      "client-1",
			RedirectURI:   "http://localhost:5003/auth/callback",
			CodeChallenge: challenge(verifier),
			CreatedAt:     now,
			ExpiresAt:     now.Add(2 * time.Minute),
		}
	}

	t.Run("valid tuple passes", func(t *testing.T) {
		require.NoError(t, record().ValidateForConsume("http://localhost:5003/auth/callback", verifier, now))
	})

	t.Run("expiry is checked first", func(t *testing.T) {
		err := record().ValidateForConsume("http://localhost:5003/auth/callback", verifier, now.Add(3*time.Minute))
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("used code is rejected", func(t *testing.T) {
		r := record()
		r.MarkUsed()
		err := r.ValidateForConsume("http://localhost:5003/auth/callback", verifier, now)
		assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
	})

	t.Run("trailing slash is a redirect mismatch", func(t *testing.T) {
		err := record().ValidateForConsume("http://localhost:5003/auth/callback/", verifier, now)
		assert.ErrorIs(t, err, ErrRedirectURIMismatch)
	})

	t.Run("scheme difference is a redirect mismatch", func(t *testing.T) {
		err := record().ValidateForConsume("https://localhost:5003/auth/callback", verifier, now)
		assert.ErrorIs(t, err, ErrRedirectURIMismatch)
	})

	t.Run("wrong verifier is rejected", func(t *testing.T) {
		err := record().ValidateForConsume("http://localhost:5003/auth/callback", "wrong-verifier-wrong-verifier-wrong-verif", now)
		assert.ErrorIs(t, err, ErrCodeVerifierMismatch)
	})
}
