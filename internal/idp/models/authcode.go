package models

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"time"
)

// CodeChallengeMethodS256 is the only PKCE method this IdP accepts.
const CodeChallengeMethodS256 = "S256"

// AuthorizationCodeRecord binds a one-time-use code to the tuple it was
// issued for. Redeemed exactly once; invalid after first redemption or
// expiry.
type AuthorizationCodeRecord struct {
	Code          string    `json:"code"`
	UserID        string    `json:"user_id"`
	TenantID      string    `json:"tenant_id"`
	ClientID      string    `json:"client_id"`
	RedirectURI   string    `json:"redirect_uri"`
	Scopes        []string  `json:"scopes"`
	CodeChallenge string    `json:"code_challenge"`
	Nonce         string    `json:"nonce,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Used          bool      `json:"used"`
}

// Domain validation errors. Stores translate these to sentinel errors at the
// boundary; handlers collapse all of them into a generic invalid_grant so the
// token endpoint never reveals which check failed.
var (
	ErrCodeExpired          = errors.New("authorization code expired")
	ErrCodeAlreadyUsed      = errors.New("authorization code already used")
	ErrRedirectURIMismatch  = errors.New("redirect_uri mismatch")
	ErrCodeVerifierMismatch = errors.New("code verifier mismatch")
)

// ValidateForConsume checks every redemption precondition: TTL, single-use,
// exact redirect_uri match, and the PKCE S256 binding.
func (r *AuthorizationCodeRecord) ValidateForConsume(redirectURI, codeVerifier string, now time.Time) error {
	if now.After(r.ExpiresAt) {
		return ErrCodeExpired
	}
	if r.Used {
		return ErrCodeAlreadyUsed
	}
	if redirectURI != r.RedirectURI {
		return ErrRedirectURIMismatch
	}
	if !VerifyPKCES256(codeVerifier, r.CodeChallenge) {
		return ErrCodeVerifierMismatch
	}
	return nil
}

// MarkUsed transitions the code to its terminal redeemed state.
func (r *AuthorizationCodeRecord) MarkUsed() {
	r.Used = true
}

// VerifyPKCES256 reports whether BASE64URL(SHA256(verifier)) equals the
// stored challenge. Constant-time comparison; an empty challenge or verifier
// never matches.
func VerifyPKCES256(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
