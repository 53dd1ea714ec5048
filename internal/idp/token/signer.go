// Package token signs the identity and access tokens issued by the IdP.
package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"cohort/internal/identity"
	dErrors "cohort/pkg/domain-errors"
)

// Signer issues RS256-signed tokens and publishes the matching JWKS.
type Signer struct {
	key    *rsa.PrivateKey
	keyID  string
	issuer string
}

// NewSigner builds a signer from PEM key material. With an empty PEM in dev
// mode a fresh per-process key is generated, so tokens do not survive
// restarts; in production mode the signer fails closed instead.
func NewSigner(issuer, signingKeyPEM string, production bool) (*Signer, error) {
	var key *rsa.PrivateKey
	switch {
	case signingKeyPEM != "":
		parsed, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(signingKeyPEM))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "invalid signing key PEM")
		}
		key = parsed
	case production:
		return nil, dErrors.New(dErrors.CodeInternal, "production mode requires durable signing key material")
	default:
		generated, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("generate dev signing key: %w", err)
		}
		key = generated
	}

	return &Signer{
		key:    key,
		keyID:  keyIDFor(&key.PublicKey),
		issuer: issuer,
	}, nil
}

// SignIDToken issues the identity token for one client. The claim set must
// already be destination-filtered by the issuer; this method only adds the
// registered JWT claims.
func (s *Signer) SignIDToken(audience, subject, nonce string, claims []identity.Claim, now time.Time, ttl time.Duration) (string, error) {
	mapClaims := jwt.MapClaims{
		"iss": s.issuer,
		"aud": audience,
		"sub": subject,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	for _, c := range claims {
		if c.Type == "sub" {
			continue // registered claim wins
		}
		mapClaims[c.Type] = c.Value
	}
	if nonce != "" {
		mapClaims["nonce"] = nonce
	}
	return s.sign(mapClaims)
}

// SignAccessToken issues the bearer access token. Returns the token and its
// jti.
func (s *Signer) SignAccessToken(subject, clientID string, scopes []string, now time.Time, ttl time.Duration) (string, string, error) {
	jti := uuid.NewString()
	mapClaims := jwt.MapClaims{
		"iss":       s.issuer,
		"aud":       clientID,
		"sub":       subject,
		"client_id": clientID,
		"scope":     scopes,
		"jti":       jti,
		"iat":       jwt.NewNumericDate(now),
		"exp":       jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := s.sign(mapClaims)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (s *Signer) sign(claims jwt.MapClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = s.keyID
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// PublicKey exposes the verification key. Test helper.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// jwk is the published JSON Web Key for the signing key pair.
type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS renders the key set document served at the jwks_uri.
func (s *Signer) JWKS() ([]byte, error) {
	pub := &s.key.PublicKey
	doc := struct {
		Keys []jwk `json:"keys"`
	}{
		Keys: []jwk{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: s.keyID,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	return json.Marshal(doc)
}

func keyIDFor(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}
