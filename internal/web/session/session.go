// Package session binds a verified principal to a browser session. The
// session cookie is an HMAC-signed JWT carrying the serialized principal;
// identity is established once at sign-in, then every request trusts only
// this cookie, never tokens replayed from elsewhere.
package session

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cohort/internal/identity"
	dErrors "cohort/pkg/domain-errors"
)

const CookieName = "cohort_web_session"

type sessionClaims struct {
	jwt.RegisteredClaims
	Principal json.RawMessage `json:"prn"`
}

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	secure bool
}

func NewManager(secret, issuer string, ttl time.Duration, secure bool) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, secure: secure}
}

// Issue validates the principal and writes the session cookie. Invariant
// violations refuse the session rather than persisting a broken identity.
func (m *Manager) Issue(w http.ResponseWriter, principal *identity.Principal, now time.Time) error {
	if err := principal.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(principal)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to serialize principal")
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   principal.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Principal: raw,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session cookie")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Principal reads and verifies the session cookie. A missing, expired, or
// tampered cookie yields nil, the unauthenticated marker; the caller decides
// between a 401 and a login redirect.
func (m *Manager) Principal(r *http.Request) *identity.Principal {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	parsed, err := jwt.ParseWithClaims(cookie.Value, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok {
		return nil
	}
	var principal identity.Principal
	if err := json.Unmarshal(claims.Principal, &principal); err != nil {
		return nil
	}
	if err := principal.Validate(); err != nil {
		return nil
	}
	return &principal
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
