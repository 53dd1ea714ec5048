// Package session manages the IdP's local login cookie. The cookie is an
// HMAC-signed JWT carrying only the subject; everything else is looked up
// per request so a stale cookie can never resurrect deleted account state.
package session

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "cohort/pkg/domain-errors"
)

const CookieName = "cohort_idp_session"

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	secure bool
}

func NewManager(secret, issuer string, ttl time.Duration, secure bool) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl, secure: secure}
}

// Issue writes a fresh session cookie for the subject.
func (m *Manager) Issue(w http.ResponseWriter, subject string, now time.Time) error {
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
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

// Subject reads and verifies the session cookie, returning the subject or
// "" when no valid session exists. An invalid or expired cookie is the same
// as no cookie: the caller sends the browser to the login page.
func (m *Manager) Subject(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	parsed, err := jwt.ParseWithClaims(cookie.Value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil || !parsed.Valid {
		return ""
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return ""
	}
	return claims.Subject
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
