// Package policy evaluates named authorization policies over the session
// principal. Evaluation is pure and synchronous: the role was resolved and
// cached in the cookie at sign-in, so no store round-trip happens here.
package policy

import (
	"net/url"
	"strings"

	"cohort/internal/identity"
)

// Name identifies a policy.
type Name string

const (
	AdminOnly                  Name = "AdminOnly"
	HostOnly                   Name = "HostOnly"
	ParticipantOnly            Name = "ParticipantOnly"
	ParticipantAnonymousOrOidc Name = "ParticipantAnonymousOrOidc"
)

// Evaluate reports whether the principal satisfies the named policy. A nil
// principal is unauthenticated and satisfies nothing; an unknown policy name
// denies.
func Evaluate(name Name, p *identity.Principal) bool {
	if !p.IsAuthenticated() {
		return false
	}
	switch name {
	case AdminOnly:
		return p.AuthSource == identity.SourceOIDC && p.AppRole == identity.RoleAdmin
	case HostOnly:
		return p.AuthSource == identity.SourceOIDC && p.AppRole == identity.RoleHost
	case ParticipantOnly:
		return p.AppRole == identity.RoleParticipant
	case ParticipantAnonymousOrOidc:
		if p.AppRole == identity.RoleParticipant {
			return true
		}
		return p.AuthSource == identity.SourceOIDC && p.ParticipantMode == identity.ParticipantOIDC
	default:
		return false
	}
}

// IsAPIPath classifies a request path: API callers get machine-readable
// statuses, browser paths get redirects.
func IsAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// Decision is the outcome of a denial-handling decision.
type Decision struct {
	Allow bool
	// Status is the HTTP status for a denied API request, 0 otherwise.
	Status int
	// RedirectURL is where a denied browser request is sent, "" otherwise.
	RedirectURL string
}

// Decide turns an evaluation result into the response action. Denied API
// requests get 401 or 403. Denied browser requests redirect: unauthenticated
// sessions to the login flow with the original URL as return target,
// authenticated-but-unprivileged ones to the not-authorized page so an
// under-privileged OIDC user is never bounced back into a login loop.
func Decide(path, requestURI string, authenticated, allowed bool) Decision {
	if allowed {
		return Decision{Allow: true}
	}
	if IsAPIPath(path) {
		if !authenticated {
			return Decision{Status: 401}
		}
		return Decision{Status: 403}
	}
	if !authenticated {
		return Decision{RedirectURL: "/auth/login?returnUrl=" + url.QueryEscape(requestURI)}
	}
	return Decision{RedirectURL: "/access/not-authorized"}
}
