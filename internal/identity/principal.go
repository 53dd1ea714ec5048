// Package identity defines the claims-based principal shared by the IdP and
// the web app. Known claims live as typed fields; everything else rides in an
// ordered extension list so claim order survives round-trips.
package identity

import (
	dErrors "cohort/pkg/domain-errors"
)

// AuthSource identifies how a session was established.
type AuthSource string

const (
	SourceOIDC      AuthSource = "oidc"
	SourceAnonymous AuthSource = "anonymous"
)

// ParticipantMode distinguishes how a participant session joined.
type ParticipantMode string

const (
	ParticipantOIDC      ParticipantMode = "oidc"
	ParticipantAnonymous ParticipantMode = "anonymous"
	ParticipantNone      ParticipantMode = ""
)

// AppRole is the web-app-local permission grant, distinct from and layered
// atop IdP-level authentication. Admin and host are granted only through the
// app authorization table; participant is granted by the participant flow.
type AppRole string

const (
	RoleAdmin       AppRole = "admin"
	RoleHost        AppRole = "host"
	RoleParticipant AppRole = "participant"
	RoleNone        AppRole = ""
)

// Claim is one (type, value) pair. Type is unique only by convention.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Well-known claim types.
const (
	ClaimSubject           = "sub"
	ClaimObjectID          = "oid"
	ClaimTenantID          = "tid"
	ClaimVersion           = "ver"
	ClaimName              = "name"
	ClaimPreferredUsername = "preferred_username"
	ClaimEmail             = "email"
	ClaimGivenName         = "given_name"
	ClaimFamilyName        = "family_name"
	ClaimEmpID             = "empid"
	ClaimAuthSource        = "auth_source"
	ClaimParticipantMode   = "participant_mode"
	ClaimAppRole           = "app_role"
	ClaimDisplayName       = "display_name"
	ClaimPseudonym         = "pseudonym"
	// ClaimRealName holds the anonymous participant's submitted name. It is
	// private: never exposed in any participant-visible response.
	ClaimRealName = "real_name"
)

// Principal is the authenticated identity for one session.
//
// Invariants:
//   - Subject is non-empty
//   - AuthSource is oidc or anonymous
//   - AuthSource == anonymous implies AppRole == participant and no TenantID
type Principal struct {
	Subject         string          `json:"subject"`
	TenantID        string          `json:"tenant_id,omitempty"`
	DisplayName     string          `json:"display_name,omitempty"`
	Email           string          `json:"email,omitempty"`
	AuthSource      AuthSource      `json:"auth_source"`
	ParticipantMode ParticipantMode `json:"participant_mode,omitempty"`
	AppRole         AppRole         `json:"app_role,omitempty"`
	// Extra holds extension claims in issuance order.
	Extra []Claim `json:"extra,omitempty"`
}

// NewOIDCPrincipal constructs a principal for an OIDC-authenticated session.
// The app role is attached later by the role resolver; it never comes from
// IdP claims.
func NewOIDCPrincipal(subject, tenantID, displayName, email string) (*Principal, error) {
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal subject cannot be empty")
	}
	return &Principal{
		Subject:         subject,
		TenantID:        tenantID,
		DisplayName:     displayName,
		Email:           email,
		AuthSource:      SourceOIDC,
		ParticipantMode: ParticipantOIDC,
	}, nil
}

// NewAnonymousPrincipal constructs a participant principal for an anonymous
// session. realName stays in a private claim; pseudonym becomes the display
// name other participants see.
func NewAnonymousPrincipal(subject, realName, pseudonym string) (*Principal, error) {
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal subject cannot be empty")
	}
	if pseudonym == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "anonymous principal requires a pseudonym")
	}
	return &Principal{
		Subject:         subject,
		DisplayName:     pseudonym,
		AuthSource:      SourceAnonymous,
		ParticipantMode: ParticipantAnonymous,
		AppRole:         RoleParticipant,
		Extra: []Claim{
			{Type: ClaimRealName, Value: realName},
			{Type: ClaimPseudonym, Value: pseudonym},
		},
	}, nil
}

// Validate checks the principal invariants. A violation indicates a bug, not
// bad user input, so callers should surface it as a server error.
func (p *Principal) Validate() error {
	if p.Subject == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "principal subject cannot be empty")
	}
	switch p.AuthSource {
	case SourceOIDC:
	case SourceAnonymous:
		if p.AppRole != RoleParticipant {
			return dErrors.New(dErrors.CodeInvariantViolation, "anonymous principal must carry the participant role")
		}
		if p.TenantID != "" {
			return dErrors.New(dErrors.CodeInvariantViolation, "anonymous principal cannot be tenant-scoped")
		}
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown auth source")
	}
	return nil
}

// Claim returns the value of the first extension claim of the given type,
// or "" when absent.
func (p *Principal) Claim(claimType string) string {
	for _, c := range p.Extra {
		if c.Type == claimType {
			return c.Value
		}
	}
	return ""
}

// WithClaim appends an extension claim, preserving order.
func (p *Principal) WithClaim(claimType, value string) *Principal {
	p.Extra = append(p.Extra, Claim{Type: claimType, Value: value})
	return p
}

// IsAuthenticated reports whether the principal represents a live session.
// A nil principal is the unauthenticated marker.
func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.Subject != ""
}
