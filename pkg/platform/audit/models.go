package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and sink routing.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring:
	// auth failures, lockouts, policy denials, code redemption anomalies.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: token issuance, session creation, routine sign-ins.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key auth actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Subject is the stable principal identifier when known. For anonymous
	// participants this is the generated participant key, never the real name.
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	// Device is a human-readable browser/OS label derived from the
	// User-Agent header, e.g. "Firefox on Linux".
	Device string `json:"device,omitempty"`
}

// AuditEvent names the actions recorded by the auth core.
type AuditEvent string

const (
	// IdP events
	EventLoginSucceeded   AuditEvent = "login_succeeded"
	EventLoginFailed      AuditEvent = "login_failed"
	EventAccountLocked    AuditEvent = "account_locked"
	EventAuthCodeIssued   AuditEvent = "auth_code_issued"
	EventAuthCodeRedeemed AuditEvent = "auth_code_redeemed"
	EventAuthCodeRejected AuditEvent = "auth_code_rejected"
	EventTokensIssued     AuditEvent = "tokens_issued"
	EventIdpLogout        AuditEvent = "idp_logout"

	// Web app events
	EventOidcSignIn      AuditEvent = "oidc_sign_in"
	EventOidcSignInError AuditEvent = "oidc_sign_in_error"
	EventAnonymousSignIn AuditEvent = "anonymous_sign_in"
	EventSessionEnded    AuditEvent = "session_ended"
	EventPolicyDenied    AuditEvent = "policy_denied"
)
