package policy

import (
	"context"
	"log/slog"
	"net/http"

	"cohort/internal/identity"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/platform/httputil"
	"cohort/pkg/requestcontext"
)

type principalKey struct{}

// FromContext returns the principal attached by the guard middleware, or nil.
func FromContext(ctx context.Context) *identity.Principal {
	if p, ok := ctx.Value(principalKey{}).(*identity.Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal attaches a principal to the context. Exported for handler
// tests that bypass the middleware.
func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// SessionReader resolves the principal bound to a request, nil when none.
type SessionReader interface {
	Principal(r *http.Request) *identity.Principal
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	ObservePolicyDecision(policy string, allowed bool)
}

// Guard enforces named policies on routes.
type Guard struct {
	sessions SessionReader
	audit    AuditPublisher
	metrics  Metrics
	logger   *slog.Logger
}

func NewGuard(sessions SessionReader, auditPub AuditPublisher, metrics Metrics, logger *slog.Logger) *Guard {
	return &Guard{sessions: sessions, audit: auditPub, metrics: metrics, logger: logger}
}

// Require wraps a route with a policy check. Allowed requests proceed with
// the principal attached to the context; denied requests get the API status
// or browser redirect from Decide.
func (g *Guard) Require(name Name) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := g.sessions.Principal(r)
			allowed := Evaluate(name, principal)
			if g.metrics != nil {
				g.metrics.ObservePolicyDecision(string(name), allowed)
			}
			if allowed {
				ctx = WithPrincipal(ctx, principal)
				ctx = requestcontext.WithSubject(ctx, principal.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			g.denied(ctx, name, principal)
			decision := Decide(r.URL.Path, r.URL.RequestURI(), principal.IsAuthenticated(), false)
			if decision.RedirectURL != "" {
				http.Redirect(w, r, decision.RedirectURL, http.StatusFound)
				return
			}
			httputil.WriteJSON(w, decision.Status, map[string]string{
				"error": http.StatusText(decision.Status),
			})
		})
	}
}

func (g *Guard) denied(ctx context.Context, name Name, principal *identity.Principal) {
	subject := ""
	if principal.IsAuthenticated() {
		subject = principal.Subject
	}
	g.logger.InfoContext(ctx, "policy denied request",
		"policy", name, "subject", subject, "request_id", requestcontext.RequestID(ctx))
	if g.audit == nil {
		return
	}
	event := audit.Event{
		Category:  audit.CategorySecurity,
		Subject:   subject,
		Action:    string(audit.EventPolicyDenied),
		Reason:    string(name),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	}
	if err := g.audit.Emit(ctx, event); err != nil {
		g.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
	}
}
