// Package handler exposes the web app's auth endpoints: the OIDC sign-in
// flow, anonymous participant sign-in, session introspection, and the
// role-scoped collaborator routes guarded by the policy middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cohort/internal/identity"
	"cohort/internal/web/approle"
	"cohort/internal/web/device"
	"cohort/internal/web/policy"
	"cohort/internal/web/rp"
	"cohort/internal/web/session"
	dErrors "cohort/pkg/domain-errors"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/platform/httputil"
	"cohort/pkg/requestcontext"
)

// ParticipantService creates anonymous participant principals.
type ParticipantService interface {
	SignInAnonymous(ctx context.Context, realName string) (*identity.Principal, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncOidcSignIns()
	IncSignInFailures()
	IncSessionsEnded()
}

// Handler wires the relying-party auth flow to the session layer.
type Handler struct {
	oidc          *rp.Client
	sessions      *session.Manager
	roles         *approle.Resolver
	participants  ParticipantService
	guard         *policy.Guard
	audit         AuditPublisher
	metrics       Metrics
	logger        *slog.Logger
	postLogoutURL string
}

func New(
	oidcClient *rp.Client,
	sessions *session.Manager,
	roles *approle.Resolver,
	participants ParticipantService,
	guard *policy.Guard,
	auditPub AuditPublisher,
	metrics Metrics,
	logger *slog.Logger,
	postLogoutURL string,
) *Handler {
	return &Handler{
		oidc:          oidcClient,
		sessions:      sessions,
		roles:         roles,
		participants:  participants,
		guard:         guard,
		audit:         auditPub,
		metrics:       metrics,
		logger:        logger,
		postLogoutURL: postLogoutURL,
	}
}

// Register mounts the auth endpoints and the role-scoped routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/login", h.HandleLogin)
	r.Get("/auth/callback", h.HandleCallback)
	r.Get("/auth/logout", h.HandleLogout)
	r.Get("/access/not-authorized", h.HandleNotAuthorized)

	r.Post("/api/participant/anonymous-signin", h.HandleAnonymousSignIn)
	r.Post("/api/session/logout", h.HandleSessionLogout)
	r.Get("/api/me", h.HandleMe)

	r.With(h.guard.Require(policy.AdminOnly)).Get("/admin", h.HandleAdminHome)
	r.With(h.guard.Require(policy.HostOnly)).Get("/host", h.HandleHostHome)
	r.With(h.guard.Require(policy.HostOnly)).Get("/api/host/quizzes", h.HandleHostQuizzes)
	r.With(h.guard.Require(policy.ParticipantAnonymousOrOidc)).Get("/api/participant/quiz", h.HandleParticipantQuiz)
}

// HandleAnonymousSignIn handles POST /api/participant/anonymous-signin.
// The response carries the participant key and the public pseudonym; the
// submitted real name lives only inside the session cookie.
func (h *Handler) HandleAnonymousSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, ok := httputil.DecodeJSON[struct {
		Name string `json:"name"`
	}](w, r)
	if !ok {
		return
	}

	principal, err := h.participants.SignInAnonymous(ctx, body.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.sessions.Issue(w, principal, requestcontext.Now(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to establish session"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"participantKey": principal.Subject,
		"displayName":    principal.DisplayName,
	})
}

// HandleSessionLogout handles POST /api/session/logout.
func (h *Handler) HandleSessionLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if principal := h.sessions.Principal(r); principal != nil {
		h.emitAudit(ctx, r, audit.EventSessionEnded, principal.Subject)
		if h.metrics != nil {
			h.metrics.IncSessionsEnded()
		}
	}
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /api/me. The anonymous real-name claim is stripped:
// only the pseudonym is participant-visible.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := h.sessions.Principal(r)
	if !principal.IsAuthenticated() {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"isAuthenticated": false})
		return
	}

	extra := make([]identity.Claim, 0, len(principal.Extra))
	for _, c := range principal.Extra {
		if c.Type == identity.ClaimRealName {
			continue
		}
		extra = append(extra, c)
	}
	// A session with no role reports null, not "", so API consumers can
	// distinguish "no role granted" from a role value.
	var appRole any
	if principal.AppRole != identity.RoleNone {
		appRole = principal.AppRole
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"isAuthenticated": true,
		"subject":         principal.Subject,
		"displayName":     principal.DisplayName,
		"email":           principal.Email,
		"authSource":      principal.AuthSource,
		"participantMode": principal.ParticipantMode,
		"appRole":         appRole,
		"claims":          extra,
	})
}

// HandleNotAuthorized handles GET /access/not-authorized.
func (h *Handler) HandleNotAuthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>Not authorized</h1><p>Your account does not have access to this area.</p></body></html>"))
}

// Role-scoped placeholder routes. The quiz surfaces proper live elsewhere;
// these prove the policy contract for them.

func (h *Handler) HandleAdminHome(w http.ResponseWriter, r *http.Request) {
	writePlaceholder(w, "Admin area")
}

func (h *Handler) HandleHostHome(w http.ResponseWriter, r *http.Request) {
	writePlaceholder(w, "Host area")
}

func (h *Handler) HandleHostQuizzes(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"quizzes": []any{}})
}

func (h *Handler) HandleParticipantQuiz(w http.ResponseWriter, r *http.Request) {
	principal := policy.FromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"displayName": principal.DisplayName,
		"quiz":        nil,
	})
}

func writePlaceholder(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>" + title + "</h1></body></html>"))
}

func (h *Handler) emitAudit(ctx context.Context, r *http.Request, action audit.AuditEvent, subject string) {
	if h.audit == nil {
		return
	}
	event := audit.Event{
		Category:  audit.CategoryOperations,
		Subject:   subject,
		Action:    string(action),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    device.ParseUserAgent(r.UserAgent()),
	}
	if err := h.audit.Emit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}

// safeReturnURL only accepts local paths so returnUrl never becomes an open
// redirect.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}
