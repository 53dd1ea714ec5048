package handler

import (
	"crypto/subtle"
	"net/http"

	"cohort/internal/identity"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/requestcontext"
)

// One-shot cookies carrying the in-flight authorization request state. Each
// is written at /auth/login and consumed exactly once at /auth/callback.
const (
	stateCookie    = "cohort_oidc_state"
	nonceCookie    = "cohort_oidc_nonce"
	verifierCookie = "cohort_oidc_verifier"
	returnCookie   = "cohort_oidc_return"

	flowCookieMaxAge = 300
)

// HandleLogin handles GET /auth/login. Starts the OIDC flow: generates
// state, nonce, and PKCE verifier, parks them in short-lived cookies, and
// redirects to the IdP.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authReq, err := h.oidc.BeginAuth(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start oidc flow", "error", err)
		http.Error(w, "Sign-in is unavailable. Try again later.", http.StatusBadGateway)
		return
	}

	setFlowCookie(w, stateCookie, authReq.State)
	setFlowCookie(w, nonceCookie, authReq.Nonce)
	setFlowCookie(w, verifierCookie, authReq.Verifier)
	setFlowCookie(w, returnCookie, safeReturnURL(r.URL.Query().Get("returnUrl")))
	http.Redirect(w, r, authReq.URL, http.StatusFound)
}

// HandleCallback handles GET /auth/callback. Any verification failure is a
// single generic sign-in failure: no partial session is ever established.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	state := consumeFlowCookie(w, r, stateCookie)
	nonce := consumeFlowCookie(w, r, nonceCookie)
	verifier := consumeFlowCookie(w, r, verifierCookie)
	returnURL := safeReturnURL(consumeFlowCookie(w, r, returnCookie))

	if errCode := q.Get("error"); errCode != "" {
		h.failSignIn(w, r, "idp_error: "+errCode)
		return
	}
	code := q.Get("code")
	if code == "" || state == "" || verifier == "" {
		h.failSignIn(w, r, "missing_flow_state")
		return
	}
	if subtle.ConstantTimeCompare([]byte(q.Get("state")), []byte(state)) != 1 {
		h.failSignIn(w, r, "state_mismatch")
		return
	}

	claims, err := h.oidc.CompleteAuth(ctx, code, verifier, nonce)
	if err != nil {
		h.logger.WarnContext(ctx, "oidc callback rejected",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		h.failSignIn(w, r, "verification_failed")
		return
	}

	principal, err := identity.NewOIDCPrincipal(claims.Subject, claims.TenantID, claims.DisplayName(), claims.Email)
	if err != nil {
		h.failSignIn(w, r, "invalid_claims")
		return
	}
	if claims.PreferredUsername != "" {
		principal.WithClaim(identity.ClaimPreferredUsername, claims.PreferredUsername)
	}
	if claims.EmpID != "" {
		principal.WithClaim(identity.ClaimEmpID, claims.EmpID)
	}

	// Role comes from the app-side table only. IdP claims never grant admin
	// or host, and a missing grant is a valid unprivileged session.
	role, err := h.roles.Resolve(ctx, principal.Subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "role resolution failed", "error", err)
		h.failSignIn(w, r, "role_resolution_failed")
		return
	}
	principal.AppRole = role

	if err := h.sessions.Issue(w, principal, requestcontext.Now(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session", "error", err)
		h.failSignIn(w, r, "session_issue_failed")
		return
	}

	h.emitAudit(ctx, r, audit.EventOidcSignIn, principal.Subject)
	if h.metrics != nil {
		h.metrics.IncOidcSignIns()
	}
	http.Redirect(w, r, returnURL, http.StatusFound)
}

// HandleLogout handles GET /auth/logout: clears the app session and sends
// the browser to the IdP end-session endpoint.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if principal := h.sessions.Principal(r); principal != nil {
		h.emitAudit(ctx, r, audit.EventSessionEnded, principal.Subject)
		if h.metrics != nil {
			h.metrics.IncSessionsEnded()
		}
	}
	h.sessions.Clear(w)
	http.Redirect(w, r, h.oidc.EndSessionURL(h.postLogoutURL), http.StatusFound)
}

func (h *Handler) failSignIn(w http.ResponseWriter, r *http.Request, reason string) {
	ctx := r.Context()
	if h.audit != nil {
		event := audit.Event{
			Category:  audit.CategorySecurity,
			Action:    string(audit.EventOidcSignInError),
			Reason:    reason,
			RequestID: requestcontext.RequestID(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
		}
		if err := h.audit.Emit(ctx, event); err != nil {
			h.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
		}
	}
	if h.metrics != nil {
		h.metrics.IncSignInFailures()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte("<!DOCTYPE html><html><body><h1>Sign-in failed</h1><p>Something went wrong during sign-in. <a href=\"/auth/login\">Try again</a>.</p></body></html>"))
}

func setFlowCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   flowCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// consumeFlowCookie reads a one-shot cookie and immediately expires it.
func consumeFlowCookie(w http.ResponseWriter, r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil {
		return ""
	}
	return cookie.Value
}
