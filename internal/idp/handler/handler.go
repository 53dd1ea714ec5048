// Package handler exposes the IdP's OIDC endpoints and the local login page.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"cohort/internal/idp/models"
	"cohort/internal/idp/session"
	"cohort/internal/idp/token"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/httputil"
	"cohort/pkg/requestcontext"
)

// Service defines the IdP operations the handler depends on.
type Service interface {
	Login(ctx context.Context, identifier, password string) (*models.User, error)
	Authorize(ctx context.Context, req *models.AuthorizeRequest) (*models.AuthorizeResult, error)
	Exchange(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error)
	Logout(ctx context.Context, req *models.LogoutRequest) (string, error)
}

// Handler wires the OIDC endpoints to the IdP service.
type Handler struct {
	service  Service
	sessions *session.Manager
	signer   *token.Signer
	issuer   string
	logger   *slog.Logger
}

func New(service Service, sessions *session.Manager, signer *token.Signer, issuer string, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		signer:   signer,
		issuer:   issuer,
		logger:   logger,
	}
}

// Register mounts the OIDC and account endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/.well-known/openid-configuration", h.HandleDiscovery)
	r.Get("/connect/jwks", h.HandleJWKS)
	r.Get("/connect/authorize", h.HandleAuthorize)
	r.Post("/connect/authorize", h.HandleAuthorize)
	r.Post("/connect/token", h.HandleToken)
	r.Get("/connect/logout", h.HandleLogout)
	r.Get("/account/login", h.HandleLoginPage)
	r.Post("/account/login", h.HandleLoginSubmit)
}

// HandleDiscovery handles GET /.well-known/openid-configuration.
func (h *Handler) HandleDiscovery(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"issuer":                                h.issuer,
		"authorization_endpoint":                h.issuer + "/connect/authorize",
		"token_endpoint":                        h.issuer + "/connect/token",
		"jwks_uri":                              h.issuer + "/connect/jwks",
		"end_session_endpoint":                  h.issuer + "/connect/logout",
		"response_types_supported":              []string{"code"},
		"grant_types_supported":                 []string{"authorization_code"},
		"scopes_supported":                      []string{"openid", "profile", "email"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"code_challenge_methods_supported":      []string{models.CodeChallengeMethodS256},
		"token_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post"},
	})
}

// HandleJWKS handles GET /connect/jwks.
func (h *Handler) HandleJWKS(w http.ResponseWriter, r *http.Request) {
	doc, err := h.signer.JWKS()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// HandleAuthorize handles GET and POST /connect/authorize. An unauthenticated
// browser is sent to the login page with the full authorize URL as the return
// target; after login the browser replays the request with a session attached.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed authorize request"))
		return
	}
	q := r.Form

	subject := h.sessions.Subject(r)
	if subject == "" {
		// A form-posted request is replayed as a GET after login, so the
		// parameters move into the query string of the return target.
		returnURL := r.URL.RequestURI()
		if r.Method == http.MethodPost {
			returnURL = r.URL.Path + "?" + q.Encode()
		}
		http.Redirect(w, r, "/account/login?returnUrl="+url.QueryEscape(returnURL), http.StatusFound)
		return
	}

	req := &models.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scopes:              strings.Fields(q.Get("scope")),
		State:               q.Get("state"),
		Nonce:               q.Get("nonce"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Subject:             subject,
	}

	result, err := h.service.Authorize(ctx, req)
	if err != nil {
		// Client or redirect_uri failed validation, so the browser must not
		// be bounced to an unverified location. The error lands here instead.
		h.logger.WarnContext(ctx, "authorize request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", req.ClientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	http.Redirect(w, r, result.RedirectURI, http.StatusFound)
}

// HandleToken handles POST /connect/token. Errors follow RFC 6749: a JSON
// body with error and error_description, 401 for client authentication
// failures, 400 for everything else the caller got wrong.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	req := &models.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		Code:         r.PostFormValue("code"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
	}
	// client_secret_basic wins over form credentials when both are present.
	if id, secret, ok := r.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}

	result, err := h.service.Exchange(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "token exchange rejected",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", req.ClientID,
			"error", err,
		)
		writeTokenError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleLogout handles GET /connect/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := &models.LogoutRequest{
		ClientID:              q.Get("client_id"),
		PostLogoutRedirectURI: q.Get("post_logout_redirect_uri"),
		Subject:               h.sessions.Subject(r),
	}
	target, err := h.service.Logout(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.sessions.Clear(w)
	http.Redirect(w, r, target, http.StatusFound)
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch dErrors.GetCode(err) {
	case dErrors.CodeUnauthorized:
		w.Header().Set("WWW-Authenticate", `Basic realm="token"`)
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", errMessage(err))
	case dErrors.CodeValidation:
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "invalid authorization code")
	default:
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "")
	}
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, status, body)
}

func errMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
