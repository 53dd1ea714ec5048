package service

import (
	"context"
	"net/url"

	"cohort/internal/idp/models"
	dErrors "cohort/pkg/domain-errors"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/requestcontext"
	"cohort/pkg/secrets"
)

// Authorize validates an authorization request for an authenticated subject
// and mints a one-time code bound to the client, redirect URI, and PKCE
// challenge. The handler must only call this once the subject has a local
// session; an unauthenticated browser goes to the login page instead.
func (s *Service) Authorize(ctx context.Context, req *models.AuthorizeRequest) (*models.AuthorizeResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authorization requires an authenticated session")
	}

	client, err := s.clients.FindByClientID(ctx, req.ClientID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown client")
	}
	if !client.Active {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client is not active")
	}
	if !client.AllowsRedirectURI(req.RedirectURI) {
		s.logAudit(ctx, audit.CategorySecurity, audit.EventAuthCodeRejected, req.Subject,
			"reason", "redirect_uri_not_registered", "client_id", req.ClientID)
		return nil, dErrors.New(dErrors.CodeBadRequest, "redirect_uri is not registered for this client")
	}
	if !client.AllowsGrant(models.GrantAuthorizationCode) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client may not use the authorization_code grant")
	}

	// The session named a subject the user store cannot resolve. That is a
	// broken internal state, not a caller mistake.
	user, err := s.users.FindByID(ctx, req.Subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "session subject has no backing user")
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is not active")
	}

	now := requestcontext.Now(ctx)
	raw, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate authorization code")
	}
	code := "authz_" + raw
	record := &models.AuthorizationCodeRecord{
		Code:          code,
		UserID:        user.ID,
		TenantID:      s.cfg.TenantID,
		ClientID:      client.ClientID,
		RedirectURI:   req.RedirectURI,
		Scopes:        client.FilterScopes(req.Scopes),
		CodeChallenge: req.CodeChallenge,
		Nonce:         req.Nonce,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.AuthCodeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist authorization code")
	}

	s.logAudit(ctx, audit.CategoryOperations, audit.EventAuthCodeIssued, user.ID,
		"client_id", client.ClientID)
	if s.metrics != nil {
		s.metrics.IncAuthCodesIssued()
	}

	redirect, err := buildCodeRedirect(req.RedirectURI, code, req.State)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build redirect")
	}
	return &models.AuthorizeResult{Code: code, RedirectURI: redirect, State: req.State}, nil
}

func buildCodeRedirect(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
