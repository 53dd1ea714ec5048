package service

import (
	"context"

	"cohort/internal/idp/models"
	dErrors "cohort/pkg/domain-errors"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/requestcontext"
	"cohort/pkg/secrets"
)

// errInvalidGrant is what every code redemption failure collapses into. The
// token endpoint never reveals whether the code was unknown, expired, reused,
// or bound to a different redirect URI or verifier.
func errInvalidGrant() error {
	return dErrors.New(dErrors.CodeValidation, "invalid authorization code")
}

// Exchange redeems an authorization code for an access token and ID token.
// The code is consumed before the validation outcome is known; a failed
// exchange still burns it.
func (s *Service) Exchange(ctx context.Context, req *models.TokenRequest) (*models.TokenResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if models.GrantType(req.GrantType) != models.GrantAuthorizationCode {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unsupported grant_type")
	}

	client, err := s.clients.FindByClientID(ctx, req.ClientID)
	if err != nil || !client.Active {
		return nil, s.failExchange(ctx, "invalid_client", "unknown_client",
			dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials"))
	}
	if err := secrets.Verify(req.ClientSecret, client.ClientSecretHash); err != nil {
		return nil, s.failExchange(ctx, "invalid_client", "wrong_client_secret",
			dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials"))
	}

	now := requestcontext.Now(ctx)
	record, err := s.codes.Consume(ctx, req.Code, req.RedirectURI, req.CodeVerifier, now)
	if err != nil {
		return nil, s.failExchange(ctx, "invalid_grant", "code_rejected", errInvalidGrant())
	}
	if record.ClientID != client.ClientID {
		return nil, s.failExchange(ctx, "invalid_grant", "client_mismatch", errInvalidGrant())
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil || !user.Active {
		return nil, s.failExchange(ctx, "invalid_grant", "user_unresolvable", errInvalidGrant())
	}

	claims := FilterForIDToken(IssueClaims(user, record.TenantID))
	idToken, err := s.signer.SignIDToken(client.ClientID, user.ID, record.Nonce, claims, now, s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign id token")
	}
	accessToken, jti, err := s.signer.SignAccessToken(user.ID, client.ClientID, record.Scopes, now, s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	s.logAudit(ctx, audit.CategoryOperations, audit.EventAuthCodeRedeemed, user.ID,
		"client_id", client.ClientID)
	s.logAudit(ctx, audit.CategoryOperations, audit.EventTokensIssued, user.ID,
		"client_id", client.ClientID)
	s.logger.InfoContext(ctx, "tokens issued",
		"subject", user.ID, "client_id", client.ClientID, "jti", jti)
	if s.metrics != nil {
		s.metrics.ObserveTokenExchange("success")
	}

	return &models.TokenResult{
		AccessToken: accessToken,
		IDToken:     idToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.TokenTTL.Seconds()),
	}, nil
}

func (s *Service) failExchange(ctx context.Context, result, reason string, err error) error {
	s.logAudit(ctx, audit.CategorySecurity, audit.EventAuthCodeRejected, "",
		"reason", reason)
	if s.metrics != nil {
		s.metrics.ObserveTokenExchange(result)
	}
	return err
}

// Logout terminates the subject's IdP session state and resolves where the
// browser should land afterwards. An unregistered post-logout URI falls back
// to the IdP root rather than becoming an open redirect.
func (s *Service) Logout(ctx context.Context, req *models.LogoutRequest) (string, error) {
	if req.Subject != "" {
		if s.cfg.RevokeCodesOnLogout {
			n, err := s.codes.DeleteByUserID(ctx, req.Subject)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to revoke outstanding codes", "error", err)
			} else if n > 0 {
				s.logger.InfoContext(ctx, "revoked outstanding authorization codes",
					"subject", req.Subject, "count", n)
			}
		}
		s.logAudit(ctx, audit.CategoryOperations, audit.EventIdpLogout, req.Subject)
	}

	target := "/"
	if req.PostLogoutRedirectURI != "" && req.ClientID != "" {
		client, err := s.clients.FindByClientID(ctx, req.ClientID)
		if err == nil && client.AllowsPostLogoutRedirectURI(req.PostLogoutRedirectURI) {
			target = req.PostLogoutRedirectURI
		}
	}
	return target, nil
}
