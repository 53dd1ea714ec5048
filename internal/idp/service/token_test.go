package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cohort/internal/idp/models"
	dErrors "cohort/pkg/domain-errors"
)

func (s *ServiceSuite) issueCode() string {
	result, err := s.svc.Authorize(s.ctx(), s.authorizeRequest())
	s.Require().NoError(err)
	return result.Code
}

func (s *ServiceSuite) tokenRequest(code string) *models.TokenRequest {
	return &models.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  testRedirectURI,
		CodeVerifier: testVerifier,
		ClientID:     testClientID,
		ClientSecret: testSecret,
	}
}

func (s *ServiceSuite) TestExchange() {
	ctx := s.ctx()

	s.Run("valid exchange issues both tokens", func() {
		result, err := s.svc.Exchange(ctx, s.tokenRequest(s.issueCode()))
		s.Require().NoError(err)
		s.NotEmpty(result.AccessToken)
		s.NotEmpty(result.IDToken)
		s.Equal("Bearer", result.TokenType)
		s.Equal(3600, result.ExpiresIn)

		claims := s.parseIDToken(result.IDToken)
		s.Equal(testUserID, claims["sub"])
		s.Equal(testUserID, claims["oid"])
		s.Equal(testTenantID, claims["tid"])
		s.Equal("2.0", claims["ver"])
		s.Equal("admin@example.com", claims["preferred_username"])
		s.Equal("nonce-1", claims["nonce"])
		s.Equal(testClientID, claims["aud"])
	})

	s.Run("second redemption of the same code fails", func() {
		code := s.issueCode()
		_, err := s.svc.Exchange(ctx, s.tokenRequest(code))
		s.Require().NoError(err)

		_, err = s.svc.Exchange(ctx, s.tokenRequest(code))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("invalid authorization code", err.Error())
	})

	s.Run("wrong code_verifier fails with the same generic error", func() {
		req := s.tokenRequest(s.issueCode())
		req.CodeVerifier = "not-the-verifier-that-was-hashed-000000000000"
		_, err := s.svc.Exchange(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("invalid authorization code", err.Error())
	})

	s.Run("redirect_uri differing by trailing slash fails", func() {
		req := s.tokenRequest(s.issueCode())
		req.RedirectURI = testRedirectURI + "/"
		_, err := s.svc.Exchange(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("redirect_uri differing by scheme fails", func() {
		req := s.tokenRequest(s.issueCode())
		req.RedirectURI = "https://localhost:5003/auth/callback"
		_, err := s.svc.Exchange(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("expired code fails", func() {
		code := s.issueCode()
		s.now = s.now.Add(3 * time.Minute)
		_, err := s.svc.Exchange(s.ctx(), s.tokenRequest(code))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.now = s.now.Add(-3 * time.Minute)
	})

	s.Run("wrong client secret is invalid_client", func() {
		req := s.tokenRequest(s.issueCode())
		req.ClientSecret = "not-the-secret"
		_, err := s.svc.Exchange(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unsupported grant type is rejected", func() {
		req := s.tokenRequest(s.issueCode())
		req.GrantType = "client_credentials"
		_, err := s.svc.Exchange(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestLogout() {
	ctx := s.ctx()

	s.Run("registered post-logout uri is honored", func() {
		target, err := s.svc.Logout(ctx, &models.LogoutRequest{
			ClientID:              testClientID,
			PostLogoutRedirectURI: "http://localhost:5003/",
			Subject:               testUserID,
		})
		s.Require().NoError(err)
		s.Equal("http://localhost:5003/", target)
	})

	s.Run("unregistered post-logout uri falls back to root", func() {
		target, err := s.svc.Logout(ctx, &models.LogoutRequest{
			ClientID:              testClientID,
			PostLogoutRedirectURI: "http://evil.example.com/",
			Subject:               testUserID,
		})
		s.Require().NoError(err)
		s.Equal("/", target)
	})

	s.Run("revocation deletes outstanding codes when enabled", func() {
		s.svc.cfg.RevokeCodesOnLogout = true
		code := s.issueCode()
		_, err := s.svc.Logout(ctx, &models.LogoutRequest{Subject: testUserID})
		s.Require().NoError(err)

		_, err = s.svc.Exchange(ctx, s.tokenRequest(code))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) parseIDToken(raw string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.signer.PublicKey(), nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return s.now }))
	s.Require().NoError(err)
	return claims
}
