package service

import (
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"

	"cohort/internal/idp/models"
	dErrors "cohort/pkg/domain-errors"
)

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *ServiceSuite) authorizeRequest() *models.AuthorizeRequest {
	return &models.AuthorizeRequest{
		ClientID:            testClientID,
		RedirectURI:         testRedirectURI,
		ResponseType:        "code",
		Scopes:              []string{"openid", "profile", "email"},
		State:               "abc123",
		Nonce:               "nonce-1",
		CodeChallenge:       challengeFor(testVerifier),
		CodeChallengeMethod: models.CodeChallengeMethodS256,
		Subject:             testUserID,
	}
}

func (s *ServiceSuite) TestAuthorize() {
	ctx := s.ctx()

	s.Run("issues a code bound to the request", func() {
		result, err := s.svc.Authorize(ctx, s.authorizeRequest())
		s.Require().NoError(err)
		s.True(strings.HasPrefix(result.Code, "authz_"))
		s.GreaterOrEqual(len(strings.TrimPrefix(result.Code, "authz_")), 32)

		second, err := s.svc.Authorize(ctx, s.authorizeRequest())
		s.Require().NoError(err)
		s.NotEqual(result.Code, second.Code)

		redirect, err := url.Parse(result.RedirectURI)
		s.Require().NoError(err)
		s.Equal("localhost:5003", redirect.Host)
		s.Equal(result.Code, redirect.Query().Get("code"))
		s.Equal("abc123", redirect.Query().Get("state"))
	})

	s.Run("unknown client is rejected", func() {
		req := s.authorizeRequest()
		req.ClientID = "evil-client"
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unregistered redirect_uri is rejected before any redirect", func() {
		req := s.authorizeRequest()
		req.RedirectURI = "http://localhost:5003/auth/callback/" // trailing slash
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("missing code_challenge is rejected", func() {
		req := s.authorizeRequest()
		req.CodeChallenge = ""
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("plain challenge method is rejected", func() {
		req := s.authorizeRequest()
		req.CodeChallengeMethod = "plain"
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("no session subject is unauthorized", func() {
		req := s.authorizeRequest()
		req.Subject = ""
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("session subject with no backing user is an invariant violation", func() {
		req := s.authorizeRequest()
		req.Subject = "99999999-9999-9999-9999-999999999999"
		_, err := s.svc.Authorize(ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("scopes outside the registration are silently dropped", func() {
		req := s.authorizeRequest()
		req.Scopes = []string{"openid", "profile", "email", "admin:everything"}
		result, err := s.svc.Authorize(ctx, req)
		s.Require().NoError(err)

		record, err := s.codes.Consume(ctx, result.Code, testRedirectURI, testVerifier, s.now)
		s.Require().NoError(err)
		s.Equal([]string{"openid", "profile", "email"}, record.Scopes)
	})
}
