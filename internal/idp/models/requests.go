package models

import (
	"strings"

	dErrors "cohort/pkg/domain-errors"
)

// AuthorizeRequest carries the parsed /connect/authorize query parameters
// plus the subject resolved from the local IdP session.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scopes              []string
	State               string
	Nonce               string
	CodeChallenge       string
	CodeChallengeMethod string
	// Subject is the locally authenticated user. Empty means the browser
	// must first be sent to the login page; that is the normal flow, not an
	// error.
	Subject string
}

func (r *AuthorizeRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.RedirectURI = strings.TrimSpace(r.RedirectURI)
	r.ResponseType = strings.TrimSpace(r.ResponseType)
}

// Validate enforces protocol-level requirements. Failures map to standard
// OAuth error codes at the handler.
func (r *AuthorizeRequest) Validate() error {
	if r.ClientID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "client_id is required")
	}
	if r.RedirectURI == "" {
		return dErrors.New(dErrors.CodeBadRequest, "redirect_uri is required")
	}
	if r.ResponseType != "code" {
		return dErrors.New(dErrors.CodeBadRequest, "response_type must be code")
	}
	if r.CodeChallenge == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code_challenge is required")
	}
	if r.CodeChallengeMethod != CodeChallengeMethodS256 {
		return dErrors.New(dErrors.CodeBadRequest, "code_challenge_method must be S256")
	}
	return nil
}

// AuthorizeResult is the successful outcome: a redirect back to the client
// carrying the one-time code.
type AuthorizeResult struct {
	Code        string
	RedirectURI string
	State       string
}

// TokenRequest carries the parsed /connect/token form body.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	ClientID     string
	ClientSecret string
}

func (r *TokenRequest) Normalize() {
	r.GrantType = strings.TrimSpace(r.GrantType)
	r.Code = strings.TrimSpace(r.Code)
	r.ClientID = strings.TrimSpace(r.ClientID)
}

func (r *TokenRequest) Validate() error {
	if r.GrantType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "grant_type is required")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code is required")
	}
	if r.RedirectURI == "" {
		return dErrors.New(dErrors.CodeBadRequest, "redirect_uri is required")
	}
	if r.CodeVerifier == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code_verifier is required")
	}
	if r.ClientID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "client credentials are required")
	}
	return nil
}

// TokenResult is the standard OIDC token response.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// LogoutRequest carries the parsed /connect/logout parameters.
type LogoutRequest struct {
	ClientID              string
	PostLogoutRedirectURI string
	// Subject of the IdP session being terminated, "" when anonymous.
	Subject string
}
