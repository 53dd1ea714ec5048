// Package rp implements the web app's OIDC relying-party side: building the
// authorization redirect, redeeming the callback code, and verifying the
// returned identity token against the IdP's published keys.
package rp

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	dErrors "cohort/pkg/domain-errors"
)

// Config carries the relying-party registration.
type Config struct {
	// Authority is the IdP issuer URL used for discovery.
	Authority    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// IdentityClaims is the subset of ID token claims the web app consumes.
type IdentityClaims struct {
	Subject           string `json:"sub"`
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	EmpID             string `json:"empid"`
	Nonce             string `json:"nonce"`
}

// AuthRequest is the state a sign-in redirect leaves behind for the callback.
type AuthRequest struct {
	URL      string
	State    string
	Nonce    string
	Verifier string
}

// Client is the OIDC relying party. Discovery is lazy so the web app can
// start before the IdP does; the first sign-in attempt resolves the provider.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	provider *oidc.Provider
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) ensureProvider(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil {
		return nil
	}
	provider, err := oidc.NewProvider(ctx, c.cfg.Authority)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "oidc discovery failed")
	}
	c.provider = provider
	c.oauth = &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       c.cfg.Scopes,
	}
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.cfg.ClientID})
	c.logger.InfoContext(ctx, "oidc provider resolved", "authority", c.cfg.Authority)
	return nil
}

// BeginAuth builds the authorization redirect with fresh state, nonce, and
// PKCE verifier. The caller persists State, Nonce, and Verifier in one-shot
// cookies and sends the browser to URL.
func (c *Client) BeginAuth(ctx context.Context) (*AuthRequest, error) {
	if err := c.ensureProvider(ctx); err != nil {
		return nil, err
	}
	state := oauth2.GenerateVerifier()
	nonce := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	url := c.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	)
	return &AuthRequest{URL: url, State: state, Nonce: nonce, Verifier: verifier}, nil
}

// CompleteAuth redeems the callback code and returns the verified identity
// claims. The caller has already matched the state parameter against its
// cookie; nonce verification happens here against the ID token.
func (c *Client) CompleteAuth(ctx context.Context, code, codeVerifier, nonce string) (*IdentityClaims, error) {
	if err := c.ensureProvider(ctx); err != nil {
		return nil, err
	}
	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "code exchange failed")
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token response is missing id_token")
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "id token verification failed")
	}

	var claims IdentityClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "failed to parse id token claims")
	}
	if subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "nonce mismatch")
	}
	if claims.Subject == "" {
		claims.Subject = idToken.Subject
	}
	return &claims, nil
}

// EndSessionURL builds the IdP logout URL carrying the post-logout redirect.
func (c *Client) EndSessionURL(postLogoutRedirect string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("post_logout_redirect_uri", postLogoutRedirect)
	return c.cfg.Authority + "/connect/logout?" + q.Encode()
}

// DisplayName picks the label shown for an OIDC identity: name first, then
// preferred_username, then the subject.
func (claims *IdentityClaims) DisplayName() string {
	if claims.Name != "" {
		return claims.Name
	}
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return claims.Subject
}
