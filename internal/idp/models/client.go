package models

import (
	"slices"
	"time"

	dErrors "cohort/pkg/domain-errors"
)

// GrantType enumerates OAuth 2.0 grant types this IdP understands.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
)

// Client is an OAuth 2.0 client registration.
//
// Invariants:
//   - ClientID is non-empty
//   - RedirectURIs is non-empty; matching is exact-string only
//   - AllowedGrants and AllowedScopes are non-empty
//   - confidential clients carry a bcrypt secret hash, never the secret
type Client struct {
	ClientID               string
	ClientSecretHash       string
	Name                   string
	RedirectURIs           []string
	PostLogoutRedirectURIs []string
	AllowedGrants          []GrantType
	AllowedScopes          []string
	Active                 bool
	CreatedAt              time.Time
}

func NewClient(
	clientID string,
	clientSecretHash string,
	name string,
	redirectURIs []string,
	postLogoutRedirectURIs []string,
	now time.Time,
) (*Client, error) {
	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client_id cannot be empty")
	}
	if len(redirectURIs) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "redirect_uris cannot be empty")
	}
	return &Client{
		ClientID:               clientID,
		ClientSecretHash:       clientSecretHash,
		Name:                   name,
		RedirectURIs:           redirectURIs,
		PostLogoutRedirectURIs: postLogoutRedirectURIs,
		AllowedGrants:          []GrantType{GrantAuthorizationCode},
		AllowedScopes:          []string{"openid", "profile", "email"},
		Active:                 true,
		CreatedAt:              now,
	}, nil
}

// AllowsRedirectURI checks the registration for an exact match. No prefix or
// normalization: a trailing slash or scheme difference is a mismatch.
func (c *Client) AllowsRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// AllowsPostLogoutRedirectURI checks the post-logout registration, exact
// match only.
func (c *Client) AllowsPostLogoutRedirectURI(uri string) bool {
	return slices.Contains(c.PostLogoutRedirectURIs, uri)
}

// AllowsGrant checks whether the client may use the given grant type.
func (c *Client) AllowsGrant(grant GrantType) bool {
	return slices.Contains(c.AllowedGrants, grant)
}

// FilterScopes intersects the requested scopes with the registration.
// Unknown scopes are silently dropped, never an error.
func (c *Client) FilterScopes(requested []string) []string {
	var granted []string
	for _, s := range requested {
		if slices.Contains(c.AllowedScopes, s) && !slices.Contains(granted, s) {
			granted = append(granted, s)
		}
	}
	return granted
}
