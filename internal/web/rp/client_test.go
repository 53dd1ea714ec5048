package rp

import (
	"log/slog"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name   string
		claims IdentityClaims
		want   string
	}{
		{"name wins", IdentityClaims{Name: "Jo Smith", PreferredUsername: "jo", Subject: "sub-1"}, "Jo Smith"},
		{"preferred_username next", IdentityClaims{PreferredUsername: "jo", Subject: "sub-1"}, "jo"},
		{"subject last", IdentityClaims{Subject: "sub-1"}, "sub-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.claims.DisplayName())
		})
	}
}

func TestEndSessionURL(t *testing.T) {
	c := NewClient(Config{
		Authority: "http://localhost:5001",
		ClientID:  "cohort-web",
	}, slog.Default())

	raw := c.EndSessionURL("http://localhost:5003/?from=logout")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/connect/logout", parsed.Path)
	assert.Equal(t, "cohort-web", parsed.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:5003/?from=logout", parsed.Query().Get("post_logout_redirect_uri"))
}

func TestNewClientDefaultsScopes(t *testing.T) {
	c := NewClient(Config{Authority: "http://localhost:5001"}, slog.Default())
	assert.Equal(t, []string{"openid", "profile", "email"}, c.cfg.Scopes)
}
