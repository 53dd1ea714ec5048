package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cohort/internal/identity"
)

func oidcPrincipal(role identity.AppRole) *identity.Principal {
	return &identity.Principal{
		Subject:         "sub-oidc",
		TenantID:        "tenant-1",
		AuthSource:      identity.SourceOIDC,
		ParticipantMode: identity.ParticipantOIDC,
		AppRole:         role,
	}
}

func anonymousPrincipal() *identity.Principal {
	return &identity.Principal{
		Subject:         "sub-anon",
		AuthSource:      identity.SourceAnonymous,
		ParticipantMode: identity.ParticipantAnonymous,
		AppRole:         identity.RoleParticipant,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		policy    Name
		principal *identity.Principal
		want      bool
	}{
		{"admin allowed by AdminOnly", AdminOnly, oidcPrincipal(identity.RoleAdmin), true},
		{"host denied by AdminOnly", AdminOnly, oidcPrincipal(identity.RoleHost), false},
		{"roleless oidc denied by AdminOnly", AdminOnly, oidcPrincipal(identity.RoleNone), false},
		{"anonymous denied by AdminOnly", AdminOnly, anonymousPrincipal(), false},
		{"unauthenticated denied by AdminOnly", AdminOnly, nil, false},

		{"host allowed by HostOnly", HostOnly, oidcPrincipal(identity.RoleHost), true},
		{"admin denied by HostOnly", HostOnly, oidcPrincipal(identity.RoleAdmin), false},
		{"anonymous denied by HostOnly", HostOnly, anonymousPrincipal(), false},

		{"anonymous allowed by ParticipantOnly", ParticipantOnly, anonymousPrincipal(), true},
		{"oidc participant allowed by ParticipantOnly", ParticipantOnly, oidcPrincipal(identity.RoleParticipant), true},
		{"host denied by ParticipantOnly", ParticipantOnly, oidcPrincipal(identity.RoleHost), false},

		{"anonymous allowed by ParticipantAnonymousOrOidc", ParticipantAnonymousOrOidc, anonymousPrincipal(), true},
		{"oidc participant allowed by ParticipantAnonymousOrOidc", ParticipantAnonymousOrOidc, oidcPrincipal(identity.RoleParticipant), true},
		{"roleless oidc allowed by ParticipantAnonymousOrOidc", ParticipantAnonymousOrOidc, oidcPrincipal(identity.RoleNone), true},
		{"unauthenticated denied by ParticipantAnonymousOrOidc", ParticipantAnonymousOrOidc, nil, false},

		{"unknown policy denies", Name("Everything"), oidcPrincipal(identity.RoleAdmin), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.policy, tc.principal))
		})
	}
}

func TestIsAPIPath(t *testing.T) {
	assert.True(t, IsAPIPath("/api"))
	assert.True(t, IsAPIPath("/api/me"))
	assert.False(t, IsAPIPath("/apiary"))
	assert.False(t, IsAPIPath("/admin"))
	assert.False(t, IsAPIPath("/"))
}

func TestDecide(t *testing.T) {
	t.Run("allowed passes through", func(t *testing.T) {
		d := Decide("/admin", "/admin", true, true)
		assert.True(t, d.Allow)
		assert.Zero(t, d.Status)
		assert.Empty(t, d.RedirectURL)
	})

	t.Run("unauthenticated api gets 401", func(t *testing.T) {
		d := Decide("/api/host/quizzes", "/api/host/quizzes", false, false)
		assert.Equal(t, 401, d.Status)
	})

	t.Run("unprivileged api gets 403", func(t *testing.T) {
		d := Decide("/api/host/quizzes", "/api/host/quizzes", true, false)
		assert.Equal(t, 403, d.Status)
	})

	t.Run("unauthenticated browser redirects to login with return target", func(t *testing.T) {
		d := Decide("/host", "/host?tab=quizzes", false, false)
		assert.Equal(t, "/auth/login?returnUrl=%2Fhost%3Ftab%3Dquizzes", d.RedirectURL)
	})

	t.Run("unprivileged browser lands on not-authorized, never a login loop", func(t *testing.T) {
		d := Decide("/host", "/host", true, false)
		assert.Equal(t, "/access/not-authorized", d.RedirectURL)
	})
}
