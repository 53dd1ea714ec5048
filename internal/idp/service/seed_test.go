package service

import (
	"cohort/internal/platform/config"
)

func (s *ServiceSuite) TestSeed() {
	cfg := config.IdP{
		ClientID:            "seeded-client",
		ClientSecret:        "seeded-secret",
		ClientRedirectURI:   "http://localhost:5003/auth/callback",
		ClientPostLogoutURI: "http://localhost:5003/",
		SeedAdmin: config.SeedUser{
			Email: "seed-admin@example.com", Password: "Pass123$",
			FirstName: "Admin", LastName: "User", EmpID: "A001",
			Oid: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		},
		SeedHost: config.SeedUser{
			Email: "seed-host@example.com", Password: "Pass123$",
			FirstName: "Host", LastName: "User", EmpID: "H001",
			Oid: "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		},
	}
	ctx := s.ctx()

	s.Run("creates users with pinned ids and the client", func() {
		s.Require().NoError(s.svc.Seed(ctx, cfg))

		admin, err := s.users.FindByID(ctx, cfg.SeedAdmin.Oid)
		s.Require().NoError(err)
		s.Equal("seed-admin@example.com", admin.Email)

		client, err := s.clients.FindByClientID(ctx, "seeded-client")
		s.Require().NoError(err)
		s.True(client.AllowsRedirectURI("http://localhost:5003/auth/callback"))
	})

	s.Run("is idempotent and preserves the pinned id", func() {
		s.Require().NoError(s.svc.Seed(ctx, cfg))
		s.Require().NoError(s.svc.Seed(ctx, cfg))

		host, err := s.users.FindByIdentifier(ctx, "seed-host@example.com")
		s.Require().NoError(err)
		s.Equal(cfg.SeedHost.Oid, host.ID)
	})
}
