package service

import (
	"context"
	"errors"

	"cohort/internal/idp/models"
	"cohort/internal/platform/config"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
	"cohort/pkg/requestcontext"
	"cohort/pkg/secrets"
)

// Seed reconciles the dev users and the single registered client at startup.
// It is idempotent: existing users keep their pinned ids and only get their
// mutable fields refreshed, so app-side role grants keyed by subject survive
// restarts.
func (s *Service) Seed(ctx context.Context, cfg config.IdP) error {
	for _, seed := range []config.SeedUser{cfg.SeedAdmin, cfg.SeedHost} {
		if err := s.seedUser(ctx, seed); err != nil {
			return err
		}
	}
	return s.seedClient(ctx, cfg)
}

func (s *Service) seedUser(ctx context.Context, seed config.SeedUser) error {
	now := requestcontext.Now(ctx)
	hash, err := secrets.Hash(seed.Password)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash seed password")
	}

	existing, err := s.users.FindByID(ctx, seed.Oid)
	switch {
	case err == nil:
		existing.Email = models.NormalizeIdentifier(seed.Email)
		existing.PasswordHash = hash
		existing.FirstName = seed.FirstName
		existing.LastName = seed.LastName
		existing.EmpID = seed.EmpID
		existing.Active = true
		existing.UpdatedAt = now
		return s.users.Save(ctx, existing)
	case errors.Is(err, sentinel.ErrNotFound):
		user, err := models.NewUser(seed.Oid, models.NormalizeIdentifier(seed.Email), "", hash, now)
		if err != nil {
			return err
		}
		user.FirstName = seed.FirstName
		user.LastName = seed.LastName
		user.EmpID = seed.EmpID
		return s.users.Save(ctx, user)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up seed user")
	}
}

func (s *Service) seedClient(ctx context.Context, cfg config.IdP) error {
	now := requestcontext.Now(ctx)
	hash, err := secrets.Hash(cfg.ClientSecret)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash client secret")
	}
	client, err := models.NewClient(
		cfg.ClientID,
		hash,
		"Cohort Web",
		[]string{cfg.ClientRedirectURI},
		[]string{cfg.ClientPostLogoutURI},
		now,
	)
	if err != nil {
		return err
	}
	return s.clients.Save(ctx, client)
}
