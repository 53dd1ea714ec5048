// Package approle resolves app-local permission grants. Admin and host are
// granted only through this table; IdP claims never carry an app role, so a
// valid OIDC identity with no row here signs in with no role at all.
package approle

//go:generate mockgen -source=resolver.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cohort/internal/identity"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
)

// Grant is one subject-to-role assignment. An inactive grant stays in the
// table but confers no role.
type Grant struct {
	Subject   string
	Role      identity.AppRole
	Active    bool
	GrantedAt time.Time
}

// Store persists role grants keyed by OIDC subject.
type Store interface {
	Get(ctx context.Context, subject string) (*Grant, error)
	Upsert(ctx context.Context, grant *Grant) error
	Delete(ctx context.Context, subject string) error
	List(ctx context.Context) ([]*Grant, error)
}

// Resolver looks up the app role for a subject.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the subject's app role, or RoleNone when the table has no
// row. No row is a successful resolution, not an error: the session proceeds
// unprivileged.
func (r *Resolver) Resolve(ctx context.Context, subject string) (identity.AppRole, error) {
	if subject == "" {
		return identity.RoleNone, dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
	}
	grant, err := r.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return identity.RoleNone, nil
		}
		return identity.RoleNone, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve app role")
	}
	if !grant.Active {
		return identity.RoleNone, nil
	}
	return grant.Role, nil
}

// Grant assigns a role to a subject, replacing any existing grant.
func (r *Resolver) Grant(ctx context.Context, subject string, role identity.AppRole, now time.Time) error {
	if subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
	}
	switch role {
	case identity.RoleAdmin, identity.RoleHost, identity.RoleParticipant:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unknown app role")
	}
	if err := r.store.Upsert(ctx, &Grant{Subject: subject, Role: role, Active: true, GrantedAt: now}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store role grant")
	}
	r.logger.InfoContext(ctx, "app role granted", "subject", subject, "role", role)
	return nil
}

// Deactivate disables a subject's grant without removing the row, so the
// assignment history survives. Deactivating a missing grant is a no-op.
func (r *Resolver) Deactivate(ctx context.Context, subject string) error {
	grant, err := r.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load role grant")
	}
	grant.Active = false
	if err := r.store.Upsert(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate role grant")
	}
	r.logger.InfoContext(ctx, "app role deactivated", "subject", subject, "role", grant.Role)
	return nil
}

// Revoke removes a subject's grant. Revoking a missing grant is a no-op.
func (r *Resolver) Revoke(ctx context.Context, subject string) error {
	if err := r.store.Delete(ctx, subject); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role grant")
	}
	return nil
}

// List returns all grants, for the admin surface.
func (r *Resolver) List(ctx context.Context) ([]*Grant, error) {
	grants, err := r.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list role grants")
	}
	return grants, nil
}
