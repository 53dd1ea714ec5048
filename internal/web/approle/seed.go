package approle

import (
	"context"

	"cohort/internal/identity"
	"cohort/pkg/requestcontext"
)

// SeedGrants reconciles the dev role grants at startup. Idempotent: existing
// grants for the seed subjects are overwritten, nothing else is touched.
func SeedGrants(ctx context.Context, resolver *Resolver, adminSubject, hostSubject string) error {
	now := requestcontext.Now(ctx)
	if adminSubject != "" {
		if err := resolver.Grant(ctx, adminSubject, identity.RoleAdmin, now); err != nil {
			return err
		}
	}
	if hostSubject != "" {
		if err := resolver.Grant(ctx, hostSubject, identity.RoleHost, now); err != nil {
			return err
		}
	}
	return nil
}
