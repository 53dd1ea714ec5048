package service

import (
	"context"

	"cohort/internal/idp/models"
	dErrors "cohort/pkg/domain-errors"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/secrets"
	"cohort/pkg/requestcontext"
)

// errInvalidCredentials is the single generic login failure. Whether the
// identifier was unknown, the password wrong, or the account locked, the
// caller sees the same error: anything more specific is a user enumeration
// oracle.
func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Login verifies a local credential pair and returns the authenticated user.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	identifier = models.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, errInvalidCredentials()
	}
	now := requestcontext.Now(ctx)

	if s.cfg.LockoutEnabled {
		record, err := s.lockouts.Get(ctx, identifier)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check lockout state")
		}
		if record != nil && record.Locked(now) {
			s.logAudit(ctx, audit.CategorySecurity, audit.EventLoginFailed, "",
				"reason", "account_locked")
			if s.metrics != nil {
				s.metrics.ObserveLogin("locked")
			}
			return nil, errInvalidCredentials()
		}
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, s.failLogin(ctx, identifier, "unknown_identifier")
	}
	if !user.Active {
		return nil, s.failLogin(ctx, identifier, "inactive_user")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		return nil, s.failLogin(ctx, identifier, "wrong_password")
	}

	if s.cfg.LockoutEnabled {
		if err := s.lockouts.Clear(ctx, identifier); err != nil {
			s.logger.ErrorContext(ctx, "failed to clear lockout record", "error", err)
		}
	}

	s.logAudit(ctx, audit.CategoryOperations, audit.EventLoginSucceeded, user.ID)
	if s.metrics != nil {
		s.metrics.ObserveLogin("success")
	}
	return user, nil
}

// failLogin records the failure for lockout accounting and returns the
// generic credentials error. The reason reaches the audit log only.
func (s *Service) failLogin(ctx context.Context, identifier, reason string) error {
	now := requestcontext.Now(ctx)
	if s.cfg.LockoutEnabled {
		record, err := s.lockouts.RecordFailure(ctx, identifier, now, s.cfg.LockoutThreshold, s.cfg.LockoutWindow)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to record login failure", "error", err)
		} else if record.Locked(now) && record.FailureCount == s.cfg.LockoutThreshold {
			s.logAudit(ctx, audit.CategorySecurity, audit.EventAccountLocked, "")
			if s.metrics != nil {
				s.metrics.IncLockouts()
			}
		}
	}
	s.logAudit(ctx, audit.CategorySecurity, audit.EventLoginFailed, "", "reason", reason)
	if s.metrics != nil {
		s.metrics.ObserveLogin("failure")
	}
	return errInvalidCredentials()
}
