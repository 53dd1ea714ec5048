// Package participant implements quiz participant sign-in. Anonymous
// participants get a fresh generated subject per session; their submitted
// name stays in a private claim and only the generated pseudonym is ever
// shown to other participants.
package participant

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cohort/internal/identity"
	dErrors "cohort/pkg/domain-errors"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/requestcontext"
)

const maxNameLength = 100

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncAnonymousSignIns()
}

type Service struct {
	audit   AuditPublisher
	metrics Metrics
	logger  *slog.Logger
}

func NewService(auditPub AuditPublisher, metrics Metrics, logger *slog.Logger) *Service {
	return &Service{audit: auditPub, metrics: metrics, logger: logger}
}

// SignInAnonymous creates an anonymous participant principal. Every call
// yields a new subject: the same person signing in twice is two participants,
// with no linkage between them.
func (s *Service) SignInAnonymous(ctx context.Context, realName string) (*identity.Principal, error) {
	realName = strings.TrimSpace(realName)
	if realName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if len(realName) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is too long")
	}

	subject := uuid.NewString()
	pseudonym, err := generatePseudonym()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate pseudonym")
	}

	principal, err := identity.NewAnonymousPrincipal(subject, realName, pseudonym)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		event := audit.Event{
			Category:  audit.CategoryOperations,
			Subject:   subject,
			Action:    string(audit.EventAnonymousSignIn),
			RequestID: requestcontext.RequestID(ctx),
			ClientIP:  requestcontext.ClientIP(ctx),
		}
		if err := s.audit.Emit(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.IncAnonymousSignIns()
	}
	s.logger.InfoContext(ctx, "anonymous participant signed in",
		"subject", subject, "pseudonym", pseudonym)
	return principal, nil
}

func generatePseudonym() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "User-" + hex.EncodeToString(buf), nil
}
