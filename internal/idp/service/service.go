// Package service implements the IdP's credential check, authorization code
// state machine, and token issuance. Transport stays in the handler; storage
// stays behind the store interfaces.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,ClientStore,AuthCodeStore,LockoutStore,AuditPublisher,Metrics

import (
	"context"
	"log/slog"
	"time"

	"cohort/internal/idp/models"
	"cohort/internal/idp/store/lockout"
	"cohort/internal/idp/token"
	audit "cohort/pkg/platform/audit"
	"cohort/pkg/requestcontext"
)

type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type ClientStore interface {
	Save(ctx context.Context, client *models.Client) error
	FindByClientID(ctx context.Context, clientID string) (*models.Client, error)
}

type AuthCodeStore interface {
	Create(ctx context.Context, record *models.AuthorizationCodeRecord) error
	Consume(ctx context.Context, code, redirectURI, codeVerifier string, now time.Time) (*models.AuthorizationCodeRecord, error)
	DeleteByUserID(ctx context.Context, userID string) (int, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type LockoutStore interface {
	Get(ctx context.Context, identifier string) (*lockout.Record, error)
	RecordFailure(ctx context.Context, identifier string, now time.Time, threshold int, window time.Duration) (*lockout.Record, error)
	Clear(ctx context.Context, identifier string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	ObserveLogin(result string)
	IncAuthCodesIssued()
	ObserveTokenExchange(result string)
	IncLockouts()
}

// Config carries the steady-state policy knobs for the service.
type Config struct {
	TenantID    string
	AuthCodeTTL time.Duration
	TokenTTL    time.Duration

	LockoutEnabled   bool
	LockoutThreshold int
	LockoutWindow    time.Duration

	RevokeCodesOnLogout bool
}

type Service struct {
	cfg      Config
	users    UserStore
	clients  ClientStore
	codes    AuthCodeStore
	lockouts LockoutStore
	signer   *token.Signer
	audit    AuditPublisher
	metrics  Metrics
	logger   *slog.Logger
}

func NewService(
	cfg Config,
	users UserStore,
	clients ClientStore,
	codes AuthCodeStore,
	lockouts LockoutStore,
	signer *token.Signer,
	auditPub AuditPublisher,
	metrics Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		users:    users,
		clients:  clients,
		codes:    codes,
		lockouts: lockouts,
		signer:   signer,
		audit:    auditPub,
		metrics:  metrics,
		logger:   logger,
	}
}

// Signer exposes the token signer for the discovery/JWKS handler.
func (s *Service) Signer() *token.Signer {
	return s.signer
}

func (s *Service) logAudit(ctx context.Context, category audit.EventCategory, action audit.AuditEvent, subject string, attrs ...string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:  category,
		Subject:   subject,
		Action:    string(action),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		switch attrs[i] {
		case "outcome":
			event.Outcome = attrs[i+1]
		case "reason":
			event.Reason = attrs[i+1]
		case "client_id":
			event.ClientID = attrs[i+1]
		}
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err, "action", action)
	}
}
