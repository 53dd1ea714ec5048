package approle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cohort/internal/identity"
	"cohort/pkg/platform/sentinel"
)

// PostgresStore persists role grants in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the grants table when it does not exist. Dev
// convenience; production deployments manage the schema with migrations.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS app_role_grants (
			subject    TEXT PRIMARY KEY,
			role       TEXT NOT NULL,
			is_active  BOOLEAN NOT NULL DEFAULT TRUE,
			granted_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure app_role_grants schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subject string) (*Grant, error) {
	grant := &Grant{Subject: subject}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT role, is_active, granted_at FROM app_role_grants WHERE subject = $1`,
		subject,
	).Scan(&role, &grant.Active, &grant.GrantedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get role grant: %w", err)
	}
	grant.Role = identity.AppRole(role)
	return grant, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, grant *Grant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_role_grants (subject, role, is_active, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject) DO UPDATE
		SET role = EXCLUDED.role, is_active = EXCLUDED.is_active, granted_at = EXCLUDED.granted_at`,
		grant.Subject, string(grant.Role), grant.Active, grant.GrantedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert role grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, subject string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM app_role_grants WHERE subject = $1`, subject)
	if err != nil {
		return fmt.Errorf("delete role grant: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, role, is_active, granted_at FROM app_role_grants ORDER BY subject`)
	if err != nil {
		return nil, fmt.Errorf("list role grants: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		grant := &Grant{}
		var role string
		if err := rows.Scan(&grant.Subject, &role, &grant.Active, &grant.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan role grant: %w", err)
		}
		grant.Role = identity.AppRole(role)
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role grants: %w", err)
	}
	return grants, nil
}
