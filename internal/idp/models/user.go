package models

import (
	"strings"
	"time"

	dErrors "cohort/pkg/domain-errors"
)

// User is a staff account held by the IdP. The ID doubles as the OIDC
// subject and the Entra-style object id (oid), so it must stay stable for
// the life of the account.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	// EmpID is an opaque employee identifier carried as a custom claim.
	EmpID     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser validates and constructs a user.
func NewUser(id, email, username, passwordHash string, now time.Time) (*User, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user password hash cannot be empty")
	}
	if username == "" {
		username = email
	}
	return &User{
		ID:           id,
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeIdentifier lowercases a login identifier. Identifier uniqueness is
// case-insensitive per tenant.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// PreferredUsername picks the claim value per the fallback chain:
// username, then email, then the subject itself.
func (u *User) PreferredUsername() string {
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
