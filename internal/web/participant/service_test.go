package participant

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort/internal/identity"
	dErrors "cohort/pkg/domain-errors"
)

func TestSignInAnonymous(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, nil, slog.Default())

	p, err := svc.SignInAnonymous(ctx, "Jo Smith")
	require.NoError(t, err)

	assert.NoError(t, uuid.Validate(p.Subject))
	assert.Equal(t, identity.SourceAnonymous, p.AuthSource)
	assert.Equal(t, identity.RoleParticipant, p.AppRole)
	assert.True(t, strings.HasPrefix(p.DisplayName, "User-"))
	assert.Len(t, p.DisplayName, len("User-")+10)
	assert.Equal(t, "Jo Smith", p.Claim(identity.ClaimRealName))
	assert.Equal(t, p.DisplayName, p.Claim(identity.ClaimPseudonym))
}

func TestSignInAnonymousEverySessionIsANewParticipant(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, nil, slog.Default())

	first, err := svc.SignInAnonymous(ctx, "Jo Smith")
	require.NoError(t, err)
	second, err := svc.SignInAnonymous(ctx, "Jo Smith")
	require.NoError(t, err)

	assert.NotEqual(t, first.Subject, second.Subject)
	assert.NotEqual(t, first.DisplayName, second.DisplayName)
}

func TestSignInAnonymousValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, nil, slog.Default())

	t.Run("empty name", func(t *testing.T) {
		_, err := svc.SignInAnonymous(ctx, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("whitespace only", func(t *testing.T) {
		_, err := svc.SignInAnonymous(ctx, "   ")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("name too long", func(t *testing.T) {
		_, err := svc.SignInAnonymous(ctx, strings.Repeat("a", maxNameLength+1))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("name at the limit", func(t *testing.T) {
		_, err := svc.SignInAnonymous(ctx, strings.Repeat("a", maxNameLength))
		assert.NoError(t, err)
	})

	t.Run("surrounding whitespace trimmed", func(t *testing.T) {
		p, err := svc.SignInAnonymous(ctx, "  Jo Smith  ")
		require.NoError(t, err)
		assert.Equal(t, "Jo Smith", p.Claim(identity.ClaimRealName))
	})
}
