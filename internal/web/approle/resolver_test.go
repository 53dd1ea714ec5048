package approle_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cohort/internal/identity"
	"cohort/internal/web/approle"
	"cohort/internal/web/approle/mocks"
	dErrors "cohort/pkg/domain-errors"
	"cohort/pkg/platform/sentinel"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("existing grant", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "sub-1").
			Return(&approle.Grant{Subject: "sub-1", Role: identity.RoleHost}, nil)

		r := approle.NewResolver(store, slog.Default())
		role, err := r.Resolve(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleHost, role)
	})

	t.Run("inactive grant confers no role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "sub-1").
			Return(&approle.Grant{Subject: "sub-1", Role: identity.RoleAdmin, Active: false}, nil)

		r := approle.NewResolver(store, slog.Default())
		role, err := r.Resolve(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleNone, role)
	})

	t.Run("no row resolves to no role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "sub-1").Return(nil, sentinel.ErrNotFound)

		r := approle.NewResolver(store, slog.Default())
		role, err := r.Resolve(ctx, "sub-1")
		require.NoError(t, err, "a missing grant is a valid unprivileged session")
		assert.Equal(t, identity.RoleNone, role)
	})

	t.Run("store failure surfaces as internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Get(gomock.Any(), "sub-1").Return(nil, errors.New("connection refused"))

		r := approle.NewResolver(store, slog.Default())
		role, err := r.Resolve(ctx, "sub-1")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		assert.Equal(t, identity.RoleNone, role)
	})

	t.Run("empty subject", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := approle.NewResolver(mocks.NewMockStore(ctrl), slog.Default())
		_, err := r.Resolve(ctx, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := approle.NewResolver(approle.NewInMemoryStore(), slog.Default())

	require.NoError(t, r.Grant(ctx, "sub-1", identity.RoleAdmin, now))
	role, err := r.Resolve(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, role)

	t.Run("regrant replaces", func(t *testing.T) {
		require.NoError(t, r.Grant(ctx, "sub-1", identity.RoleHost, now))
		role, err := r.Resolve(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleHost, role)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		err := r.Grant(ctx, "sub-1", identity.AppRole("superuser"), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty subject rejected", func(t *testing.T) {
		err := r.Grant(ctx, "", identity.RoleAdmin, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := approle.NewResolver(approle.NewInMemoryStore(), slog.Default())

	require.NoError(t, r.Grant(ctx, "sub-1", identity.RoleHost, now))
	require.NoError(t, r.Revoke(ctx, "sub-1"))

	role, err := r.Resolve(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleNone, role)

	t.Run("revoking a missing grant is a no-op", func(t *testing.T) {
		assert.NoError(t, r.Revoke(ctx, "never-granted"))
	})
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := approle.NewResolver(approle.NewInMemoryStore(), slog.Default())

	require.NoError(t, r.Grant(ctx, "sub-1", identity.RoleAdmin, now))
	require.NoError(t, r.Deactivate(ctx, "sub-1"))

	role, err := r.Resolve(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleNone, role)

	t.Run("row survives for the admin surface", func(t *testing.T) {
		grants, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, grants, 1)
		assert.False(t, grants[0].Active)
		assert.Equal(t, identity.RoleAdmin, grants[0].Role)
	})

	t.Run("regrant reactivates", func(t *testing.T) {
		require.NoError(t, r.Grant(ctx, "sub-1", identity.RoleAdmin, now))
		role, err := r.Resolve(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, identity.RoleAdmin, role)
	})

	t.Run("deactivating a missing grant is a no-op", func(t *testing.T) {
		assert.NoError(t, r.Deactivate(ctx, "never-granted"))
	})
}

func TestList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r := approle.NewResolver(approle.NewInMemoryStore(), slog.Default())

	require.NoError(t, r.Grant(ctx, "sub-b", identity.RoleHost, now))
	require.NoError(t, r.Grant(ctx, "sub-a", identity.RoleAdmin, now))

	grants, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "sub-a", grants[0].Subject)
	assert.Equal(t, "sub-b", grants[1].Subject)
}
