package admins

import (
	"context"
	"testing"

	"github.com/drukhealth/ctgadmin/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_UniqueEmail(t *testing.T) {
	repo := NewRepository(testutils.SetupTestDB(t, &Admin{}))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Admin{Email: "a@drukhealth.bt", PasswordHash: "h", Role: RoleAdmin}))

	err := repo.Create(ctx, &Admin{Email: "a@drukhealth.bt", PasswordHash: "h", Role: RoleAdmin})

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRepository_CountByRole(t *testing.T) {
	repo := NewRepository(testutils.SetupTestDB(t, &Admin{}))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Admin{Email: "a@drukhealth.bt", PasswordHash: "h", Role: RoleAdmin}))
	require.NoError(t, repo.Create(ctx, &Admin{Email: "b@drukhealth.bt", PasswordHash: "h", Role: RoleSuperAdmin}))
	require.NoError(t, repo.Create(ctx, &Admin{Email: "c@drukhealth.bt", PasswordHash: "h", Role: RoleSuperAdmin}))

	count, err := repo.CountByRole(ctx, RoleSuperAdmin)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_MissingRows(t *testing.T) {
	repo := NewRepository(testutils.SetupTestDB(t, &Admin{}))
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "none@drukhealth.bt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 1), ErrNotFound)
}
