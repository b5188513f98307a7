package reference_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonlinemenu/refadmin/internal/adapter/postgres/reference"
	"github.com/wonlinemenu/refadmin/internal/adapter/postgres/testhelper"
	"github.com/wonlinemenu/refadmin/internal/domain"
)

// These tests assert on the whole table, so they run sequentially.

func newRepo(t *testing.T) (*reference.Repo, *pgxpool.Pool) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	testhelper.TruncateReferences(t, pool)
	return reference.New(pool), pool
}

func values(refs []domain.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Value
	}
	return out
}

func TestRepo_CreateAndList(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, v := range []string{"a.com", "b.com", "c.com"} {
		at := base.Add(time.Duration(i) * time.Second)
		created, err := repo.Create(ctx, domain.NewReference{Value: v, CreatedAt: at, UpdatedAt: at})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, v, created.Value)
		assert.True(t, created.CreatedAt.Equal(at))
	}

	desc, err := repo.List(ctx, domain.ReferenceColumnUpdatedAt, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.com", "b.com", "a.com"}, values(desc))

	asc, err := repo.List(ctx, domain.ReferenceColumnCreatedAt, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, values(asc))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRepo_List_Empty(t *testing.T) {
	repo, _ := newRepo(t)

	refs, err := repo.List(context.Background(), domain.ReferenceColumnUpdatedAt, false)
	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestRepo_List_UnknownColumn(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.List(context.Background(), domain.ReferenceColumn("value; drop table users"), false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRepo_Create_DuplicatesAllowed(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a, err := repo.Create(ctx, domain.NewReference{Value: "same.com", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	b, err := repo.Create(ctx, domain.NewReference{Value: "same.com", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestRepo_Create_CheckConstraints(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, domain.NewReference{Value: "   ", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrValidation, "blank value")

	_, err = repo.Create(ctx, domain.NewReference{Value: "x.com", CreatedAt: now, UpdatedAt: now.Add(-time.Second)})
	assert.ErrorIs(t, err, domain.ErrValidation, "updated_at before created_at")
}

func TestRepo_Update(t *testing.T) {
	repo, pool := newRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	oldest := testhelper.SeedReference(t, pool, "old.com", base)
	testhelper.SeedReference(t, pool, "new.com", base.Add(time.Minute))

	later := base.Add(2 * time.Minute).Truncate(time.Microsecond)
	updated, err := repo.Update(ctx, oldest.ID, domain.ReferencePatch{Value: "renamed.com", UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "renamed.com", updated.Value)
	assert.True(t, updated.UpdatedAt.Equal(later))
	assert.True(t, updated.CreatedAt.Equal(oldest.CreatedAt), "created_at must not change")

	refs, err := repo.List(ctx, domain.ReferenceColumnUpdatedAt, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"renamed.com", "new.com"}, values(refs))
}

func TestRepo_Update_NotFound(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	patch := domain.ReferencePatch{Value: "x.com", UpdatedAt: time.Now()}

	_, err := repo.Update(ctx, uuid.NewString(), patch)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Update(ctx, "not-a-uuid", patch)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_Delete(t *testing.T) {
	repo, pool := newRepo(t)
	ctx := context.Background()

	gone := testhelper.SeedReference(t, pool, "gone.com", time.Now())
	kept := testhelper.SeedReference(t, pool, "kept.com", time.Now())

	require.NoError(t, repo.Delete(ctx, gone.ID))

	refs, err := repo.List(ctx, domain.ReferenceColumnUpdatedAt, false)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, kept.ID, refs[0].ID)

	err = repo.Delete(ctx, gone.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
