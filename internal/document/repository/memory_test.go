package repository

import (
	"context"
	"testing"

	"pagetree/internal/document/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryOrdersNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Insert(ctx, &model.Document{ID: id, Title: id, OwnerID: "u1"}))
	}
	require.NoError(t, repo.Insert(ctx, &model.Document{ID: "x", Title: "x", OwnerID: "u2"}))

	docs, err := repo.ListByOwner(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestMemoryRepositoryPatchAndIndexes(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &model.Document{ID: "root", Title: "Root", OwnerID: "u1", Icon: model.StringPtr("x")}))
	require.NoError(t, repo.Insert(ctx, &model.Document{ID: "kid", Title: "Kid", OwnerID: "u1", ParentDocumentID: model.StringPtr("root")}))

	kids, err := repo.ListByOwnerParent(ctx, "u1", model.StringPtr("root"))
	require.NoError(t, err)
	require.Len(t, kids, 1)

	roots, err := repo.ListByOwnerParent(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)

	patched, err := repo.Patch(ctx, "kid", model.Patch{IsArchived: model.BoolPtr(true), ClearParent: true})
	require.NoError(t, err)
	assert.True(t, patched.IsArchived)
	assert.True(t, patched.IsRoot())

	children, err := repo.ListChildren(ctx, "root")
	require.NoError(t, err)
	assert.Empty(t, children)

	root, err := repo.Patch(ctx, "root", model.Patch{ClearIcon: true})
	require.NoError(t, err)
	assert.Nil(t, root.Icon)

	// Returned documents are copies.
	root.Title = "mutated"
	again, _ := repo.Get(ctx, "root")
	assert.Equal(t, "Root", again.Title)

	require.NoError(t, repo.Delete(ctx, "root"))
	assert.ErrorIs(t, repo.Delete(ctx, "root"), ErrNoDocument)
	_, err = repo.Patch(ctx, "root", model.Patch{Title: model.StringPtr("x")})
	assert.ErrorIs(t, err, ErrNoDocument)
}
