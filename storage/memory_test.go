package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"newsmint/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, s *MemoryStore, n int, address string) []primitive.ObjectID {
	t.Helper()
	ids := make([]primitive.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.Insert(context.Background(), &types.Article{
			URL:        fmt.Sprintf("https://example.com/%s/%d", address, i),
			DagAddress: address,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestMemoryStoreRejectsDuplicateURL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Insert(ctx, &types.Article{URL: "https://example.com/a"})
	require.NoError(t, err)

	_, err = s.Insert(ctx, &types.Article{URL: "https://example.com/a"})
	assert.ErrorIs(t, err, ErrDuplicateURL)

	n, _ := s.Count(ctx)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStorePagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seed(t, s, 5, "DAGa")
	seed(t, s, 3, "DAGb")

	page, err := s.List(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "https://example.com/DAGa/2", page[0].URL)

	byAddr, err := s.ListByAddress(ctx, "DAGb", 1, 10)
	require.NoError(t, err)
	require.Len(t, byAddr, 2)
	assert.Equal(t, "https://example.com/DAGb/1", byAddr[0].URL)

	empty, err := s.ListByAddress(ctx, "DAGb", 3, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreMarkMintedOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ids := seed(t, s, 1, "DAGa")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.MarkMinted(ctx, ids[0], "DAGminter", "0xabc", at))
	assert.ErrorIs(t, s.MarkMinted(ctx, ids[0], "DAGother", "0xdef", at), ErrNotModified)
	assert.ErrorIs(t, s.MarkMinted(ctx, primitive.NewObjectID(), "DAGother", "0xdef", at), ErrNotModified)

	a, err := s.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, a.MintedBy)
	assert.Equal(t, "DAGminter", *a.MintedBy)
	assert.Equal(t, "0xabc", *a.NFTTokenID)
	assert.Equal(t, at, *a.MintedAt)
}

func TestMemoryStoreFindReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seed(t, s, 1, "DAGa")

	a, err := s.FindByURL(ctx, "https://example.com/DAGa/0")
	require.NoError(t, err)
	a.Title = "mutated"

	again, _ := s.FindByURL(ctx, "https://example.com/DAGa/0")
	assert.Empty(t, again.Title)

	_, err = s.FindByURL(ctx, "https://example.com/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
