package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/testutil"
)

func TestLikeCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a := testutil.CreateUser(t, dbase, "alice")
	b := testutil.CreateUser(t, dbase, "bob")

	created, err := repo.Create(ctx, a.ID, b.ID, 5)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, a.ID, b.ID, 5)
	require.NoError(t, err)
	assert.False(t, created, "second like of the same pair is a no-op")

	var count int64
	dbase.Model(&db.Like{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestMatchIsDerivedFromBothEdges(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a := testutil.CreateUser(t, dbase, "alice")
	b := testutil.CreateUser(t, dbase, "bob")

	_, _ = repo.Create(ctx, a.ID, b.ID, 5)
	match, err := repo.IsMatch(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, match)

	_, _ = repo.Create(ctx, b.ID, a.ID, 0)
	match, _ = repo.IsMatch(ctx, b.ID, a.ID)
	assert.True(t, match)

	ids, err := repo.MatchedIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint64{b.ID}, ids)

	removed, err := repo.Delete(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	match, _ = repo.IsMatch(ctx, a.ID, b.ID)
	assert.False(t, match, "removing either edge breaks the match")
	ids, _ = repo.MatchedIDs(ctx, a.ID)
	assert.Empty(t, ids)
}

func TestLikePair(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	a := testutil.CreateUser(t, dbase, "alice")
	b := testutil.CreateUser(t, dbase, "bob")

	_, _ = repo.Create(ctx, b.ID, a.ID, 5)

	ab, ba, err := repo.Pair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, ab)
	require.NotNil(t, ba)
	assert.Equal(t, 5.0, ba.Awarded)
}

func TestListLikersPagination(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewLikeRepository(dbase)
	target := testutil.CreateUser(t, dbase, "target")

	var likers []*db.User
	for _, name := range []string{"l1", "l2", "l3"} {
		u := testutil.CreateUser(t, dbase, name)
		likers = append(likers, u)
		_, err := repo.Create(ctx, u.ID, target.ID, 5)
		require.NoError(t, err)
	}

	page1, next, err := repo.ListLikers(ctx, target.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next)
	assert.Equal(t, "/uploads/"+page1[0].Username+".jpg", *page1[0].PhotoURL)

	page2, next2, err := repo.ListLikers(ctx, target.ID, next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Nil(t, next2)

	seen := map[uint64]bool{}
	for _, row := range append(page1, page2...) {
		seen[row.UserID] = true
	}
	for _, u := range likers {
		assert.True(t, seen[u.ID], "liker %s missing", u.Username)
	}
}
