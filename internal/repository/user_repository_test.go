package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/testutil"
)

func TestApplyScoreDeltaClampsAtZero(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewUserRepository(dbase)
	u := testutil.CreateUser(t, dbase, "alice", testutil.WithPopularity(3))

	require.NoError(t, repo.ApplyScoreDelta(ctx, u.ID, 5))
	assert.Equal(t, 8.0, testutil.Popularity(t, dbase, u.ID))

	require.NoError(t, repo.ApplyScoreDelta(ctx, u.ID, -20))
	assert.Equal(t, 0.0, testutil.Popularity(t, dbase, u.ID))

	err := repo.ApplyScoreDelta(ctx, 9999, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSetLastSeen(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewUserRepository(dbase)
	u := testutil.CreateUser(t, dbase, "alice")

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetLastSeen(ctx, u.ID, &now))
	got, err := repo.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSeenAt)
	assert.True(t, got.LastSeenAt.Equal(now))

	require.NoError(t, repo.SetLastSeen(ctx, u.ID, nil))
	got, _ = repo.Get(ctx, u.ID)
	assert.Nil(t, got.LastSeenAt)
}

func TestDiscoverableExclusions(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewUserRepository(dbase)

	viewer := testutil.CreateUser(t, dbase, "viewer")
	visible := testutil.CreateUser(t, dbase, "visible")
	testutil.CreateUser(t, dbase, "unverified", testutil.Unverified())
	testutil.CreateUser(t, dbase, "nophoto", testutil.NoPhoto())
	blockedByViewer := testutil.CreateUser(t, dbase, "blocked")
	blocksViewer := testutil.CreateUser(t, dbase, "blocker")
	male := testutil.CreateUser(t, dbase, "male", testutil.WithGender(db.GenderMale))

	require.NoError(t, dbase.Create(&db.Block{BlockerID: viewer.ID, BlockedID: blockedByViewer.ID}).Error)
	require.NoError(t, dbase.Create(&db.Block{BlockerID: blocksViewer.ID, BlockedID: viewer.ID}).Error)

	pool, err := repo.Discoverable(ctx, viewer.ID, repository.PoolFilter{})
	require.NoError(t, err)
	ids := userIDs(pool)
	assert.Equal(t, []uint64{visible.ID, male.ID}, ids)

	pool, err = repo.Discoverable(ctx, viewer.ID, repository.PoolFilter{Genders: []string{db.GenderMale}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{male.ID}, userIDs(pool))

	pool, err = repo.Discoverable(ctx, viewer.ID, repository.PoolFilter{ExcludeGenders: []string{db.GenderMale}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{visible.ID}, userIDs(pool))
}

func TestTagNamesAndPhotos(t *testing.T) {
	ctx := context.Background()
	dbase := testutil.NewDB(t)
	repo := repository.NewUserRepository(dbase)

	a := testutil.CreateUser(t, dbase, "alice")
	b := testutil.CreateUser(t, dbase, "bob", testutil.NoPhoto())
	testutil.Tag(t, dbase, a, "vegan", "hiking")
	testutil.Tag(t, dbase, b, "hiking")

	tags, err := repo.TagNames(ctx, []uint64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"hiking", "vegan"}, tags[a.ID])
	assert.Equal(t, []string{"hiking"}, tags[b.ID])

	photos, err := repo.ProfilePhotoURLs(ctx, []uint64{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/alice.jpg", photos[a.ID])
	_, ok := photos[b.ID]
	assert.False(t, ok)

	has, err := repo.HasPhoto(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func userIDs(users []db.User) []uint64 {
	out := make([]uint64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
