// Package testutil wires in-memory SQLite and miniredis for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/cache"
	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/db"
	matchalog "github.com/oggyb/matcha/internal/logger"
)

// NewDB opens an isolated in-memory SQLite database with the full schema.
// A single connection is used so transactions serialize like on one node.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

// NewRedis starts a miniredis and returns a cache bound to it.
func NewRedis(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg), mr
}

// NewAppContext returns a fresh DB + Redis + silent logger bundle.
func NewAppContext(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	database := NewDB(t)
	redisCache, mr := NewRedis(t)
	return app.New(config.New(), database, redisCache, matchalog.Discard()), mr
}

// UserOption tweaks a seeded user.
type UserOption func(*db.User)

func WithGender(g string) UserOption      { return func(u *db.User) { u.Gender = g } }
func WithOrientation(o string) UserOption { return func(u *db.User) { u.Orientation = o } }
func WithPopularity(p float64) UserOption { return func(u *db.User) { u.Popularity = p } }
func Unverified() UserOption              { return func(u *db.User) { u.Verified = false } }

func WithLocation(lat, lon float64) UserOption {
	return func(u *db.User) { u.Latitude, u.Longitude = &lat, &lon }
}

func WithBirthdate(year int, month time.Month, day int) UserOption {
	return func(u *db.User) {
		b := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		u.Birthdate = &b
	}
}

// CreateUser inserts a verified bisexual user with one profile photo.
// Pass NoPhoto() as the first option to skip the photo.
func CreateUser(t *testing.T, gdb *gorm.DB, username string, opts ...UserOption) *db.User {
	t.Helper()

	u := &db.User{
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: "x",
		Gender:       db.GenderFemale,
		Orientation:  db.OrientationBisexual,
		Verified:     true,
	}
	photo := true
	for _, opt := range opts {
		if opt == nil {
			photo = false
			continue
		}
		opt(u)
	}
	require.NoError(t, gdb.Create(u).Error)

	if photo {
		require.NoError(t, gdb.Create(&db.Photo{
			UserID:    u.ID,
			URL:       "/uploads/" + username + ".jpg",
			IsProfile: true,
		}).Error)
	}
	return u
}

// NoPhoto makes CreateUser skip the photo.
func NoPhoto() UserOption { return nil }

// Tag links the user to the named tags, creating them as needed.
func Tag(t *testing.T, gdb *gorm.DB, u *db.User, names ...string) {
	t.Helper()
	for _, name := range names {
		tag := db.Tag{Name: name}
		require.NoError(t, gdb.Where(db.Tag{Name: name}).FirstOrCreate(&tag).Error)
		require.NoError(t, gdb.Model(u).Association("Tags").Append(&tag))
	}
}

// Popularity reloads the stored popularity score of a user.
func Popularity(t *testing.T, gdb *gorm.DB, userID uint64) float64 {
	t.Helper()
	var u db.User
	require.NoError(t, gdb.First(&u, userID).Error)
	return u.Popularity
}
