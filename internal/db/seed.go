package db

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha/internal/logger"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

// seedLikeReward mirrors the popularity granted by a non-matching like.
const seedLikeReward = 5.0

var seedTags = []string{"vegan", "hiking", "jazz", "geek", "piercing", "travel", "cinema", "climbing"}

// seedCities are Paris-area coordinates so distances stay meaningful.
var seedCities = []struct {
	Name     string
	Lat, Lon float64
}{
	{"Paris", 48.8566, 2.3522},
	{"Versailles", 48.8049, 2.1204},
	{"Saint-Denis", 48.9362, 2.3574},
	{"Boulogne-Billancourt", 48.8397, 2.2399},
	{"Creteil", 48.7904, 2.4556},
}

// clearTables lists tables children first so foreign keys never block.
var clearTables = []string{
	"messages", "notifications", "reports", "visits", "blocks", "likes",
	"user_tags", "photos", "tags", "users",
}

func clearAll(db *gorm.DB) error {
	for _, table := range clearTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range clearTables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}
	return nil
}

// SeedTestData resets the database and populates it with demo accounts.
//
// Behavior:
//  1. Clears every table of the social core.
//  2. Creates 20 verified users (10 male, 10 female, mixed orientations)
//     sharing SeedPassword, each with a profile photo, tags, a birthdate and
//     a Paris-area location.
//  3. Creates likes; every 3rd pair is mutual. Popularity reflects the
//     points each like granted, so blocks and unlikes reverse cleanly.
//  4. Adds a short conversation to every match.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearAll(db); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	tags := make([]Tag, 0, len(seedTags))
	for _, name := range seedTags {
		tags = append(tags, Tag{Name: name})
	}
	if err := db.Create(&tags).Error; err != nil {
		return fmt.Errorf("failed to seed tags: %w", err)
	}

	orientations := []string{OrientationHeterosexual, OrientationHeterosexual, OrientationBisexual, OrientationGay}
	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}
		city := seedCities[r.Intn(len(seedCities))]
		lat := city.Lat + (r.Float64()-0.5)/50
		lon := city.Lon + (r.Float64()-0.5)/50
		birth := time.Date(1975+r.Intn(30), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC)

		u := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			FirstName:    fmt.Sprintf("User%d", i),
			Biography:    "Seeded account.",
			Birthdate:    &birth,
			Gender:       gender,
			Orientation:  orientations[r.Intn(len(orientations))],
			Latitude:     &lat,
			Longitude:    &lon,
			City:         city.Name,
			Verified:     true,
		}
		for _, j := range r.Perm(len(tags))[:1+r.Intn(4)] {
			u.Tags = append(u.Tags, tags[j])
		}
		u.Photos = []Photo{{URL: fmt.Sprintf("/uploads/seed/user%d.jpg", i), IsProfile: true}}
		users = append(users, u)
	}
	if err := db.Omit("Tags.*").Create(&users).Error; err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	logger.Info("seeded users", "count", len(users))

	likes, err := seedLikes(db, r, users)
	if err != nil {
		return err
	}
	logger.Info("seeded likes", "count", likes)
	return nil
}

// seedLikes draws ~12 likes per user and keeps edges, awarded points and
// popularity consistent.
func seedLikes(db *gorm.DB, r *rand.Rand, users []User) (int, error) {
	counter := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for i := range users {
			actor := users[i]
			for j := 0; j < 12; j++ {
				target := users[r.Intn(len(users))]
				if target.ID == actor.ID {
					continue
				}
				mutual := counter%3 == 0
				if err := seedLike(tx, actor.ID, target.ID); err != nil {
					return err
				}
				if mutual {
					if err := seedLike(tx, target.ID, actor.ID); err != nil {
						return err
					}
				}
				counter++
			}
		}
		return seedConversations(tx)
	})
	return counter, err
}

// seedLike inserts liker -> liked unless present. A like that closes a match
// awards nothing, like the live state machine.
func seedLike(tx *gorm.DB, likerID, likedID uint64) error {
	var back int64
	if err := tx.Model(&Like{}).Where("liker_id = ? AND liked_id = ?", likedID, likerID).Count(&back).Error; err != nil {
		return err
	}
	awarded := seedLikeReward
	if back > 0 {
		awarded = 0
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{LikerID: likerID, LikedID: likedID, Awarded: awarded})
	if res.Error != nil {
		return fmt.Errorf("failed to seed like: %w", res.Error)
	}
	if res.RowsAffected == 0 || awarded == 0 {
		return nil
	}
	return tx.Model(&User{}).Where("id = ?", likedID).
		UpdateColumn("popularity", gorm.Expr("popularity + ?", awarded)).Error
}

func seedConversations(tx *gorm.DB) error {
	var pairs []struct {
		A uint64
		B uint64
	}
	err := tx.Table("likes l1").
		Select("l1.liker_id AS a, l1.liked_id AS b").
		Joins("JOIN likes l2 ON l2.liker_id = l1.liked_id AND l2.liked_id = l1.liker_id").
		Where("l1.liker_id < l1.liked_id").
		Scan(&pairs).Error
	if err != nil {
		return fmt.Errorf("failed to list matches: %w", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i, p := range pairs {
		msgs := []Message{
			{SenderID: p.A, ReceiverID: p.B, Body: "Hi! We matched.", IsRead: true, CreatedAt: base.Add(time.Duration(i) * time.Minute)},
			{SenderID: p.B, ReceiverID: p.A, Body: "Hello there.", CreatedAt: base.Add(time.Duration(i)*time.Minute + time.Second)},
		}
		if err := tx.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to seed messages: %w", err)
		}
	}
	return nil
}

// SeedMinimalTestData creates a tiny fixed graph: user1 and user2 match,
// user3 likes user1.
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearAll(db); err != nil {
		return err
	}

	users := []User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Gender: GenderMale, Orientation: OrientationHeterosexual, Verified: true, Popularity: 5},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Gender: GenderFemale, Orientation: OrientationHeterosexual, Verified: true, Popularity: 5},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Gender: GenderFemale, Orientation: OrientationBisexual, Verified: true},
	}
	for i := range users {
		users[i].Photos = []Photo{{URL: fmt.Sprintf("/uploads/seed/user%d.jpg", users[i].ID), IsProfile: true}}
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	likes := []Like{
		{LikerID: 1, LikedID: 2, Awarded: seedLikeReward}, // user1 → user2
		{LikerID: 2, LikedID: 1, Awarded: 0},              // user2 → user1, match
		{LikerID: 3, LikedID: 1, Awarded: seedLikeReward}, // user3 → user1, one-way
	}
	return db.Create(&likes).Error
}
