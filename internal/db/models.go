package db

import (
	"time"
)

// Orientation values accepted on User.Orientation.
const (
	OrientationHeterosexual = "heterosexual"
	OrientationGay          = "gay"
	OrientationBisexual     = "bisexual"
)

// Gender values accepted on User.Gender.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User table.
//
// Popularity is only ever mutated through UserRepository.ApplyScoreDelta so
// the zero floor holds. LastSeenAt is NULL while the user holds a live session.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	Biography    string `gorm:"type:text"`
	Birthdate    *time.Time
	Gender       string   `gorm:"size:16;not null;index"`
	Orientation  string   `gorm:"size:16;not null;default:bisexual"`
	Latitude     *float64 `gorm:"type:double"`
	Longitude    *float64 `gorm:"type:double"`
	City         string   `gorm:"size:128"`
	Popularity   float64  `gorm:"type:double;not null;default:0"`
	Verified     bool     `gorm:"not null;default:false;index"`
	LastSeenAt   *time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Tags   []Tag   `gorm:"many2many:user_tags;constraint:OnDelete:CASCADE"`
	Photos []Photo `gorm:"constraint:OnDelete:CASCADE"`
}

// Photo is owned by the profile subsystem. URL is opaque to the core.
type Photo struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index"`
	URL       string    `gorm:"size:512;not null"`
	IsProfile bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Tag is a normalized (trimmed, lower-case) interest label.
type Tag struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

// Like is the directed edge liker -> liked.
//
// Composite PK: (LikerID, LikedID), one edge per ordered pair.
// A match is never stored: it is the presence of both (a,b) and (b,a).
//
// Awarded records the popularity points granted to the liked user when the edge
// was created, so a block can reverse exactly what the edge granted.
type Like struct {
	LikerID   uint64    `gorm:"primaryKey"`
	LikedID   uint64    `gorm:"primaryKey;index:idx_likes_liked_created,priority:1"`
	Awarded   float64   `gorm:"type:double;not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_liked_created,priority:2,sort:desc"`

	Liker User `gorm:"foreignKey:LikerID;constraint:OnDelete:CASCADE" json:"-"`
	Liked User `gorm:"foreignKey:LikedID;constraint:OnDelete:CASCADE" json:"-"`
}

// Block is the directed edge blocker -> blocked.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey"`
	BlockedID uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Blocker User `gorm:"foreignKey:BlockerID;constraint:OnDelete:CASCADE" json:"-"`
	Blocked User `gorm:"foreignKey:BlockedID;constraint:OnDelete:CASCADE" json:"-"`
}

// Visit records that VisitorID opened VisitedID's profile.
type Visit struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	VisitorID uint64    `gorm:"not null;index:idx_visits_pair_created,priority:1"`
	VisitedID uint64    `gorm:"not null;index:idx_visits_pair_created,priority:2;index:idx_visits_visited_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_visits_pair_created,priority:3;index:idx_visits_visited_created,priority:2,sort:desc"`

	Visitor User `gorm:"foreignKey:VisitorID;constraint:OnDelete:CASCADE" json:"-"`
	Visited User `gorm:"foreignKey:VisitedID;constraint:OnDelete:CASCADE" json:"-"`
}

// Report is unique per ordered pair; the first reason wins.
type Report struct {
	ReporterID uint64    `gorm:"primaryKey"`
	ReportedID uint64    `gorm:"primaryKey;index"`
	Reason     string    `gorm:"size:500"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	Reporter User `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE" json:"-"`
	Reported User `gorm:"foreignKey:ReportedID;constraint:OnDelete:CASCADE" json:"-"`
}

// Notification types. The set is closed.
const (
	NotificationLike    = "like"
	NotificationUnlike  = "unlike"
	NotificationMatch   = "match"
	NotificationVisit   = "visit"
	NotificationMessage = "message"
)

// Notification is a durable record of a social signal sent to RecipientID.
// Only IsRead ever changes after insert.
type Notification struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	RecipientID uint64    `gorm:"not null;index:idx_notifications_recipient_read,priority:1;index:idx_notifications_recipient_created,priority:1"`
	SenderID    *uint64   `gorm:"index"`
	Type        string    `gorm:"size:16;not null"`
	IsRead      bool      `gorm:"not null;default:false;index:idx_notifications_recipient_read,priority:2"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_notifications_recipient_created,priority:2,sort:desc"`

	Recipient User  `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
	Sender    *User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
}

// Message is a chat line. Rows are only written while a match holds.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64    `gorm:"not null;index:idx_messages_pair,priority:1"`
	ReceiverID uint64    `gorm:"not null;index:idx_messages_pair,priority:2;index:idx_messages_receiver_read,priority:1"`
	Body       string    `gorm:"type:text;not null"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_messages_receiver_read,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`

	Sender   User `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&User{}, &Photo{}, &Tag{},
		&Like{}, &Block{}, &Visit{}, &Report{},
		&Notification{}, &Message{},
	}
}
