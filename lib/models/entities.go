package models

import (
	"database/sql"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email       string `gorm:"unique"`
	Password    string
	LastLoginAt sql.NullTime

	Subscriptions []Subscription
}

// Channel is one podcast feed. FeedURL is the natural key; the ingest
// pipeline leans on its unique index to stay idempotent when two
// first-polls of the same URL race.
type Channel struct {
	gorm.Model
	FeedURL      string `gorm:"uniqueIndex"`
	Title        string
	Link         string
	Author       string
	Description  string
	CoverImage   string
	ImageWidth   int
	ImageHeight  int
	LastPolledAt sql.NullTime
	Active       bool `gorm:"default:true"`

	Episodes      []Episode
	Subscriptions []Subscription
}

type Channels []*Channel

// Episode rows are create-only. A later poll never overwrites the
// fields of an episode whose (channel, audio URL) key already exists.
type Episode struct {
	gorm.Model
	ChannelID   uint   `gorm:"index:idx_channel_audio,unique"`
	AudioURL    string `gorm:"index:idx_channel_audio,unique"`
	Title       string
	Link        string
	Description string
	PublishedAt sql.NullTime
	Duration    string
	Active      bool `gorm:"default:true"`

	Channel Channel
}

type Episodes []*Episode

type Subscription struct {
	gorm.Model
	ChannelID uint `gorm:"index:idx_channel_user,unique"`
	UserID    uint `gorm:"index:idx_channel_user,unique"`

	Channel Channel
}

type Subscriptions []*Subscription
