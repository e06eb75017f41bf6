package lib

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/imagestore"
	"github.com/logue-fm/logue/lib/ingest"
	"github.com/logue-fm/logue/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
<title>Going Linear</title>
<link>https://example.com/show</link>
<description>A show about lines</description>
<item>
<title>Episode 1</title>
<link>https://example.com/show/1</link>
<description>Notes for episode 1</description>
<enclosure url="https://cdn.example.com/audio/1.mp3" type="audio/mpeg" length="1234"/>
</item>
</channel>
</rss>`

func testService(t *testing.T) (*Service, *gorm.DB, *imagestore.MemoryStore) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Channel{},
		&models.Episode{},
		&models.Subscription{},
	))

	cfg := &config.Config{FetchTimeoutSecs: 5}
	log := zap.NewNop()
	store := imagestore.NewMemoryStore()
	images := imagestore.NewFetcher(cfg, log, store, http.DefaultTransport)
	source := feeds.NewSource(cfg, http.DefaultTransport)
	ingester := ingest.NewIngester(cfg, log, db, source, images)

	return NewService(log, db, ingester, images), db, store
}

func TestSubscribeChannel(t *testing.T) {
	svc, db, _ := testService(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	sub, err := svc.SubscribeChannel(context.Background(), 42, srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 42, sub.UserID)
	assert.NotZero(t, sub.ChannelID)

	var channel models.Channel
	require.NoError(t, db.First(&channel, sub.ChannelID).Error)
	assert.Equal(t, srv.URL, channel.FeedURL)

	// Resubmitting the same URL must not create a second subscription.
	again, err := svc.SubscribeChannel(context.Background(), 42, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSubscribeChannel_NotPodcast(t *testing.T) {
	svc, db, _ := testService(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not a feed</body></html>")
	}))
	defer srv.Close()

	_, err := svc.SubscribeChannel(context.Background(), 42, srv.URL)
	require.ErrorIs(t, err, ErrNotPodcast)

	var count int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnsubscribe(t *testing.T) {
	svc, db, _ := testService(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeed)
	}))
	defer srv.Close()

	sub, err := svc.SubscribeChannel(context.Background(), 42, srv.URL)
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(context.Background(), 42, sub.ChannelID))

	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeleteChannel_RemovesRowsAndCoverAsset(t *testing.T) {
	svc, db, store := testService(t)

	ref, err := store.Put("images/cover.jpg", []byte("jpeg"))
	require.NoError(t, err)

	channel := models.Channel{FeedURL: "https://example.com/feed", CoverImage: ref, Active: true}
	require.NoError(t, db.Create(&channel).Error)
	require.NoError(t, db.Create(&models.Episode{ChannelID: channel.ID, AudioURL: "https://cdn.example.com/1.mp3"}).Error)
	require.NoError(t, db.Create(&models.Subscription{ChannelID: channel.ID, UserID: 42}).Error)

	require.NoError(t, svc.DeleteChannel(context.Background(), channel.ID))

	var channels, episodes, subs int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&channels).Error)
	require.NoError(t, db.Model(&models.Episode{}).Count(&episodes).Error)
	require.NoError(t, db.Model(&models.Subscription{}).Count(&subs).Error)
	assert.Zero(t, channels)
	assert.Zero(t, episodes)
	assert.Zero(t, subs)
	assert.False(t, store.Exists(ref))
}

func TestOnboardUser(t *testing.T) {
	svc, db, _ := testService(t)

	user, err := svc.OnboardUser(context.Background(), "jo@example.com", "hunter2")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "jo@example.com", stored.Email)
}
