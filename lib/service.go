package lib

import (
	"context"
	"errors"
	"fmt"

	"github.com/logue-fm/logue/lib/imagestore"
	"github.com/logue-fm/logue/lib/ingest"
	"github.com/logue-fm/logue/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotPodcast signals that a submitted URL could not be registered
// as a podcast feed; the web layer re-renders the form instead of
// redirecting.
var ErrNotPodcast = errors.New("could not register feed")

type Service struct {
	log      *zap.Logger
	db       *gorm.DB
	ingester *ingest.Ingester
	images   *imagestore.Fetcher
}

func NewService(log *zap.Logger, db *gorm.DB, ingester *ingest.Ingester, images *imagestore.Fetcher) *Service {
	return &Service{log, db, ingester, images}
}

func (svc *Service) OnboardUser(ctx context.Context, email, password string) (*models.User, error) {
	user := &models.User{
		Email:    email,
		Password: password,
	}
	tx := svc.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(user)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infof("Created user %v (%s)", user.ID, email)
	return user, nil
}

// SubscribeChannel registers a feed URL for a user. The feed is polled
// synchronously first; only a URL that ingests as a valid podcast gets
// a subscription row. Resubmitting an already-subscribed URL is a
// no-op thanks to the (channel, user) unique key.
func (svc *Service) SubscribeChannel(ctx context.Context, userID uint, feedURL string) (*models.Subscription, error) {
	report := svc.ingester.PollFeed(ctx, feedURL)
	if !report.Success() {
		return nil, fmt.Errorf("%w: %s", ErrNotPodcast, report.Reason)
	}

	var channel models.Channel
	if err := svc.db.WithContext(ctx).Where("feed_url = ?", feedURL).First(&channel).Error; err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		ChannelID: channel.ID,
		UserID:    userID,
	}
	tx := svc.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if tx.RowsAffected == 0 {
		err := svc.db.WithContext(ctx).
			Where("channel_id = ? AND user_id = ?", channel.ID, userID).
			First(sub).Error
		if err != nil {
			return nil, err
		}
	}

	svc.log.Sugar().Infof("Subscribed user %v to channel %v (%s)", userID, channel.ID, feedURL)
	return sub, nil
}

func (svc *Service) Unsubscribe(ctx context.Context, userID, channelID uint) error {
	tx := svc.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&models.Subscription{})
	return tx.Error
}

func (svc *Service) ListSubscriptions(ctx context.Context, userID uint) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		InnerJoins("Channel").
		Find(&subs)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (svc *Service) ListEpisodes(ctx context.Context, channelID uint) (models.Episodes, error) {
	var episodes models.Episodes
	tx := svc.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("published_at desc").
		Find(&episodes)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return episodes, nil
}

// DeleteChannel is the administrative removal path: it deletes the row
// along with its episodes, subscriptions and the owned cover asset.
func (svc *Service) DeleteChannel(ctx context.Context, channelID uint) error {
	var channel models.Channel
	if err := svc.db.WithContext(ctx).First(&channel, channelID).Error; err != nil {
		return err
	}

	if err := svc.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.Episode{}).Error; err != nil {
		return err
	}
	if err := svc.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.Subscription{}).Error; err != nil {
		return err
	}
	if err := svc.db.WithContext(ctx).Delete(&channel).Error; err != nil {
		return err
	}

	svc.images.DeleteRef(channel.CoverImage)
	svc.log.Sugar().Infof("Deleted channel %v (%s)", channel.ID, channel.FeedURL)
	return nil
}
