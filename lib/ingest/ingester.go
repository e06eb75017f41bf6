package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/imagestore"
	"github.com/logue-fm/logue/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ingester runs one channel's poll end to end: fetch, validate,
// reconcile the channel row, reconcile episodes. Invoked synchronously
// on first subscription and recurringly by the poller; both paths are
// idempotent, so neither needs special-casing.
type Ingester struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	source *feeds.Source
	images *imagestore.Fetcher

	now func() time.Time
}

func NewIngester(cfg *config.Config, log *zap.Logger, db *gorm.DB, source *feeds.Source, images *imagestore.Fetcher) *Ingester {
	return &Ingester{
		cfg:    cfg,
		log:    log,
		db:     db,
		source: source,
		images: images,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PollFeed fetches feedURL and ingests the result. Transport failures
// abort with ReasonFetchFailed; the next scheduled poll retries.
func (ing *Ingester) PollFeed(ctx context.Context, feedURL string) *Report {
	doc, err := ing.source.Fetch(ctx, feedURL)
	if err != nil {
		ing.log.Sugar().Warnw("Failed to fetch feed", "url", feedURL, "err", err)
		return abortedReport(feedURL, &Abort{ReasonFetchFailed, err.Error()})
	}
	return ing.IngestDocument(ctx, doc)
}

// IngestDocument runs the pipeline on an already-parsed document.
func (ing *Ingester) IngestDocument(ctx context.Context, doc *feeds.Document) *Report {
	if abort := ing.validate(doc); abort != nil {
		return abortedReport(doc.FeedURL, abort)
	}

	channel, err := ing.getOrCreateChannel(ctx, doc.FeedURL)
	if err != nil {
		ing.log.Sugar().Errorw("Failed to upsert channel", "url", doc.FeedURL, "err", err)
		return abortedReport(doc.FeedURL, &Abort{ReasonStorageFailed, err.Error()})
	}

	ing.reconcileChannel(ctx, doc, channel)

	report := ing.reconcileEpisodes(ctx, doc, channel)
	report.Status = StatusDone
	return report
}

// getOrCreateChannel resolves the channel row for feedURL. Concurrent
// first-polls race on the feed_url unique index; the loser re-fetches
// the winner's row instead of erroring.
func (ing *Ingester) getOrCreateChannel(ctx context.Context, feedURL string) (*models.Channel, error) {
	var channel models.Channel
	err := ing.db.WithContext(ctx).Where("feed_url = ?", feedURL).First(&channel).Error
	if err == nil {
		return &channel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	channel = models.Channel{FeedURL: feedURL, Active: true}
	tx := ing.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&channel)
	if err := tx.Error; err != nil {
		return nil, err
	}
	if tx.RowsAffected == 0 {
		err = ing.db.WithContext(ctx).Where("feed_url = ?", feedURL).First(&channel).Error
		return &channel, err
	}
	return &channel, nil
}
