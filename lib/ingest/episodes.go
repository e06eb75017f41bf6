package ingest

import (
	"context"
	"database/sql"
	"errors"
	"html"

	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reconcileEpisodes walks the document's entries and creates episodes
// for the ones not seen before. The loop is fault-isolated per entry:
// one malformed entry never stops the rest of the feed.
func (ing *Ingester) reconcileEpisodes(ctx context.Context, doc *feeds.Document, channel *models.Channel) *Report {
	report := &Report{FeedURL: doc.FeedURL, ChannelID: channel.ID}

	for _, entry := range doc.Entries {
		ing.reconcileEntry(ctx, entry, channel, report)
	}

	ing.log.Sugar().Infow("Reconciled episodes",
		"url", doc.FeedURL, "created", report.Created, "skipped", report.Skipped)
	return report
}

func (ing *Ingester) reconcileEntry(ctx context.Context, entry *feeds.Entry, channel *models.Channel, report *Report) {
	if entry.Title == nil || entry.TitleType == nil || entry.Description == nil {
		ing.log.Sugar().Errorw("Entry missing required field",
			"url", channel.FeedURL, "link", feeds.String(entry.Link))
		report.skip("entry %q missing required field", feeds.String(entry.Link))
		return
	}

	if *entry.Title == "" {
		ing.log.Sugar().Warnw("Entry has a blank title",
			"url", channel.FeedURL, "link", feeds.String(entry.Link))
		report.skip("entry %q has a blank title", feeds.String(entry.Link))
		return
	}

	audioURL, ok := entry.AudioURL()
	if !ok {
		ing.log.Sugar().Warnw("Entry has no audio URL",
			"url", channel.FeedURL, "title", *entry.Title)
		report.skip("entry %q has no audio URL", *entry.Title)
		return
	}

	// Dedup key is (channel, audio URL). Existing episodes win: a
	// later poll never rewrites their fields.
	var existing models.Episode
	err := ing.db.WithContext(ctx).
		Where("channel_id = ? AND audio_url = ?", channel.ID, audioURL).
		First(&existing).Error
	if err == nil {
		report.Skipped++
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		ing.log.Sugar().Errorw("Failed to look up episode",
			"url", channel.FeedURL, "audio_url", audioURL, "err", err)
		report.skip("entry %q lookup failed", *entry.Title)
		return
	}

	episode := models.Episode{
		ChannelID:   channel.ID,
		AudioURL:    audioURL,
		Title:       escapeByType(*entry.Title, entry.TitleType),
		Link:        feeds.String(entry.Link),
		Description: entryDescription(entry),
		Duration:    feeds.String(entry.Duration),
		PublishedAt: sql.NullTime{Time: ing.normalizePublished(entry), Valid: true},
		Active:      true,
	}

	tx := ing.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&episode)
	switch {
	case tx.Error != nil:
		ing.log.Sugar().Errorw("Failed to create episode",
			"url", channel.FeedURL, "audio_url", audioURL, "err", tx.Error)
		report.skip("entry %q create failed", *entry.Title)
	case tx.RowsAffected == 0:
		// A concurrent poll created the same key first.
		report.Skipped++
	default:
		report.Created++
	}
}

// entryDescription applies the inverted escaping default for entry
// descriptions: a missing content type is treated as unsafe and
// escaped, while a declared non-plain type is trusted verbatim.
func entryDescription(entry *feeds.Entry) string {
	if entry.DescriptionType != nil && *entry.DescriptionType != feeds.TypePlainText {
		return *entry.Description
	}
	return html.EscapeString(*entry.Description)
}
