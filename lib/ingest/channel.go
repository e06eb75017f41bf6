package ingest

import (
	"context"
	"database/sql"
	"html"

	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/models"
)

// Cover dimensions stored alongside the image reference; covers are
// rendered square at this size.
const coverSize = 400

// reconcileChannel overwrites the channel row's mutable fields from a
// validated document and saves them as one write. It always succeeds
// after validation has passed: an image fetch failure leaves the
// previous cover untouched and never aborts the poll.
func (ing *Ingester) reconcileChannel(ctx context.Context, doc *feeds.Document, channel *models.Channel) {
	channel.Title = escapeByType(*doc.Title, doc.TitleType)
	channel.Link = feeds.String(doc.Link)
	channel.Author = feeds.String(doc.Author)

	if doc.Description != nil && doc.DescriptionType != nil {
		channel.Description = escapeByType(*doc.Description, doc.DescriptionType)
	} else {
		channel.Description = ""
	}

	// Liveness signal for the poller; set unconditionally even when
	// nothing else changed.
	channel.LastPolledAt = sql.NullTime{Time: ing.now(), Valid: true}

	if doc.ImageURL != nil {
		if ref := ing.images.FetchAndStore(ctx, *doc.ImageURL, channel.CoverImage); ref != "" {
			channel.CoverImage = ref
			channel.ImageWidth = coverSize
			channel.ImageHeight = coverSize
		}
	}

	if err := ing.db.WithContext(ctx).Save(channel).Error; err != nil {
		ing.log.Sugar().Errorw("Failed to save channel", "url", channel.FeedURL, "err", err)
	}
}

// escapeByType HTML-escapes text the feed declared as plain; any other
// declared type is trusted to already be markup-safe.
func escapeByType(text string, contentType *string) string {
	if contentType != nil && *contentType == feeds.TypePlainText {
		return html.EscapeString(text)
	}
	return text
}
