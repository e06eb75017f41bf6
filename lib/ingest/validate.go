package ingest

import (
	"fmt"

	"github.com/logue-fm/logue/lib/feeds"
)

// validate inspects a parsed document for structural soundness before
// anything is persisted. A non-nil Abort means skip this channel's
// poll entirely; nothing about it is ever fatal.
func (ing *Ingester) validate(doc *feeds.Document) *Abort {
	if doc.Malformed() {
		ing.log.Sugar().Warnw("Malformed feed", "url", doc.FeedURL, "err", doc.ParseError)
		return &Abort{ReasonMalformedDocument, fmt.Sprintf("malformed feed %q: %s", doc.FeedURL, doc.ParseError)}
	}

	if doc.Title == nil || doc.TitleType == nil {
		ing.log.Sugar().Errorw("Channel missing title", "url", doc.FeedURL)
		return &Abort{ReasonMissingChannelField, fmt.Sprintf("channel %q has no title", doc.FeedURL)}
	}

	// A feed qualifies as a podcast only if its first entry carries a
	// playable audio enclosure.
	if len(doc.Entries) == 0 {
		ing.log.Sugar().Warnw("Channel has no entries", "url", doc.FeedURL)
		return &Abort{ReasonNoPlayableEntry, fmt.Sprintf("channel %q has no entries", doc.FeedURL)}
	}
	if _, ok := doc.Entries[0].AudioURL(); !ok {
		ing.log.Sugar().Warnw("Channel has no audio link", "url", doc.FeedURL)
		return &Abort{ReasonNoPlayableEntry, fmt.Sprintf("channel %q has no audio link", doc.FeedURL)}
	}

	return nil
}
