package ingest

import (
	"time"

	"github.com/araddon/dateparse"
	"github.com/logue-fm/logue/lib/feeds"
)

// normalizePublished resolves an entry's publish date to an absolute
// instant. Entries with no usable date default to now, and dates in
// the future are clamped to now so clock-skewed feeds can't pin
// themselves to the top of reverse-chronological listings.
func (ing *Ingester) normalizePublished(entry *feeds.Entry) time.Time {
	now := ing.now()
	loc := ing.cfg.Location()

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed

	case entry.Published != nil:
		parsed, err := dateparse.ParseIn(*entry.Published, loc)
		if err != nil {
			return now
		}
		// A raw string without zone info was localized into loc;
		// settle any DST fall-back overlap before trusting it.
		if parsed.Location() == loc {
			parsed = resolveAmbiguity(parsed)
		}
		published = parsed

	default:
		return now
	}

	if published.After(now) {
		return now
	}
	return published
}

// resolveAmbiguity handles wall clocks inside a DST fall-back overlap,
// where two instants share the same local time. It picks the later,
// standard-time instant.
func resolveAmbiguity(t time.Time) time.Time {
	later := t.Add(time.Hour)
	if sameWallClock(t, later) {
		return later
	}
	return t
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
