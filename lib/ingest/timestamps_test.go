package ingest

import (
	"testing"
	"time"

	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNowIngester(t *testing.T, now time.Time, timeZone string) *Ingester {
	t.Helper()
	ing, _, _ := testIngester(t)
	ing.cfg = &config.Config{FetchTimeoutSecs: 5, TimeZone: timeZone}
	ing.now = func() time.Time { return now }
	return ing
}

func TestNormalizePublished_DefaultsToNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "UTC")

	got := ing.normalizePublished(&feeds.Entry{})
	assert.Equal(t, now, got)
}

func TestNormalizePublished_KeepsPastDates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "UTC")

	published := time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)
	got := ing.normalizePublished(&feeds.Entry{PublishedParsed: &published})
	assert.Equal(t, published, got)
}

func TestNormalizePublished_ClampsFutureDates(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "UTC")

	future := now.Add(24 * time.Hour)
	got := ing.normalizePublished(&feeds.Entry{PublishedParsed: &future})
	assert.Equal(t, now, got)
}

func TestNormalizePublished_RawStringFallback(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "America/New_York")

	got := ing.normalizePublished(&feeds.Entry{Published: feeds.Ptr("2020-03-10 14:00:00")})

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	want := time.Date(2020, 3, 10, 14, 0, 0, 0, loc)
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestNormalizePublished_UnparseableRawStringDefaultsToNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "UTC")

	got := ing.normalizePublished(&feeds.Entry{Published: feeds.Ptr("sometime last week")})
	assert.Equal(t, now, got)
}

func TestNormalizePublished_DSTAmbiguityResolvesToStandardTime(t *testing.T) {
	now := time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)
	ing := fixedNowIngester(t, now, "America/New_York")

	// 2024-11-03 01:30 occurs twice in New York; the later, EST
	// instant (06:30 UTC) is the canonical pick.
	got := ing.normalizePublished(&feeds.Entry{Published: feeds.Ptr("2024-11-03 01:30:00")})

	want := time.Date(2024, 11, 3, 6, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func TestResolveAmbiguity_LeavesUnambiguousTimesAlone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	plain := time.Date(2024, 7, 1, 10, 0, 0, 0, loc)
	assert.Equal(t, plain, resolveAmbiguity(plain))
}
