package feeds

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/logue-fm/logue/config"
	"github.com/mmcdole/gofeed"
)

const userAgent = "logue/1.0 (+https://github.com/logue-fm/logue)"

// Source fetches remote syndication documents and adapts the parser's
// output into the optional-field Document shape.
type Source struct {
	cfg       *config.Config
	transport http.RoundTripper
}

func NewSource(cfg *config.Config, transport http.RoundTripper) *Source {
	return &Source{cfg, transport}
}

// Fetch downloads and parses feedURL. A transport failure returns an
// error; a payload that fetched fine but failed to parse returns a
// Document with ParseError set, so the validator can report it as
// malformed rather than unreachable.
func (s *Source) Fetch(ctx context.Context, feedURL string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout())
	defer cancel()

	var body string
	err := requests.URL(feedURL).
		UserAgent(userAgent).
		Transport(s.transport).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}

	return s.Parse(feedURL, body), nil
}

// Parse adapts a raw payload into a Document.
func (s *Source) Parse(feedURL, body string) *Document {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return &Document{FeedURL: feedURL, ParseError: err.Error()}
	}

	doc := &Document{
		FeedURL:     feedURL,
		Title:       optional(parsed.Title),
		Link:        optional(parsed.Link),
		Description: optional(parsed.Description),
	}

	// The parser does not surface per-field type attributes, so we
	// carry the syndication defaults: titles are plain text,
	// descriptions are markup.
	if doc.Title != nil {
		doc.TitleType = optional(TypePlainText)
	}
	if doc.Description != nil {
		doc.DescriptionType = optional(TypeHTML)
	}

	if parsed.Author != nil {
		doc.Author = optional(parsed.Author.Name)
	}
	if doc.Author == nil && parsed.ITunesExt != nil {
		doc.Author = optional(parsed.ITunesExt.Author)
	}

	if parsed.Image != nil {
		doc.ImageURL = optional(parsed.Image.URL)
	}
	if doc.ImageURL == nil && parsed.ITunesExt != nil {
		doc.ImageURL = optional(parsed.ITunesExt.Image)
	}

	for _, item := range parsed.Items {
		doc.Entries = append(doc.Entries, adaptEntry(item))
	}
	return doc
}

func adaptEntry(item *gofeed.Item) *Entry {
	entry := &Entry{
		Title:           optional(item.Title),
		Link:            optional(item.Link),
		Description:     optional(item.Description),
		Published:       optional(item.Published),
		PublishedParsed: item.PublishedParsed,
	}

	if entry.Title != nil {
		entry.TitleType = optional(TypePlainText)
	}
	if entry.Description != nil {
		entry.DescriptionType = optional(TypeHTML)
	}
	if item.ITunesExt != nil {
		entry.Duration = optional(item.ITunesExt.Duration)
	}

	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		entry.Links = append(entry.Links, Link{Href: enc.URL, Type: enc.Type})
	}
	return entry
}
