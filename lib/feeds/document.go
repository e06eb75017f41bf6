package feeds

import (
	"strings"
	"time"
)

// Document is the parsed representation of one remote feed. Every
// field the remote may omit is a pointer, so "absent" and "empty
// string" stay distinguishable all the way into the reconcilers.
type Document struct {
	FeedURL string

	// ParseError carries the parser's structural error when the
	// remote payload could not be understood as a feed.
	ParseError string

	Title           *string
	TitleType       *string
	Link            *string
	Author          *string
	Description     *string
	DescriptionType *string
	ImageURL        *string

	Entries []*Entry
}

func (d *Document) Malformed() bool {
	return d.ParseError != ""
}

// Entry is one item of a feed document, a candidate episode.
type Entry struct {
	Title           *string
	TitleType       *string
	Link            *string
	Description     *string
	DescriptionType *string
	Published       *string
	PublishedParsed *time.Time
	Duration        *string

	Links []Link
}

// Link is an attached resource; Type is the declared MIME type, used
// to find the playable audio enclosure.
type Link struct {
	Href string
	Type string
}

// AudioURL returns the href of the first link declaring an audio MIME
// type, matching the podcast-only policy at both channel and entry
// level.
func (e *Entry) AudioURL() (string, bool) {
	for _, link := range e.Links {
		if IsAudioType(link.Type) {
			return link.Href, true
		}
	}
	return "", false
}

// IsAudioType reports whether a declared MIME type marks a playable
// audio asset ("audio/mpeg" and friends).
func IsAudioType(mime string) bool {
	return strings.HasPrefix(mime, "audio/")
}

const (
	TypePlainText = "text/plain"
	TypeHTML      = "text/html"
)

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// String dereferences an optional field, returning "" when absent.
func String(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr is a convenience for building documents by hand (tests, mostly).
func Ptr(s string) *string { return &s }
