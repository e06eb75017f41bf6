package ingest

import "fmt"

// Reason tags why a poll aborted or an entry was skipped.
type Reason string

const (
	ReasonFetchFailed         Reason = "fetch_failed"
	ReasonMalformedDocument   Reason = "malformed_document"
	ReasonMissingChannelField Reason = "missing_channel_field"
	ReasonNoPlayableEntry     Reason = "no_playable_entry"
	ReasonStorageFailed       Reason = "storage_failed"
)

// Abort terminates one channel's poll. It is never fatal to the batch;
// the poller logs it and moves on to the next channel.
type Abort struct {
	Reason  Reason
	Message string
}

func (a *Abort) Error() string {
	return fmt.Sprintf("%s: %s", a.Reason, a.Message)
}

type Status string

const (
	StatusDone    Status = "done"
	StatusAborted Status = "aborted"
)

// Report is the outcome of one poll: terminal status, abort reason if
// any, and per-entry counts for observability.
type Report struct {
	FeedURL   string
	Status    Status
	Reason    Reason
	ChannelID uint

	Created  int
	Skipped  int
	Warnings []string
}

func (r *Report) Success() bool {
	return r.Status == StatusDone
}

func (r *Report) skip(format string, args ...any) {
	r.Skipped++
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func abortedReport(feedURL string, abort *Abort) *Report {
	return &Report{
		FeedURL:  feedURL,
		Status:   StatusAborted,
		Reason:   abort.Reason,
		Warnings: []string{abort.Message},
	}
}
