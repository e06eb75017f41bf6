package imagestore

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/google/uuid"
	"github.com/logue-fm/logue/config"
	"go.uber.org/zap"
)

// namespace prefixes every stored cover image key.
const namespace = "images"

// Fetcher downloads a cover image declared by a feed and stores it
// under a collision-resistant name, retiring the previous asset so
// repeated polls don't accumulate orphans.
type Fetcher struct {
	cfg       *config.Config
	log       *zap.Logger
	store     Store
	transport http.RoundTripper
}

func NewFetcher(cfg *config.Config, log *zap.Logger, store Store, transport http.RoundTripper) *Fetcher {
	return &Fetcher{cfg, log, store, transport}
}

// FetchAndStore downloads imageURL and returns the stored reference.
// Any failure — transport, non-2xx, storage write — is soft: it logs
// and returns "", leaving the caller's previous reference in place.
// previousRef, when it exists on the backend, is deleted best-effort
// before the new asset is written.
func (f *Fetcher) FetchAndStore(ctx context.Context, imageURL, previousRef string) string {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.FetchTimeout())
	defer cancel()

	var buf bytes.Buffer
	err := requests.URL(imageURL).
		Transport(f.transport).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		f.log.Sugar().Warnw("Failed to fetch cover image", "url", imageURL, "err", err)
		return ""
	}

	if previousRef != "" && f.store.Exists(previousRef) {
		if err := f.store.Delete(previousRef); err != nil {
			f.log.Sugar().Warnw("Failed to delete previous cover image", "ref", previousRef, "err", err)
		}
	}

	key := path.Join(namespace, UniqueName(imageURL))
	ref, err := f.store.Put(key, buf.Bytes())
	if err != nil {
		f.log.Sugar().Warnw("Failed to store cover image", "key", key, "err", err)
		return ""
	}
	return ref
}

// DeleteRef removes a stored asset, used when its owning channel is
// deleted. Best-effort like the poll-time cleanup.
func (f *Fetcher) DeleteRef(ref string) {
	if ref == "" || !f.store.Exists(ref) {
		return
	}
	if err := f.store.Delete(ref); err != nil {
		f.log.Sugar().Warnw("Failed to delete cover image", "ref", ref, "err", err)
	}
}

// UniqueName builds a collision-resistant file name: a random token
// plus the source URL's extension, with any query-string suffix
// stripped from the extension.
func UniqueName(imageURL string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")

	ext := path.Ext(path.Base(imageURL))
	if i := strings.Index(ext, "?"); i >= 0 {
		ext = ext[:i]
	}
	return name + ext
}
