// Command pollfeeds re-polls every known channel once and exits.
// Intended to be run from cron; individual channel failures are logged
// and do not affect the exit status.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/imagestore"
	"github.com/logue-fm/logue/lib/ingest"
	"github.com/logue-fm/logue/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	verbose := flag.Bool("verbose", false, "print progress on the command line")
	flag.Parse()

	if err := run(context.Background(), *verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, verbose bool) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := newConfig(log)

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	transport := http.DefaultTransport
	store := newStore(cfg, log)
	images := imagestore.NewFetcher(cfg, log, store, transport)
	source := feeds.NewSource(cfg, transport)
	ingester := ingest.NewIngester(cfg, log, db, source, images)

	var channels models.Channels
	if err := db.Where("active = ?", true).Find(&channels).Error; err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	start := time.Now().UTC()
	if verbose {
		fmt.Printf("[%s] %d channels to process..\n", start.Format(time.DateTime), len(channels))
	}

	for i, channel := range channels {
		if verbose {
			fmt.Printf("(%d/%d) Processing channels\n", i+1, len(channels))
		}
		report := ingester.PollFeed(ctx, channel.FeedURL)
		if !report.Success() {
			log.Sugar().Warnw("Channel poll aborted", "url", channel.FeedURL, "reason", report.Reason)
		}
	}

	end := time.Now().UTC()
	fmt.Printf("[%s] pollfeeds completed successfully\n", end.Format(time.DateTime))
	log.Sugar().Infow("pollfeeds completed", "channels", len(channels), "elapsed_msecs", int(end.Sub(start).Milliseconds()))
	return nil
}

func newConfig(log *zap.Logger) *config.Config {
	return config.NewConfig(nopLifecycle{}, log)
}

func newStore(cfg *config.Config, log *zap.Logger) imagestore.Store {
	return imagestore.NewStore(nopLifecycle{}, cfg, log)
}

// nopLifecycle satisfies fx.Lifecycle for constructors reused outside
// the fx application; this command has no long-lived components.
type nopLifecycle struct{}

func (nopLifecycle) Append(fx.Hook) {}
