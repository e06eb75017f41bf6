package poller

import (
	"context"
	"sync"
	"time"

	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib/ingest"
	"github.com/logue-fm/logue/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var mu sync.Mutex

// Poller re-polls known channels on a schedule. Channels are
// independent, so each batch fans out to a bounded set of goroutines;
// one channel's abort never halts the others.
type Poller struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	ingester *ingest.Ingester

	mu          *sync.Mutex
	concurrency int
	cancel      context.CancelFunc

	wakeupInterval      time.Duration // interval to check for pollable channels
	channelPollInterval time.Duration // re-poll each channel after this long
}

func NewPoller(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, ingester *ingest.Ingester) *Poller {
	wakeupInterval := 5 * time.Minute
	channelPollInterval := 1 * time.Hour

	concurrency := 5

	poller := Poller{
		cfg, log, db, ingester,
		&mu, concurrency, nil,
		wakeupInterval, channelPollInterval,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go poller.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop poller")
			poller.Stop()
			return nil
		},
	})

	return &poller
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	ticker := time.NewTicker(p.wakeupInterval)

	for {
		select {
		case <-ctx.Done():
			// Locking here to wait for in-flight polls to finish
			p.mu.Lock()

			p.log.Sugar().Info("Poller stopped")
			return

		case wakeupTime := <-ticker.C:
			p.pollChannels(ctx, wakeupTime)
		}
	}
}

func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller) pollChannels(ctx context.Context, wakeupTime time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m := p.findChannelsForPoll(ctx, wakeupTime, p.pollBatch)

	if m.totalSelected == 0 {
		p.log.Sugar().Info("No channels to poll")
	} else {
		p.log.Sugar().Infow(
			"Polled channels",
			"total", m.totalSelected, "succeeded", m.succeeded, "aborted", m.aborted, "episodes_created", m.episodesCreated,
		)
	}

	elapsed := time.Now().UTC().Sub(wakeupTime)
	p.log.Sugar().Infow("Poller finished", "elapsed_msecs", int(elapsed.Milliseconds()))
}

type pollMetrics struct {
	totalSelected   int
	succeeded       int
	aborted         int
	episodesCreated int
}

func (m *pollMetrics) Add(other *pollMetrics) {
	m.succeeded += other.succeeded
	m.aborted += other.aborted
	m.episodesCreated += other.episodesCreated
}

func (p *Poller) findChannelsForPoll(
	ctx context.Context, wakeupTime time.Time,
	callbackPerBatch func(context.Context, models.Channels) *pollMetrics,
) *pollMetrics {
	lastPollCutoff := wakeupTime.Add(-p.channelPollInterval)

	var channels models.Channels
	var metrics = &pollMetrics{}
	p.db.
		Where("active = ?", true).
		Where("last_polled_at IS NULL OR last_polled_at <= ?", lastPollCutoff).
		FindInBatches(&channels, p.concurrency, func(tx *gorm.DB, batch int) error {
			batchMetrics := callbackPerBatch(ctx, channels)

			metrics.totalSelected += len(channels)
			metrics.Add(batchMetrics)

			return nil
		})

	return metrics
}

func (p *Poller) pollBatch(ctx context.Context, batch models.Channels) *pollMetrics {
	var wg sync.WaitGroup
	var batchMu sync.Mutex
	var metrics = &pollMetrics{}

	for _, channel := range batch {
		channel := channel
		wg.Add(1)

		go func() {
			defer wg.Done()
			report := p.ingester.PollFeed(ctx, channel.FeedURL)

			batchMu.Lock()
			defer batchMu.Unlock()
			if report.Success() {
				metrics.succeeded += 1
				metrics.episodesCreated += report.Created
			} else {
				metrics.aborted += 1
			}
		}()
	}

	wg.Wait()
	return metrics
}
