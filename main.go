package main

import (
	"net/http"
	"os"
	"time"

	"github.com/logue-fm/logue/app"
	"github.com/logue-fm/logue/config"
	"github.com/logue-fm/logue/lib"
	"github.com/logue-fm/logue/lib/feeds"
	"github.com/logue-fm/logue/lib/imagestore"
	"github.com/logue-fm/logue/lib/ingest"
	"github.com/logue-fm/logue/lib/poller"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func NewTransport() http.RoundTripper {
	return http.DefaultTransport
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),
		fx.Provide(NewTransport),

		fx.Provide(app.NewDatabase),
		fx.Provide(imagestore.NewStore),
		fx.Provide(imagestore.NewFetcher),
		fx.Provide(feeds.NewSource),
		fx.Provide(ingest.NewIngester),
		fx.Provide(lib.NewService),
		fx.Provide(poller.NewPoller),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*poller.Poller) {}),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
