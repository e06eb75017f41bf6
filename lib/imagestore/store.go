package imagestore

import (
	"github.com/logue-fm/logue/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Store persists downloaded cover images. Local disk backs development
// runs; S3 takes over in production.
type Store interface {
	Put(path string, data []byte) (ref string, err error)
	Delete(ref string) error
	Exists(ref string) bool
}

func NewStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) Store {
	if cfg.Env == "production" && cfg.S3.Bucket != "" {
		store, err := NewS3Store(cfg.S3.Bucket, cfg.S3.Region)
		if err != nil {
			log.Sugar().Panicw("failed to init S3 image store", "err", err)
		}
		log.Sugar().Infow("Using S3 image store", "bucket", cfg.S3.Bucket)
		return store
	}

	log.Sugar().Infow("Using local image store", "root", cfg.MediaRoot)
	return NewLocalStore(cfg.MediaRoot)
}
