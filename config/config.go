package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env            string `env:"ENVIRONMENT"`
	ServerPort     int    `env:"SERVER_PORT" envDefault:"8080"`
	BasicAuthCreds string `env:"BASIC_AUTH_CREDS"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"logue.sqlite"`

	// MediaRoot backs the local image store; the S3 bucket takes over
	// in production when set.
	MediaRoot string `env:"MEDIA_ROOT" envDefault:"media"`
	S3        struct {
		Bucket string `env:"S3_BUCKET"`
		Region string `env:"S3_REGION" envDefault:"us-west-1"`
	}

	// TimeZone localizes feed publish dates that carry no zone of
	// their own.
	TimeZone         string `env:"TIME_ZONE" envDefault:"UTC"`
	FetchTimeoutSecs int    `env:"FETCH_TIMEOUT_SECS" envDefault:"30"`

	log     *zap.Logger
	creds   map[string]string
	loc     *time.Location
	locOnce sync.Once
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	env.Parse(cfg)

	creds, err := cfg.parseCreds()
	if err != nil {
		if cfg.Env != "production" {
			cfg.log.Sugar().Infof("%s (auth is disabled outside production)", err)
		} else {
			cfg.log.Sugar().Panic(err)
		}
	}
	cfg.creds = creds

	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		cfg.log.Sugar().Infof("unknown TIME_ZONE %q, falling back to UTC", cfg.TimeZone)
	}
	cfg.Location() // resolve the zone before any poll goroutines do

	return cfg
}

func (cfg *Config) GetCreds() map[string]string {
	return cfg.creds
}

// Location is the zone used when localizing naive publish dates.
// Falls back to UTC when TIME_ZONE is unset or unknown. Safe for
// concurrent use: batch polls reach this from several goroutines.
func (cfg *Config) Location() *time.Location {
	cfg.locOnce.Do(func() {
		loc, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.loc = loc
	})
	return cfg.loc
}

func (cfg *Config) FetchTimeout() time.Duration {
	return time.Duration(cfg.FetchTimeoutSecs) * time.Second
}

func (cfg *Config) parseCreds() (map[string]string, error) {
	if cfg.BasicAuthCreds == "" {
		return nil, errors.New("BASIC_AUTH_CREDS envvar must be populated")
	}

	creds := strings.Split(cfg.BasicAuthCreds, ",")
	result := make(map[string]string)
	for _, cred := range creds {
		userPass := strings.Split(cred, ":")
		if len(userPass) != 2 {
			return nil, fmt.Errorf("failed to parse '%s', each credential should be delimited by a colon -- user1:pass1,user2:pass2", cred)
		}

		user, pass := userPass[0], userPass[1]
		result[strings.Trim(user, " ")] = strings.Trim(pass, " ")
	}

	return result, nil
}
