// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/postoffice/pkg/db"
	"github.com/dmitrymomot/postoffice/pkg/logger"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
	"github.com/dmitrymomot/postoffice/pkg/mailer/resend"
	"github.com/dmitrymomot/postoffice/pkg/mailer/ses"
	"github.com/dmitrymomot/postoffice/pkg/redis"
	"github.com/dmitrymomot/postoffice/pkg/storage"
)

var (
	ErrParse               = errors.New("config: failed to parse environment")
	ErrUnknownTransport    = errors.New("config: unknown mail transport")
	ErrUnknownSpool        = errors.New("config: unknown spool kind")
	ErrDurableNeedsDB      = errors.New("config: durable dispatch requires DATABASE_URL")
	ErrObjectSpoolNoBucket = errors.New("config: s3 spool requires S3_BUCKET")
)

const (
	SpoolFile = "file"
	SpoolS3   = "s3"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTP
	Dispatch Dispatch
	Spool    Spool
	Spam     Spam
	Logger   logger.Config
	DB       db.Config
	Redis    redis.Config
	Mailer   mailer.Config
	Resend   resend.Config
	SES      ses.Config
	Storage  storage.Config
}

// HTTP configures the API server.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"2m"`
	HealthTimeout   time.Duration `env:"HEALTH_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes    int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Dispatch configures delayed sends.
type Dispatch struct {
	Workers       int           `env:"DISPATCH_WORKERS" envDefault:"10"`
	Durable       bool          `env:"DISPATCH_DURABLE" envDefault:"false"`
	SweepSchedule string        `env:"SPOOL_SWEEP_SCHEDULE" envDefault:"*/15 * * * *"`
	SweepAge      time.Duration `env:"SPOOL_SWEEP_AGE" envDefault:"24h"`
}

// Spool configures attachment downloads.
type Spool struct {
	Kind         string        `env:"SPOOL_KIND" envDefault:"file"`
	Dir          string        `env:"SPOOL_DIR"`
	Prefix       string        `env:"SPOOL_PREFIX" envDefault:"spool"`
	MaxTransfer  int64         `env:"ATTACHMENT_MAX_TRANSFER" envDefault:"67108864"`
	FetchTimeout time.Duration `env:"ATTACHMENT_FETCH_TIMEOUT" envDefault:"30s"`
}

// Spam configures the recipient blocklist.
type Spam struct {
	RecentFailureTTL time.Duration `env:"RECENT_FAILURE_TTL" envDefault:"1h"`
	BlockedDomains   []string      `env:"BLOCKED_DOMAINS" envSeparator:","`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Join(ErrParse, err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, errors.Join(ErrParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	switch c.Mailer.Transport {
	case "stdout", "resend", "ses":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Mailer.Transport)
	}
	switch c.Spool.Kind {
	case SpoolFile:
	case SpoolS3:
		if c.Storage.Bucket == "" {
			return ErrObjectSpoolNoBucket
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSpool, c.Spool.Kind)
	}
	if c.Dispatch.Durable && c.DB.ConnectionString == "" {
		return ErrDurableNeedsDB
	}
	if _, err := mailer.ParseDuplicatePolicy(c.Mailer.TemplateDuplicates); err != nil {
		return err
	}
	return nil
}
