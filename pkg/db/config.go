package db

import "time"

// Config holds PostgreSQL pool settings for the records and template store.
// An empty ConnectionString means no database is configured.
type Config struct {
	ConnectionString string `env:"DATABASE_URL"`
	MigrationsTable  string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"postoffice_migrations"`

	HealthCheckPeriod time.Duration `env:"DATABASE_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"5s"`

	// Workers of the dispatch pool and the River queue share this pool.
	MaxConns int32 `env:"DATABASE_MAX_CONNS" envDefault:"20"`
	MinConns int32 `env:"DATABASE_MIN_CONNS" envDefault:"2"`
}
