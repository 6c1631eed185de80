package db

import "errors"

var (
	ErrEmptyConnectionString = errors.New("db: DATABASE_URL is empty")
	ErrInvalidConfig         = errors.New("db: invalid pool configuration")
	ErrUnreachable           = errors.New("db: database unreachable")
	ErrUnhealthy             = errors.New("db: ping failed")
	ErrMigrationDialect      = errors.New("db: unsupported migration dialect")
	ErrMigrate               = errors.New("db: migration failed")
)
