package redis

import "errors"

var (
	ErrEmptyURL    = errors.New("redis: REDIS_URL is empty")
	ErrInvalidURL  = errors.New("redis: invalid connection url")
	ErrUnreachable = errors.New("redis: server unreachable")
	ErrUnhealthy   = errors.New("redis: ping failed")
)
