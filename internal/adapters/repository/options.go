package repository

import (
	"time"

	"github.com/okian/postboard/pkg/logger"
)

// Option applies a configuration option to Open.
type Option func(*openOptions)

type openOptions struct {
	logger         logger.Logger
	slowQuery      time.Duration
	connectRetries int
	connectBackoff time.Duration
	maxOpenConns   int
	maxIdleConns   int
}

// WithLogger routes GORM's SQL logging through l.
func WithLogger(l logger.Logger) Option {
	return func(o *openOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSlowQueryThreshold logs queries slower than d at warn level.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *openOptions) {
		if d >= 0 {
			o.slowQuery = d
		}
	}
}

// WithConnectRetry pings the database up to retries extra times with
// exponential backoff starting at backoff before giving up.
func WithConnectRetry(retries int, backoff time.Duration) Option {
	return func(o *openOptions) {
		if retries >= 0 {
			o.connectRetries = retries
		}
		if backoff > 0 {
			o.connectBackoff = backoff
		}
	}
}

// WithPool sets database/sql pool limits. Zero keeps the database/sql default.
// SQLite stores always run on a single open connection.
func WithPool(maxOpen, maxIdle int) Option {
	return func(o *openOptions) {
		if maxOpen > 0 {
			o.maxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			o.maxIdleConns = maxIdle
		}
	}
}
