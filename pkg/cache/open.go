package cache

import (
	"context"

	"github.com/rs/zerolog"
)

// Options selects and configures the backend at startup.
type Options struct {
	Enabled   bool
	RedisURL  string
	Dir       string
	Namespace string
	ClientID  string
}

// Open picks a backend: Redis when reachable, else a SQLite file under
// Dir, else process memory. Open never fails; a disabled config yields a
// disabled cache.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) *Cache {
	logger = logger.With().Str("component", "cache").Logger()
	cacheOpts := []Option{WithClientID(opts.ClientID), WithLogger(logger)}

	if !opts.Enabled {
		logger.Info().Msg("cache disabled")
		return New(nil, cacheOpts...)
	}

	if opts.RedisURL != "" {
		backend, err := NewRedisBackend(ctx, opts.RedisURL, opts.Namespace)
		if err == nil {
			logger.Info().Str("backend", backend.Name()).Msg("cache enabled")
			return New(backend, cacheOpts...)
		}
		logger.Warn().Err(err).Msg("redis unavailable, using file cache")
	}

	if opts.Dir != "" {
		backend, err := NewSQLiteBackend(opts.Dir)
		if err == nil {
			logger.Info().Str("backend", backend.Name()).Str("path", backend.Path()).Msg("cache enabled")
			return New(backend, cacheOpts...)
		}
		logger.Warn().Err(err).Msg("file cache unavailable, using memory cache")
	}

	return New(NewMemoryBackend(), cacheOpts...)
}
