package boltstore

import (
	"time"

	"github.com/okian/flatboard/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets the logger used for per-record failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithOpenTimeout bounds how long Open waits for the file lock held by
// another process.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithNoSync skips fsync after each commit. Only suitable for bulk imports
// that can be rerun.
func WithNoSync(noSync bool) Option {
	return func(s *Store) {
		s.noSync = noSync
	}
}
