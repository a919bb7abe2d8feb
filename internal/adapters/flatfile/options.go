package flatfile

import (
	"os"

	"github.com/okian/flatboard/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithAtomicRewrite selects between writing rewrites to a temp file renamed
// over the store (true, the default) and truncating the store in place.
func WithAtomicRewrite(enabled bool) Option {
	return func(s *Store) {
		s.atomicRewrite = enabled
	}
}

// WithLogger sets the logger used for I/O failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithFileMode sets the permissions used when creating the store file.
func WithFileMode(mode os.FileMode) Option {
	return func(s *Store) {
		if mode != 0 {
			s.perm = mode
		}
	}
}
