package repository

import (
	"time"

	"github.com/okian/flatboard/pkg/logger"
)

// Option applies a configuration option to the Leaderboard.
type Option func(*Leaderboard)

// WithRefreshInterval sets the minimum age of a snapshot before Refresh
// rebuilds it.
func WithRefreshInterval(interval time.Duration) Option {
	return func(l *Leaderboard) {
		if interval >= 0 {
			l.interval = interval
		}
	}
}

// WithClock replaces time.Now for cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(l *Leaderboard) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for rebuild failures.
func WithLogger(log logger.Logger) Option {
	return func(l *Leaderboard) {
		if log != nil {
			l.log = log
		}
	}
}
