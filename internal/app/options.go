package service

import (
	"time"

	"github.com/okian/flatboard/internal/config"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
)

// Option applies a configuration option to the Database.
type Option func(*Database)

// WithConfig applies every store-related setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(d *Database) {
		if cfg == nil {
			return
		}
		d.path = cfg.UsersFile
		d.atomicRewrite = cfg.AtomicRewrite
		d.startingLevel = cfg.StartingLevel
		d.healthbar = cfg.Healthbar()
		d.refreshInterval = cfg.LeaderboardRefresh
		if cfg.ProgressInterval > 0 {
			d.progressInterval = cfg.ProgressInterval
		}
		if cfg.TruncateSkills {
			caps := cfg.Caps()
			d.caps = &caps
		} else {
			d.caps = nil
		}
	}
}

// WithUsersFile sets the path of the flat-file store.
func WithUsersFile(path string) Option {
	return func(d *Database) {
		if path != "" {
			d.path = path
		}
	}
}

// WithStartingLevel sets the level given to every skill of a new record.
func WithStartingLevel(level int) Option {
	return func(d *Database) {
		if level >= 0 {
			d.startingLevel = level
		}
	}
}

// WithHealthbarDefault sets the healthbar mode for new, migrated and repaired records.
func WithHealthbarDefault(h model.HealthbarType) Option {
	return func(d *Database) {
		if _, ok := model.ParseHealthbarType(string(h)); ok {
			d.healthbar = h
		}
	}
}

// WithAtomicRewrite toggles temp-file-and-rename rewrites.
func WithAtomicRewrite(enabled bool) Option {
	return func(d *Database) {
		d.atomicRewrite = enabled
	}
}

// WithLevelCaps enables level truncation during the structure check. A
// negative cap leaves that skill unbounded.
func WithLevelCaps(caps [model.SkillCount]int) Option {
	return func(d *Database) {
		d.caps = &caps
	}
}

// WithRefreshInterval sets the leaderboard rebuild cooldown.
func WithRefreshInterval(interval time.Duration) Option {
	return func(d *Database) {
		if interval >= 0 {
			d.refreshInterval = interval
		}
	}
}

// WithProgressInterval sets how many records pass between conversion progress logs.
func WithProgressInterval(n int) Option {
	return func(d *Database) {
		if n > 0 {
			d.progressInterval = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Database) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets a custom logger for the database.
func WithLogger(log logger.Logger) Option {
	return func(d *Database) {
		if log != nil {
			d.log = log
		}
	}
}

// WithLastSeenProvider sets the lookup used by the stale purge for records
// without a stored last login.
func WithLastSeenProvider(p LastSeenProvider) Option {
	return func(d *Database) {
		d.lastSeen = p
	}
}

// WithUpgradeTracker sets the store of completed one-time upgrades.
func WithUpgradeTracker(t UpgradeTracker) Option {
	return func(d *Database) {
		d.upgrades = t
	}
}

// WithBackfiller sets the task started on open when identities still need
// to be assigned.
func WithBackfiller(b Backfiller) Option {
	return func(d *Database) {
		d.backfill = b
	}
}
