// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional .env file, an optional YAML file and
//   FLATBOARD_* environment variables.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/flatboard/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the metrics listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// UsersFile is the path of the flat-file store.
	UsersFile string `koanf:"users_file"`

	// AtomicRewrite writes each rewrite to a temp file and renames it over the
	// store. Disabling it truncates and rewrites in place.
	AtomicRewrite bool `koanf:"atomic_rewrite"`

	// StartingLevel is the level assigned to every skill of a new record.
	StartingLevel int `koanf:"starting_level"`

	// MobHealthbarDefault is the healthbar mode used for new, migrated and
	// repaired records.
	MobHealthbarDefault string `koanf:"mob_healthbar_default"`

	// LeaderboardRefresh is the minimum time between leaderboard rebuilds.
	LeaderboardRefresh time.Duration `koanf:"leaderboard_refresh"`

	// PurgeAfter removes records not seen for this long. Zero disables the
	// periodic stale purge.
	PurgeAfter time.Duration `koanf:"purge_after"`

	// PurgeInterval is how often the daemon runs maintenance purges.
	PurgeInterval time.Duration `koanf:"purge_interval"`

	// PurgePowerless also drops records whose skills are all zero during maintenance.
	PurgePowerless bool `koanf:"purge_powerless"`

	// TruncateSkills clamps stored levels to LevelCaps during the structure check.
	TruncateSkills bool `koanf:"truncate_skills"`

	// LevelCaps maps lower-case skill names to their maximum level.
	LevelCaps map[string]int `koanf:"level_caps"`

	// ProgressInterval is the number of records between conversion progress logs.
	ProgressInterval int `koanf:"progress_interval"`

	// BoltPath, when set, is the destination database for the convert command.
	BoltPath string `koanf:"bolt_path"`

	// RedisAddr, when set, mirrors leaderboards into Redis on convert.
	RedisAddr string `koanf:"redis_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		UsersFile:           "data/flatfile/users.db",
		AtomicRewrite:       true,
		StartingLevel:       0,
		MobHealthbarDefault: string(model.HealthbarHearts),
		LeaderboardRefresh:  10 * time.Minute,
		PurgeAfter:          0,
		PurgeInterval:       time.Hour,
		ProgressInterval:    200,
		LevelCaps:           map[string]int{},
	}
}

// Validate checks value ranges and enum symbols.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UsersFile) == "" {
		return fmt.Errorf("%w: users_file must not be empty", ErrInvalidConfig)
	}
	if c.StartingLevel < 0 {
		return fmt.Errorf("%w: starting_level must not be negative", ErrInvalidConfig)
	}
	if _, ok := model.ParseHealthbarType(c.MobHealthbarDefault); !ok {
		return fmt.Errorf("%w: unknown mob_healthbar_default %q", ErrInvalidConfig, c.MobHealthbarDefault)
	}
	if c.LeaderboardRefresh < 0 || c.PurgeAfter < 0 || c.PurgeInterval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	for name, limit := range c.LevelCaps {
		s, ok := model.ParseSkill(name)
		if !ok || s == model.PowerLevel || s.IsChild() {
			return fmt.Errorf("%w: level_caps has unknown skill %q", ErrInvalidConfig, name)
		}
		if limit < 0 {
			return fmt.Errorf("%w: level cap for %s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Healthbar returns the configured default healthbar mode.
func (c *Config) Healthbar() model.HealthbarType {
	h, ok := model.ParseHealthbarType(c.MobHealthbarDefault)
	if !ok {
		return model.HealthbarHearts
	}
	return h
}

// Caps resolves LevelCaps into a per-skill table. Skills without a cap get -1.
func (c *Config) Caps() [model.SkillCount]int {
	var caps [model.SkillCount]int
	for i := range caps {
		caps[i] = -1
	}
	for name, limit := range c.LevelCaps {
		if s, ok := model.ParseSkill(name); ok && s.Valid() {
			caps[s] = limit
		}
	}
	return caps
}
