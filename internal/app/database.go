// Package service provides the Database façade over the flat-file record
// store and its leaderboard.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/adapters/repository"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
)

// DefaultProgressInterval is the number of records between conversion progress logs.
const DefaultProgressInterval = 200

// Database stores one record per player in a flat file. Every operation is
// a transaction on the file lock; the leaderboard reads through the same lock.
type Database struct {
	path string

	atomicRewrite    bool
	startingLevel    int
	healthbar        model.HealthbarType
	caps             *[model.SkillCount]int
	refreshInterval  time.Duration
	progressInterval int

	now      func() time.Time
	log      logger.Logger
	lastSeen LastSeenProvider
	upgrades UpgradeTracker
	backfill Backfiller

	store    *flatfile.Store
	pipeline *flatfile.Pipeline
	board    *repository.Leaderboard
}

var (
	_ Destination       = (*Database)(nil)
	_ repository.Source = (*Database)(nil)
)

// Open prepares the store file, checks and repairs its structure, warms the
// leaderboard and starts the identity backfill when it is still pending.
func Open(ctx context.Context, opts ...Option) (*Database, error) {
	d := &Database{
		atomicRewrite:    true,
		healthbar:        model.HealthbarHearts,
		refreshInterval:  repository.DefaultRefreshInterval,
		progressInterval: DefaultProgressInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if strings.TrimSpace(d.path) == "" {
		return nil, ErrNoUsersFile
	}
	if d.log == nil {
		d.log = logger.Get().Named("database")
	}

	d.store = flatfile.NewStore(d.path,
		flatfile.WithAtomicRewrite(d.atomicRewrite),
		flatfile.WithLogger(d.log.Named("filestore")),
	)
	d.pipeline = &flatfile.Pipeline{
		Migrator: flatfile.Migrator{
			DefaultHealthbar: d.healthbar,
			Caps:             d.caps,
		},
		Validator: flatfile.Validator{
			Now:              d.now,
			DefaultHealthbar: d.healthbar,
		},
		Log: d.log.Named("pipeline"),
	}
	d.board = repository.NewLeaderboard(d,
		repository.WithRefreshInterval(d.refreshInterval),
		repository.WithClock(d.now),
		repository.WithLogger(d.log.Named("leaderboard")),
	)

	if err := d.checkStructure(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructureCheck, err)
	}

	if _, err := d.board.Refresh(ctx); err != nil {
		d.log.Warn(ctx, "initial leaderboard build failed", logger.Error(err))
	}

	if d.upgrades != nil && d.backfill != nil && d.upgrades.ShouldUpgrade(UpgradeAddUUIDs) {
		names := d.ListNamesForBackfill(ctx)
		d.log.Info(ctx, "starting identity backfill", logger.Int("records", len(names)))
		d.backfill.Start(ctx, names)
	}

	d.log.Info(ctx, "flat-file database opened",
		logger.String("path", d.path),
		logger.Bool("atomicRewrite", d.atomicRewrite),
		logger.String("healthbar", string(d.healthbar)),
	)
	return d, nil
}

// Path returns the store file path.
func (d *Database) Path() string {
	return d.path
}

// Leaderboard exposes the ranking index, e.g. to start background refreshes.
func (d *Database) Leaderboard() *repository.Leaderboard {
	return d.board
}

// Close stops background leaderboard refreshes.
func (d *Database) Close() error {
	return d.board.Close()
}

// ScanRecords streams every readable record in file order. fn runs under the
// store lock and must not call back into the Database.
func (d *Database) ScanRecords(ctx context.Context, fn func(model.Record)) error {
	return d.store.View(ctx, func(lines []string) error {
		for _, line := range lines {
			if line == "" {
				continue
			}
			dec, err := d.pipeline.Process(ctx, line)
			if err != nil {
				continue
			}
			fn(dec.Record)
		}
		return nil
	})
}

// identity reads the username and raw UUID column of a line without
// validating anything else.
func identity(line string) (name, id string) {
	line = strings.TrimSuffix(strings.TrimRight(line, "\r\n"), flatfile.Separator)
	fields := strings.Split(line, flatfile.Separator)
	name = fields[0]
	if len(fields) > flatfile.FieldUUID {
		id = fields[flatfile.FieldUUID]
	}
	return name, id
}
