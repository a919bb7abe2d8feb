package service

import (
	"context"
	"strconv"
	"time"

	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/domain/dedupe"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
	"github.com/okian/flatboard/pkg/metrics"
)

// Purge kinds reported to metrics.
const (
	purgeKindPredicate = "predicate"
	purgeKindPowerless = "powerless"
	purgeKindStale     = "stale"
)

// invalidOldUsername replaces the name of a duplicate record that still has
// an identity, so the backfill can recover it later.
const invalidOldUsername = "_INVALID_OLD_USERNAME_'"

// PurgeWhere removes every record whose levels satisfy pred and returns the
// number removed. Unreadable lines are dropped without being counted.
func (d *Database) PurgeWhere(ctx context.Context, pred func(levels model.SkillLevels) bool) int {
	return d.purge(ctx, purgeKindPredicate, pred)
}

// PurgePowerless removes every record whose non-child skills are all zero.
func (d *Database) PurgePowerless(ctx context.Context) int {
	return d.purge(ctx, purgeKindPowerless, model.SkillLevels.AllZero)
}

func (d *Database) purge(ctx context.Context, kind string, pred func(model.SkillLevels) bool) int {
	removed := 0
	kept := 0
	err := d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if line == "" {
				continue
			}
			dec, err := d.pipeline.Process(ctx, line)
			if err != nil {
				continue
			}
			if pred(dec.Record.Levels) {
				removed++
				continue
			}
			out = append(out, line)
		}
		kept = len(out)
		return out, nil
	})
	if err != nil {
		d.log.Error(ctx, "purge failed", logger.String("kind", kind), logger.Error(err))
		return 0
	}
	d.purged(ctx, kind, removed, kept)
	return removed
}

// PurgeStaleSince removes records not seen for longer than cutoff. The stored
// last login is used when set; otherwise the LastSeenProvider is asked and the
// answer is written into the surviving record. Without a provider, records
// with an unknown last login are kept.
func (d *Database) PurgeStaleSince(ctx context.Context, cutoff time.Duration) int {
	now := d.now()
	removed := 0
	kept := 0
	err := d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if line == "" {
				continue
			}
			dec, err := d.pipeline.Process(ctx, line)
			if err != nil {
				continue
			}

			seen := dec.Record.LastLogin
			derived := false
			if seen == 0 {
				if d.lastSeen == nil {
					out = append(out, line)
					continue
				}
				if t, ok := d.lastSeen.LastSeen(ctx, dec.Record.Name); ok && !t.IsZero() {
					seen = t.Unix()
				}
				derived = true
			}

			if now.Sub(time.Unix(seen, 0)) > cutoff {
				removed++
				continue
			}
			if derived {
				fields := dec.Fields.Clone()
				fields[flatfile.FieldLastLogin] = strconv.FormatInt(seen, 10)
				out = append(out, flatfile.Join(fields))
				continue
			}
			out = append(out, line)
		}
		kept = len(out)
		return out, nil
	})
	if err != nil {
		d.log.Error(ctx, "stale purge failed", logger.Error(err))
		return 0
	}
	d.purged(ctx, purgeKindStale, removed, kept)
	return removed
}

func (d *Database) purged(ctx context.Context, kind string, removed, kept int) {
	metrics.RecordPurged(kind, removed)
	metrics.UpdateStoredRecords(kept)
	if removed > 0 {
		d.board.Invalidate()
	}
	d.log.Info(ctx, "purged records",
		logger.String("kind", kind),
		logger.Int("removed", removed),
		logger.Int("kept", kept),
	)
}

// CheckStructure migrates, repairs and deduplicates every stored record and
// rewrites the file. It creates the file when missing and reports whether
// the store is usable.
func (d *Database) CheckStructure(ctx context.Context) bool {
	if err := d.checkStructure(ctx); err != nil {
		d.log.Error(ctx, "structure check failed", logger.Error(err))
		return false
	}
	return true
}

func (d *Database) checkStructure(ctx context.Context) error {
	created, err := d.store.Ensure(ctx)
	if err != nil {
		return err
	}
	if created {
		d.log.Info(ctx, "created empty store", logger.String("path", d.path))
		metrics.UpdateStoredRecords(0)
		return nil
	}

	names := dedupe.NewInMemoryDeduper(dedupe.WithFoldCase())
	ids := dedupe.NewInMemoryDeduper(dedupe.WithFoldCase())
	kept := 0

	err = d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if line == "" {
				continue
			}
			raw, err := d.pipeline.Decode(ctx, line)
			if err != nil {
				continue
			}

			renamed := false
			if names.SeenAndRecord(ctx, raw.Name()) {
				if id := raw.UUIDField(); id == "" || flatfile.IsNullUUID(id) {
					metrics.RecordDropped(metrics.DropDuplicate)
					d.log.Warn(ctx, "dropping duplicate record without uuid", logger.String("name", raw.Name()))
					continue
				}
				d.log.Warn(ctx, "renaming duplicate record",
					logger.String("name", raw.Name()),
					logger.String("uuid", raw.UUIDField()),
				)
				raw = raw.Clone()
				raw[flatfile.FieldUsername] = invalidOldUsername
				renamed = true
			}

			dec, err := d.pipeline.Upgrade(ctx, raw)
			if err != nil {
				continue
			}
			if dec.Record.HasUUID() && ids.SeenAndRecord(ctx, dec.Record.UUID.String()) {
				metrics.RecordDropped(metrics.DropDuplicate)
				d.log.Warn(ctx, "dropping record with duplicate uuid",
					logger.String("name", dec.Record.Name),
					logger.String("uuid", dec.Record.UUID.String()),
				)
				continue
			}

			d.reportUpgrade(ctx, dec, renamed)
			out = append(out, dec.Line())
		}
		kept = len(out)
		return out, nil
	})
	if err != nil {
		return err
	}

	metrics.UpdateStoredRecords(kept)
	d.board.Invalidate()
	if d.upgrades != nil {
		for _, u := range structureUpgrades {
			d.upgrades.SetUpgradeCompleted(u)
		}
	}
	return nil
}

func (d *Database) reportUpgrade(ctx context.Context, dec flatfile.Decoded, renamed bool) {
	name := dec.Record.Name
	if dec.Migration.OldVersion != "" {
		metrics.RecordMigrated(dec.Migration.OldVersion)
		d.log.Info(ctx, "updated record from before version",
			logger.String("name", name),
			logger.String("version", dec.Migration.OldVersion),
		)
	}
	for _, s := range dec.Migration.Truncated {
		d.log.Info(ctx, "truncated skill level",
			logger.String("name", name),
			logger.String("skill", s.String()),
		)
	}
	if dec.Repair.Corrupted {
		metrics.RecordRepaired()
		d.log.Info(ctx, "repaired corrupted record",
			logger.String("name", name),
			logger.Any("fields", dec.Repair.Indices),
		)
	}
	if renamed {
		d.log.Debug(ctx, "duplicate kept under placeholder name", logger.String("uuid", dec.Record.UUID.String()))
	}
}

// ResetHealthbars sets the healthbar mode of every record to the configured
// default.
func (d *Database) ResetHealthbars(ctx context.Context) bool {
	mode := string(d.healthbar)
	err := d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if line == "" {
				continue
			}
			dec, err := d.pipeline.Process(ctx, line)
			if err != nil {
				continue
			}
			fields := dec.Fields.Clone()
			fields[flatfile.FieldHealthbar] = mode
			out = append(out, flatfile.Join(fields))
		}
		return out, nil
	})
	if err != nil {
		d.log.Error(ctx, "failed to reset healthbars", logger.Error(err))
		return false
	}
	d.log.Info(ctx, "reset mob healthbars", logger.String("mode", mode))
	return true
}
