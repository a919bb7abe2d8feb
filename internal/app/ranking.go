package service

import (
	"context"
	"time"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/logger"
	"github.com/okian/flatboard/pkg/metrics"
)

// ReadLeaderboardPage returns one page of the ranking for skill, or of the
// power level ranking for model.PowerLevel. Pages start at 1. The ranking is
// rebuilt first when the refresh interval has passed.
func (d *Database) ReadLeaderboardPage(ctx context.Context, skill model.Skill, page, size int) []types.PlayerStat {
	d.refresh(ctx)
	return d.board.Page(skill, page, size)
}

// ReadRanks returns every 1-based position of name, keyed by skill and by
// model.PowerLevel. Lists that do not contain name are absent.
func (d *Database) ReadRanks(ctx context.Context, name string) map[model.Skill]int {
	d.refresh(ctx)
	return d.board.Ranks(name)
}

func (d *Database) refresh(ctx context.Context) {
	if _, err := d.board.Refresh(ctx); err != nil {
		d.log.Warn(ctx, "leaderboard refresh failed, serving previous snapshot", logger.Error(err))
	}
}

// ConvertTo copies every readable record into dst and returns how many dst
// accepted. Failures are logged and skipped. Records are read in one
// transaction and written after the lock is released, so dst may be another
// Database, or this one.
func (d *Database) ConvertTo(ctx context.Context, dst Destination) int {
	var records []model.Record
	if err := d.ScanRecords(ctx, func(r model.Record) {
		records = append(records, r)
	}); err != nil {
		d.log.Error(ctx, "failed to read records for conversion", logger.Error(err))
		return 0
	}

	start := time.Now()
	converted := 0
	for i, rec := range records {
		if ctx.Err() != nil {
			d.log.Warn(ctx, "conversion cancelled",
				logger.Int("converted", converted),
				logger.Int("total", len(records)),
			)
			break
		}
		ok := dst.SaveRecord(ctx, rec)
		metrics.RecordConverted(ok)
		if ok {
			converted++
		} else {
			d.log.Warn(ctx, "failed to convert record", logger.String("name", rec.Name))
		}
		if n := i + 1; n%d.progressInterval == 0 {
			elapsed := time.Since(start)
			d.log.Info(ctx, "conversion progress",
				logger.Int("processed", n),
				logger.Int("total", len(records)),
				logger.Duration("elapsed", elapsed),
				logger.Float64("perSecond", float64(n)/elapsed.Seconds()),
			)
		}
	}

	d.log.Info(ctx, "conversion finished",
		logger.Int("converted", converted),
		logger.Int("total", len(records)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return converted
}
