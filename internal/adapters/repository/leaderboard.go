package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/logger"
	"github.com/okian/flatboard/pkg/metrics"
)

// DefaultRefreshInterval is the cooldown between two rebuilds.
const DefaultRefreshInterval = 10 * time.Minute

// Snapshot is an immutable set of sorted rankings. It is replaced as a whole
// on every rebuild.
type Snapshot struct {
	// Skills holds one list per skill ordinal. Child skills have none.
	Skills     [model.SkillCount][]types.PlayerStat
	Power      []types.PlayerStat
	ComputedAt time.Time
}

// List returns the ranking for skill, or the power level ranking for
// model.PowerLevel.
func (s *Snapshot) List(skill model.Skill) ([]types.PlayerStat, error) {
	if skill == model.PowerLevel {
		return s.Power, nil
	}
	if !skill.Valid() || skill.IsChild() {
		return nil, ErrUnknownSkill
	}
	return s.Skills[skill], nil
}

// Leaderboard caches rankings built from a Source.
type Leaderboard struct {
	src      Source
	interval time.Duration
	now      func() time.Time
	log      logger.Logger

	// refreshMu keeps concurrent refreshes from rescanning twice.
	refreshMu sync.Mutex
	snapshot  atomic.Pointer[Snapshot]
	stale     atomic.Bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

var _ Index = (*Leaderboard)(nil)

// NewLeaderboard creates an empty leaderboard over src. Nothing is scanned
// until the first Refresh.
func NewLeaderboard(src Source, opts ...Option) *Leaderboard {
	l := &Leaderboard{
		src:      src,
		interval: DefaultRefreshInterval,
		now:      time.Now,
		log:      logger.Get().Named("leaderboard"),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Refresh rebuilds the snapshot when none exists, when it was invalidated or
// when it is older than the refresh interval.
func (l *Leaderboard) Refresh(ctx context.Context) (bool, error) {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	if snap := l.snapshot.Load(); snap != nil && !l.stale.Load() {
		if l.now().Sub(snap.ComputedAt) < l.interval {
			return false, nil
		}
	}
	if err := l.rebuild(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ForceRefresh rebuilds regardless of the cooldown.
func (l *Leaderboard) ForceRefresh(ctx context.Context) error {
	l.Invalidate()
	_, err := l.Refresh(ctx)
	return err
}

// Invalidate makes the next Refresh rebuild. Existing readers keep the old
// snapshot until then.
func (l *Leaderboard) Invalidate() {
	l.stale.Store(true)
}

func (l *Leaderboard) rebuild(ctx context.Context) error {
	if l.src == nil {
		return ErrNoSource
	}
	start := time.Now()
	// Cleared before the scan so an Invalidate racing it forces another rebuild.
	l.stale.Store(false)

	next := &Snapshot{}
	for _, s := range model.NonChildSkills() {
		next.Skills[s] = []types.PlayerStat{}
	}
	next.Power = []types.PlayerStat{}

	err := l.src.ScanRecords(ctx, func(r model.Record) {
		if r.LeaderboardIgnored != 0 {
			return
		}
		for _, s := range model.NonChildSkills() {
			next.Skills[s] = append(next.Skills[s], types.PlayerStat{Name: r.Name, Value: r.Levels[s]})
		}
		next.Power = append(next.Power, types.PlayerStat{Name: r.Name, Value: r.PowerLevel()})
	})
	if err != nil {
		l.stale.Store(true)
		l.log.Error(ctx, "leaderboard rebuild failed", logger.Error(err))
		return err
	}

	for _, s := range model.NonChildSkills() {
		sortDescending(next.Skills[s])
	}
	sortDescending(next.Power)
	next.ComputedAt = l.now()

	l.snapshot.Store(next)

	metrics.RecordLeaderboardRebuild(
		float64(time.Since(start).Microseconds())/1000,
		float64(next.ComputedAt.Unix()),
		len(next.Power),
	)
	l.log.Debug(ctx, "leaderboard rebuilt", logger.Int("players", len(next.Power)))
	return nil
}

// sortDescending orders by value, highest first. Equal values keep scan order.
func sortDescending(stats []types.PlayerStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Value > stats[j].Value
	})
}

// Snapshot returns the current snapshot, or nil before the first rebuild.
func (l *Leaderboard) Snapshot() *Snapshot {
	return l.snapshot.Load()
}

func (l *Leaderboard) list(skill model.Skill) []types.PlayerStat {
	snap := l.snapshot.Load()
	if snap == nil {
		return nil
	}
	stats, err := snap.List(skill)
	if err != nil {
		return nil
	}
	return stats
}

// Rank returns the position of the first case-insensitive match of name.
func (l *Leaderboard) Rank(skill model.Skill, name string) (int, bool) {
	return position(l.list(skill), name)
}

func position(stats []types.PlayerStat, name string) (int, bool) {
	for i, st := range stats {
		if strings.EqualFold(st.Name, name) {
			return i + 1, true
		}
	}
	return 0, false
}

// Ranks looks name up in every list. Lists without the name are omitted.
func (l *Leaderboard) Ranks(name string) map[model.Skill]int {
	out := make(map[model.Skill]int)
	snap := l.snapshot.Load()
	if snap == nil {
		return out
	}
	for _, s := range model.NonChildSkills() {
		if pos, ok := position(snap.Skills[s], name); ok {
			out[s] = pos
		}
	}
	if pos, ok := position(snap.Power, name); ok {
		out[model.PowerLevel] = pos
	}
	return out
}

// Page returns entries [(page-1)*size, page*size) clamped to the list.
// Pages below 1 are treated as 1. The result is a copy.
func (l *Leaderboard) Page(skill model.Skill, page, size int) []types.PlayerStat {
	stats := l.list(skill)
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		return []types.PlayerStat{}
	}
	// Compared before multiplying so huge pages cannot wrap around.
	if len(stats) == 0 || page-1 > (len(stats)-1)/size {
		return []types.PlayerStat{}
	}
	from := (page - 1) * size
	to := from + size
	if to > len(stats) {
		to = len(stats)
	}
	out := make([]types.PlayerStat, to-from)
	copy(out, stats[from:to])
	return out
}

// Start refreshes in the background every interval until ctx ends or Close
// is called.
func (l *Leaderboard) Start(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.stopChan:
				return
			case <-ticker.C:
				if _, err := l.Refresh(ctx); err != nil {
					l.log.Warn(ctx, "scheduled leaderboard refresh failed", logger.Error(err))
				}
			}
		}
	}()
}

// Close stops the background refresher.
func (l *Leaderboard) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}
