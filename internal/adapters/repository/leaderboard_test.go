package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeSource struct {
	mu      sync.Mutex
	records []model.Record
	scans   atomic.Int32
	err     error
}

func (f *fakeSource) ScanRecords(_ context.Context, fn func(model.Record)) error {
	f.scans.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, r := range f.records {
		fn(r)
	}
	return nil
}

func player(name string, mining int) model.Record {
	r := model.NewRecord(name, uuid.Nil, 0, model.HealthbarHearts)
	r.Levels[model.Mining] = mining
	return r
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLeaderboard_SortAndRank(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{records: []model.Record{
		player("ten", 10),
		player("twenty", 20),
	}}
	lb := NewLeaderboard(src)

	if rebuilt, err := lb.Refresh(ctx); err != nil || !rebuilt {
		t.Fatalf("first refresh: rebuilt=%v err=%v", rebuilt, err)
	}

	page := lb.Page(model.Mining, 1, 10)
	want := []types.PlayerStat{{Name: "twenty", Value: 20}, {Name: "ten", Value: 10}}
	if len(page) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(page))
	}
	for i := range want {
		if page[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], page[i])
		}
	}

	if rank, ok := lb.Rank(model.Mining, "TWENTY"); !ok || rank != 1 {
		t.Errorf("expected rank 1 for twenty, got %d (%v)", rank, ok)
	}
	if rank, ok := lb.Rank(model.Mining, "ten"); !ok || rank != 2 {
		t.Errorf("expected rank 2 for ten, got %d (%v)", rank, ok)
	}
	if _, ok := lb.Rank(model.Mining, "nobody"); ok {
		t.Error("expected no rank for absent player")
	}

	ranks := lb.Ranks("twenty")
	if ranks[model.Mining] != 1 || ranks[model.PowerLevel] != 1 {
		t.Errorf("unexpected ranks %v", ranks)
	}
	if _, ok := lb.Ranks("nobody")[model.Mining]; ok {
		t.Error("absent player should have no ranks")
	}
}

func TestLeaderboard_StableTies(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{records: []model.Record{
		player("first", 5),
		player("top", 9),
		player("second", 5),
		player("third", 5),
	}}
	lb := NewLeaderboard(src)
	if _, err := lb.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	page := lb.Page(model.Mining, 1, 10)
	order := []string{"top", "first", "second", "third"}
	for i, name := range order {
		if page[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, page[i].Name)
		}
	}
}

func TestLeaderboard_PowerLevel(t *testing.T) {
	ctx := context.Background()
	a := player("a", 1)
	a.Levels[model.Tridents] = 50
	a.Levels[model.Crossbows] = 50
	b := player("b", 60)
	hidden := player("hidden", 1000)
	hidden.LeaderboardIgnored = 1

	lb := NewLeaderboard(&fakeSource{records: []model.Record{b, a, hidden}})
	if _, err := lb.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	power := lb.Page(model.PowerLevel, 1, 10)
	if len(power) != 2 {
		t.Fatalf("expected 2 ranked players, got %d", len(power))
	}
	if power[0].Name != "a" || power[0].Value != 101 {
		t.Errorf("expected a with 101, got %+v", power[0])
	}
	if _, ok := lb.Rank(model.Mining, "hidden"); ok {
		t.Error("ignored player must not be ranked")
	}
	if lb.Page(model.Salvage, 1, 10) == nil || len(lb.Page(model.Salvage, 1, 10)) != 0 {
		t.Error("child skill should have an empty list")
	}
}

func TestLeaderboard_Pagination(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	for i := 0; i < 25; i++ {
		src.records = append(src.records, player(string(rune('a'+i)), 100-i))
	}
	lb := NewLeaderboard(src)
	if _, err := lb.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	first := lb.Page(model.Mining, 1, 10)
	for _, p := range []int{0, -3} {
		got := lb.Page(model.Mining, p, 10)
		if len(got) != len(first) || got[0] != first[0] {
			t.Errorf("page %d should equal page 1", p)
		}
	}
	if got := lb.Page(model.Mining, 3, 10); len(got) != 5 {
		t.Errorf("expected 5 entries on last page, got %d", len(got))
	}
	if got := lb.Page(model.Mining, 4, 10); got == nil || len(got) != 0 {
		t.Errorf("expected empty slice past the end, got %v", got)
	}
	if got := lb.Page(model.Mining, 1<<62+1, 4); got == nil || len(got) != 0 {
		t.Errorf("expected empty slice for a page far past the end, got %v", got)
	}
	if got := lb.Page(model.Mining, math.MaxInt, math.MaxInt); len(got) != 0 {
		t.Errorf("expected empty slice for maximal page and size, got %v", got)
	}
	if got := lb.Page(model.Mining, 1, math.MaxInt); len(got) != 25 {
		t.Errorf("expected the whole list for a maximal size, got %d entries", len(got))
	}
	if got := lb.Page(model.Mining, 1, 0); len(got) != 0 {
		t.Errorf("expected empty slice for zero size, got %v", got)
	}

	got := lb.Page(model.Mining, 1, 1)
	got[0].Value = -1
	if lb.Page(model.Mining, 1, 1)[0].Value == -1 {
		t.Error("pages must not alias the snapshot")
	}
}

func TestLeaderboard_Cooldown(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Unix(1700000000, 0)}
	src := &fakeSource{records: []model.Record{player("a", 1)}}
	lb := NewLeaderboard(src, WithClock(c.Now), WithRefreshInterval(10*time.Minute))

	if rebuilt, _ := lb.Refresh(ctx); !rebuilt {
		t.Fatal("first refresh must rebuild")
	}
	src.mu.Lock()
	src.records = append(src.records, player("b", 2))
	src.mu.Unlock()

	c.Advance(9 * time.Minute)
	if rebuilt, _ := lb.Refresh(ctx); rebuilt {
		t.Error("refresh inside the cooldown must be a no-op")
	}
	if _, ok := lb.Rank(model.Mining, "b"); ok {
		t.Error("stale snapshot should not contain b yet")
	}

	c.Advance(time.Minute)
	if rebuilt, _ := lb.Refresh(ctx); !rebuilt {
		t.Error("refresh after the cooldown must rebuild")
	}
	if rank, ok := lb.Rank(model.Mining, "b"); !ok || rank != 1 {
		t.Errorf("expected b at rank 1, got %d (%v)", rank, ok)
	}

	lb.Invalidate()
	if rebuilt, _ := lb.Refresh(ctx); !rebuilt {
		t.Error("refresh after invalidate must rebuild")
	}
	if scans := src.scans.Load(); scans != 3 {
		t.Errorf("expected 3 scans, got %d", scans)
	}
}

// mutatingSource drops its last record and invalidates the leaderboard right
// after the scan it serves, as a concurrent RemoveRecord would.
type mutatingSource struct {
	fakeSource
	lb   *Leaderboard
	once sync.Once
}

func (m *mutatingSource) ScanRecords(ctx context.Context, fn func(model.Record)) error {
	if err := m.fakeSource.ScanRecords(ctx, fn); err != nil {
		return err
	}
	m.once.Do(func() {
		m.mu.Lock()
		m.records = m.records[:len(m.records)-1]
		m.mu.Unlock()
		m.lb.Invalidate()
	})
	return nil
}

func TestLeaderboard_InvalidateDuringRebuild(t *testing.T) {
	ctx := context.Background()
	src := &mutatingSource{fakeSource: fakeSource{records: []model.Record{
		player("a", 3),
		player("b", 2),
	}}}
	lb := NewLeaderboard(src, WithRefreshInterval(time.Hour))
	src.lb = lb

	if rebuilt, err := lb.Refresh(ctx); err != nil || !rebuilt {
		t.Fatalf("first refresh: rebuilt=%v err=%v", rebuilt, err)
	}
	if got := lb.Page(model.Mining, 1, 10); len(got) != 2 {
		t.Fatalf("expected the scanned 2 entries, got %v", got)
	}

	rebuilt, err := lb.Refresh(ctx)
	if err != nil || !rebuilt {
		t.Fatalf("invalidation during the scan was lost: rebuilt=%v err=%v", rebuilt, err)
	}
	if got := lb.Page(model.Mining, 1, 10); len(got) != 1 || got[0].Name != "a" {
		t.Errorf("expected only a after the rebuild, got %v", got)
	}
}

func TestLeaderboard_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewLeaderboard(nil).Refresh(ctx); !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	boom := errors.New("disk gone")
	src := &fakeSource{records: []model.Record{player("a", 1)}}
	lb := NewLeaderboard(src)
	if _, err := lb.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	src.err = boom
	if err := lb.ForceRefresh(ctx); !errors.Is(err, boom) {
		t.Errorf("expected scan error, got %v", err)
	}
	if _, ok := lb.Rank(model.Mining, "a"); !ok {
		t.Error("failed rebuild must keep the previous snapshot")
	}

	if _, err := lb.Snapshot().List(model.Smelting); !errors.Is(err, ErrUnknownSkill) {
		t.Errorf("expected ErrUnknownSkill, got %v", err)
	}
	if got := NewLeaderboard(src).Page(model.Mining, 1, 10); len(got) != 0 {
		t.Error("empty leaderboard should return no entries")
	}
}

func TestLeaderboard_ConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{records: []model.Record{player("a", 1)}}
	lb := NewLeaderboard(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lb.Refresh(ctx)
		}()
	}
	wg.Wait()

	if scans := src.scans.Load(); scans != 1 {
		t.Errorf("expected a single scan, got %d", scans)
	}
}

func TestLeaderboard_StartAndClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{records: []model.Record{player("a", 1)}}
	lb := NewLeaderboard(src, WithRefreshInterval(0))
	lb.Start(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for lb.Snapshot() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := lb.Close(); err != nil {
		t.Fatal(err)
	}
	if lb.Snapshot() == nil {
		t.Error("background refresh never ran")
	}
	_ = lb.Close()
}
