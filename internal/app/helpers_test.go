package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	service "github.com/okian/flatboard/internal/app"
	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
	"github.com/okian/flatboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var (
	aliceID = uuid.MustParse("3f1b2c4d-0000-4000-8000-000000000001")
	bobID   = uuid.MustParse("3f1b2c4d-0000-4000-8000-000000000002")
	carolID = uuid.MustParse("3f1b2c4d-0000-4000-8000-000000000003")
)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Unix(1_800_000_000, 0)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func record(name string, id uuid.UUID, mining int, lastLogin int64) model.Record {
	r := model.NewRecord(name, id, 0, model.HealthbarHearts)
	r.Levels[model.Mining] = mining
	r.LastLogin = lastLogin
	return r
}

func line(r model.Record) string {
	return flatfile.Encode(r)
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\r\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(data), "\r\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func fieldsOf(l string) []string {
	return strings.Split(strings.TrimSuffix(l, ":"), ":")
}

func openDB(t *testing.T, path string, c *clock, opts ...service.Option) *service.Database {
	t.Helper()
	base := []service.Option{
		service.WithUsersFile(path),
		service.WithClock(c.Now),
		service.WithRefreshInterval(0),
	}
	db, err := service.Open(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "flatfile", "users.db")
}

func seededPath(t *testing.T, lines ...string) string {
	path := filepath.Join(t.TempDir(), "users.db")
	writeLines(t, path, lines...)
	return path
}

type fakeUpgrades struct {
	mu        sync.Mutex
	pending   map[service.UpgradeType]bool
	completed []service.UpgradeType
}

func (f *fakeUpgrades) ShouldUpgrade(u service.UpgradeType) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[u]
}

func (f *fakeUpgrades) SetUpgradeCompleted(u service.UpgradeType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, u)
	f.completed = append(f.completed, u)
}

type fakeBackfill struct {
	names []string
	calls int
}

func (f *fakeBackfill) Start(_ context.Context, names []string) {
	f.calls++
	f.names = names
}

type fakeLastSeen map[string]time.Time

func (f fakeLastSeen) LastSeen(_ context.Context, name string) (time.Time, bool) {
	t, ok := f[name]
	return t, ok
}

// rejecting accepts every record except the named one.
type rejecting struct {
	reject string
	saved  []string
}

func (r *rejecting) SaveRecord(_ context.Context, rec model.Record) bool {
	if rec.Name == r.reject {
		return false
	}
	r.saved = append(r.saved, rec.Name)
	return true
}

func value(stats []types.PlayerStat, name string) int {
	for _, s := range stats {
		if s.Name == name {
			return s.Value
		}
	}
	return -1
}
