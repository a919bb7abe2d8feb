package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/flatboard/internal/adapters/boltstore"
	"github.com/okian/flatboard/internal/adapters/flatfile"
	service "github.com/okian/flatboard/internal/app"
	"github.com/okian/flatboard/internal/config"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// seedStore writes one record per mining level; level zero records are powerless.
func seedStore(t *testing.T, levels map[string]int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.db")
	var data []byte
	for name, lvl := range levels {
		r := model.NewRecord(name, uuid.New(), 0, model.HealthbarHearts)
		r.Levels[model.Mining] = lvl
		r.LastLogin = time.Now().Unix()
		data = append(data, flatfile.Encode(r)+flatfile.Terminator...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openStore(t *testing.T, cfg *config.Config) *service.Database {
	t.Helper()
	db, err := service.Open(context.Background(), service.WithConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConfigLoading(t *testing.T) {
	convey.Convey("Given flatboard environment variables", t, func() {
		t.Setenv("FLATBOARD_ADDR", ":8080")
		t.Setenv("FLATBOARD_USERS_FILE", "/tmp/users.db")
		t.Setenv("FLATBOARD_PURGE_AFTER", "720h")

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.UsersFile, convey.ShouldEqual, "/tmp/users.db")
			convey.So(cfg.PurgeAfter, convey.ShouldEqual, 720*time.Hour)
		})
	})
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a store with powerless records", t, func() {
		cfg := config.New()
		cfg.UsersFile = seedStore(t, map[string]int{"Alice": 10, "Zero": 0, "Nil": 0})

		convey.Convey("When powerless purging is enabled", func() {
			cfg.PurgePowerless = true
			db := openStore(t, cfg)

			convey.Convey("Then one pass removes them", func() {
				convey.So(maintain(ctx, db, cfg), convey.ShouldEqual, 2)
				convey.So(db.ListAllNames(ctx), convey.ShouldResemble, []string{"Alice"})
			})
		})

		convey.Convey("When no purge is configured", func() {
			db := openStore(t, cfg)

			convey.Convey("Then nothing is removed", func() {
				convey.So(maintain(ctx, db, cfg), convey.ShouldEqual, 0)
				convey.So(db.ListAllNames(ctx), convey.ShouldHaveLength, 3)
			})

			convey.Convey("Then the scheduler returns at once", func() {
				done := make(chan struct{})
				go func() {
					startMaintenance(ctx, db, cfg)
					close(done)
				}()
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("maintenance loop did not return")
				}
			})
		})
	})
}

func TestConvert(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a store and both destinations configured", t, func() {
		mr := miniredis.RunT(t)
		cfg := config.New()
		cfg.UsersFile = seedStore(t, map[string]int{"Alice": 30, "Bob": 20})
		cfg.BoltPath = filepath.Join(t.TempDir(), "records.bolt")
		cfg.RedisAddr = mr.Addr()
		db := openStore(t, cfg)

		convey.So(convert(ctx, db, cfg), convey.ShouldBeNil)

		convey.Convey("Then the bolt database holds every record", func() {
			dst, err := boltstore.Open(cfg.BoltPath)
			convey.So(err, convey.ShouldBeNil)
			defer dst.Close()
			n, err := dst.Count()
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 2)
		})

		convey.Convey("Then redis holds the rankings", func() {
			score, err := mr.ZScore("flatboard:leaderboard:mining", "Alice")
			convey.So(err, convey.ShouldBeNil)
			convey.So(score, convey.ShouldEqual, 30)
		})
	})

	convey.Convey("Given an unreachable redis", t, func() {
		cfg := config.New()
		cfg.UsersFile = seedStore(t, map[string]int{"Alice": 1})
		cfg.RedisAddr = "127.0.0.1:1"
		db := openStore(t, cfg)

		convey.Convey("Then convert reports the error", func() {
			convey.So(convert(ctx, db, cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the daemon mux", t, func() {
		cfg := config.New()
		cfg.UsersFile = seedStore(t, map[string]int{"Alice": 5})
		mux := newMux(context.Background(), openStore(t, cfg))

		for _, target := range []string{"/healthz", "/metrics", "/leaderboard/mining", "/rank/Alice"} {
			req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}
	})
}
