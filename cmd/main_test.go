package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/config"
	"github.com/okian/civicrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const testRankings = `[
  {"bioguideId": "S000001", "name": "Ann Adams", "state": "NY", "party": "Democrat", "powerScore": 80},
  {"bioguideId": "S000002", "name": "Bo Baker", "state": "TX", "party": "Republican", "powerScore": 22}
]`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "senators-rankings.json"), []byte(testRankings), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.DataDir = dir
	cfg.WatchData = false
	return cfg
}

func get(mux http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMainConfig(t *testing.T) {
	convey.Convey("Given CIVICRANK_* environment variables", t, func() {
		_ = os.Setenv("CIVICRANK_ADDR", ":8181")
		_ = os.Setenv("CIVICRANK_MAX_LEADERBOARD_LIMIT", "50")
		_ = os.Setenv("CIVICRANK_WATCH_DATA", "false")
		defer func() {
			_ = os.Unsetenv("CIVICRANK_ADDR")
			_ = os.Unsetenv("CIVICRANK_MAX_LEADERBOARD_LIMIT")
			_ = os.Unsetenv("CIVICRANK_WATCH_DATA")
		}()

		convey.Convey("Then configuration picks them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 50)
			convey.So(cfg.WatchData, convey.ShouldBeFalse)
		})

		convey.Convey("And logging initializes from it", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			cfg.LogLevel = "loud"
			convey.So(initLogging(context.Background(), cfg), convey.ShouldBeNil)
			convey.So(logger.Get(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an empty address", t, func() {
		_ = os.Setenv("CIVICRANK_ADDR", "")
		defer func() { _ = os.Unsetenv("CIVICRANK_ADDR") }()

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainRoutes(t *testing.T) {
	convey.Convey("Given a started service and the full mux", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		svc := newService(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, cfg, svc)

		convey.Convey("Then the API answers", func() {
			rec := get(mux, "/api/leaderboard?chamber=senate&limit=1")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			var entries []map[string]any
			convey.So(json.Unmarshal(rec.Body.Bytes(), &entries), convey.ShouldBeNil)
			convey.So(entries, convey.ShouldHaveLength, 1)
			convey.So(entries[0]["bioguideId"], convey.ShouldEqual, "S000001")

			convey.So(get(mux, "/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get(mux, "/api/legislators/S000002").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("And the site, data files and docs are served", func() {
			convey.So(get(mux, "/").Code, convey.ShouldEqual, http.StatusOK)

			rec := get(mux, "/data/senators-rankings.json")
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(rec.Header().Get("Cache-Control"), convey.ShouldEqual, "no-cache")

			convey.So(get(mux, "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get(mux, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMainRun(t *testing.T) {
	convey.Convey("Given a running server", t, func() {
		cfg := testConfig(t)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- run(ctx, cfg) }()

		convey.Convey("When the context is cancelled", func() {
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("server did not stop")
				}
			})
		})
	})

	convey.Convey("Given a malformed data file", t, func() {
		cfg := testConfig(t)
		convey.So(os.WriteFile(filepath.Join(cfg.DataDir, "events.json"), []byte("{"), 0o644), convey.ShouldBeNil)

		convey.Convey("Then run fails before listening", func() {
			convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
		})
	})
}
