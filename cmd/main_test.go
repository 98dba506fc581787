package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/elobattle/internal/config"
	"github.com/okian/elobattle/internal/domain/model"
	"github.com/okian/elobattle/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const seed = `
items:
  - {id: alien, title: Alien, genres: [Horror]}
  - {id: heat, title: Heat, genres: [Crime]}
  - {id: jaws, title: Jaws, genres: [Horror]}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	t.Setenv("ELO_DB_DSN", filepath.Join(dir, "elo.db"))
	t.Setenv("ELO_CATALOG_SEED", seedPath)
	t.Setenv("ELO_RANDOM_SEED", "42")
	t.Setenv("ELO_MAX_LEADERBOARD_LIMIT", "20")

	cfg, err := config.Load(context.Background())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestServerEndToEnd(t *testing.T) {
	convey.Convey("Given a service built from environment configuration", t, func() {
		cfg := testConfig(t)
		ctx := context.Background()
		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When a rater fetches a matchup and judges it", func() {
			resp, err := http.Get(srv.URL + "/matchup")
			convey.So(err, convey.ShouldBeNil)
			var m struct {
				MatchupID string `json:"matchup_id"`
				A         struct {
					ItemID string `json:"item_id"`
				} `json:"item_a"`
				B struct {
					ItemID string `json:"item_id"`
				} `json:"item_b"`
			}
			convey.So(json.NewDecoder(resp.Body).Decode(&m), convey.ShouldBeNil)
			_ = resp.Body.Close()

			body := `{"matchup_id":"` + m.MatchupID + `","item_a":"` + m.A.ItemID + `","item_b":"` + m.B.ItemID + `","outcome":"A Much Better"}`
			post, err := http.Post(srv.URL+"/outcomes", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			_ = post.Body.Close()

			convey.Convey("Then the winner should lead the leaderboard", func() {
				convey.So(post.StatusCode, convey.ShouldEqual, http.StatusAccepted)

				var top []struct {
					ItemID string  `json:"item_id"`
					Rating float64 `json:"rating"`
				}
				deadline := time.Now().Add(3 * time.Second)
				for time.Now().Before(deadline) {
					lb, err := http.Get(srv.URL + "/leaderboard?limit=3")
					convey.So(err, convey.ShouldBeNil)
					_ = json.NewDecoder(lb.Body).Decode(&top)
					_ = lb.Body.Close()
					if len(top) > 0 && top[0].Rating > 1200 {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(len(top), convey.ShouldEqual, 3)
				convey.So(top[0].ItemID, convey.ShouldEqual, m.A.ItemID)
				convey.So(top[0].Rating, convey.ShouldEqual, 1232)
			})
		})

		convey.Convey("When the docs and metrics are requested", func() {
			docs, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = docs.Body.Close()
			health, err := http.Get(srv.URL + "/healthz")
			convey.So(err, convey.ShouldBeNil)
			_ = health.Body.Close()

			convey.Convey("Then both should be served", func() {
				convey.So(docs.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(health.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the leaderboard limit exceeds the configured maximum", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=21")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it should be rejected", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestRunReset(t *testing.T) {
	convey.Convey("Given a store with recorded rounds", t, func() {
		cfg := testConfig(t)
		ctx := context.Background()

		svc := newService(cfg, logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		m, err := svc.NextMatchup(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Apply(ctx, matchupOutcome(m.ID, m.A.ItemID, m.B.ItemID)), convey.ShouldBeNil)
		convey.So(svc.Stop(ctx), convey.ShouldBeNil)

		convey.Convey("When the reset entry point runs", func() {
			again := newService(cfg, logger.Get())
			convey.So(again.Start(ctx), convey.ShouldBeNil)
			convey.So(runReset(ctx, again, time.Second), convey.ShouldBeNil)

			convey.Convey("Then a fresh start should see baseline ratings", func() {
				check := newService(cfg, logger.Get())
				convey.So(check.Start(ctx), convey.ShouldBeNil)
				defer func() { _ = check.Stop(ctx) }()

				top, err := check.TopN(ctx, 3)
				convey.So(err, convey.ShouldBeNil)
				for _, e := range top {
					convey.So(e.Rating, convey.ShouldEqual, cfg.DefaultRating)
					convey.So(e.Comparisons, convey.ShouldEqual, 0)
				}
			})
		})
	})
}

func matchupOutcome(id, a, b string) model.Comparison {
	return model.Comparison{MatchupID: id, ItemA: a, ItemB: b, Outcome: "A Much Better", ScoreA: 1, RecordedAt: time.Now()}
}
