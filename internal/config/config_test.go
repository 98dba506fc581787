package config_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/elobattle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.DefaultRating, convey.ShouldEqual, 1200)
			convey.So(cfg.SelectionExponent, convey.ShouldEqual, 1.5)
			convey.So(cfg.RandomSeed, convey.ShouldEqual, 0)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 10*time.Second)
			convey.So(len(cfg.KTiers), convey.ShouldEqual, 3)
			convey.So(math.IsInf(cfg.KTiers[2].Threshold, 1), convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field each", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"unknown driver", func(c *config.Config) { c.DBDriver = "mysql" }},
			{"empty dsn", func(c *config.Config) { c.DBDSN = "" }},
			{"zero rating", func(c *config.Config) { c.DefaultRating = 0 }},
			{"nan rating", func(c *config.Config) { c.DefaultRating = math.NaN() }},
			{"negative exponent", func(c *config.Config) { c.SelectionExponent = -0.5 }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"zero leaderboard", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" should be rejected", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
