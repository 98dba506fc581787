package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/elobattle/internal/adapters/repository"
	"github.com/okian/elobattle/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openTestStore(t *testing.T, opts ...repository.Option) *repository.SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elo.db")
	s, err := repository.Open(context.Background(), repository.DriverSQLite, path, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCatalog() model.Catalog {
	return model.Catalog{
		"alien": {ID: "alien", Title: "Alien", Genres: []string{"Horror", "Sci-Fi"}, Rating: 1200},
		"heat":  {ID: "heat", Title: "Heat", Genres: []string{"Crime"}, Rating: 1200},
		"up":    {ID: "up", Title: "Up", Rating: 1200},
	}
}

func TestSQLStoreCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty sqlite store", t, func() {
		s := openTestStore(t)

		Convey("When loading the catalog", func() {
			cat, err := s.LoadCatalog(ctx)

			Convey("Then it should be empty", func() {
				So(err, ShouldBeNil)
				So(cat, ShouldBeEmpty)
				So(s.Driver(), ShouldEqual, repository.DriverSQLite)
			})
		})

		Convey("When saving a catalog and loading it back", func() {
			So(s.SaveCatalog(ctx, sampleCatalog()), ShouldBeNil)
			cat, err := s.LoadCatalog(ctx)

			Convey("Then every item should round trip", func() {
				So(err, ShouldBeNil)
				So(len(cat), ShouldEqual, 3)
				So(cat["alien"].Title, ShouldEqual, "Alien")
				So(cat["alien"].Genres, ShouldResemble, []string{"Horror", "Sci-Fi"})
				So(cat["up"].Genres, ShouldBeEmpty)
				So(cat["heat"].Rating, ShouldEqual, 1200)
			})
		})

		Convey("When saving the same item twice", func() {
			cat := sampleCatalog()
			So(s.SaveCatalog(ctx, cat), ShouldBeNil)
			updated := cat["heat"]
			updated.Rating = 1264
			updated.Comparisons, updated.Wins = 1, 1
			So(s.SaveCatalog(ctx, model.Catalog{"heat": updated}), ShouldBeNil)

			Convey("Then the second write should win", func() {
				got, err := s.LoadCatalog(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(got["heat"].Rating, ShouldEqual, 1264)
				So(got["heat"].Wins, ShouldEqual, 1)
			})
		})

		Convey("When the catalog is larger than one batch", func() {
			small := openTestStore(t, repository.WithBatchSize(7))
			big := make(model.Catalog)
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("m%03d", i)
				big[id] = model.Item{ID: id, Title: id, Rating: float64(1100 + i)}
			}
			So(small.SaveCatalog(ctx, big), ShouldBeNil)

			Convey("Then every batch should be written", func() {
				got, err := small.LoadCatalog(ctx)
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 50)
				So(got["m049"].Rating, ShouldEqual, 1149)
			})
		})
	})
}

func TestSQLStoreRounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		s := openTestStore(t)
		So(s.SaveCatalog(ctx, sampleCatalog()), ShouldBeNil)

		a := model.Item{ID: "alien", Title: "Alien", Genres: []string{"Horror", "Sci-Fi"}, Rating: 1232, Comparisons: 1, Wins: 1}
		b := model.Item{ID: "heat", Title: "Heat", Genres: []string{"Crime"}, Rating: 1168, Comparisons: 1, Losses: 1}
		c := model.Comparison{
			MatchupID:  "m-1",
			ItemA:      "alien",
			ItemB:      "heat",
			Outcome:    "A Much Better",
			ScoreA:     1,
			RecordedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		}

		Convey("When a round is recorded", func() {
			So(s.RecordRound(ctx, a, b, c), ShouldBeNil)

			Convey("Then both items and the log should be updated", func() {
				cat, err := s.LoadCatalog(ctx)
				So(err, ShouldBeNil)
				So(cat["alien"].Rating, ShouldEqual, 1232)
				So(cat["heat"].Losses, ShouldEqual, 1)
				n, err := s.CountComparisons(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("And recording the same matchup again should be refused", func() {
				a2 := a
				a2.Rating = 9999
				err := s.RecordRound(ctx, a2, b, c)
				So(errors.Is(err, repository.ErrDuplicateRound), ShouldBeTrue)

				cat, _ := s.LoadCatalog(ctx)
				So(cat["alien"].Rating, ShouldEqual, 1232)
			})
		})

		Convey("When the store is reset", func() {
			So(s.RecordRound(ctx, a, b, c), ShouldBeNil)
			So(s.Reset(ctx, 1500), ShouldBeNil)

			Convey("Then ratings, counters and the log should be cleared", func() {
				cat, err := s.LoadCatalog(ctx)
				So(err, ShouldBeNil)
				for _, it := range cat {
					So(it.Rating, ShouldEqual, 1500)
					So(it.Comparisons, ShouldEqual, 0)
					So(it.Wins+it.Losses+it.Draws, ShouldEqual, 0)
				}
				n, _ := s.CountComparisons(ctx)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)

			Convey("Then writes should fail", func() {
				So(errors.Is(s.RecordRound(ctx, a, b, c), repository.ErrClosed), ShouldBeTrue)
				So(errors.Is(s.Close(), repository.ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestSQLStorePersistence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store file written by one process", t, func() {
		path := filepath.Join(t.TempDir(), "elo.db")
		first, err := repository.Open(ctx, repository.DriverSQLite, path)
		So(err, ShouldBeNil)
		So(first.SaveCatalog(ctx, sampleCatalog()), ShouldBeNil)
		So(first.Close(), ShouldBeNil)

		Convey("When it is reopened", func() {
			second, err := repository.Open(ctx, repository.DriverSQLite, path)
			So(err, ShouldBeNil)
			defer second.Close()

			Convey("Then the catalog should still be there", func() {
				cat, err := second.LoadCatalog(ctx)
				So(err, ShouldBeNil)
				So(len(cat), ShouldEqual, 3)
			})
		})
	})

	Convey("Given an unknown driver", t, func() {
		_, err := repository.Open(ctx, "mysql", "whatever")

		Convey("Then opening should fail", func() {
			So(errors.Is(err, repository.ErrUnsupportedDriver), ShouldBeTrue)
		})
	})
}
