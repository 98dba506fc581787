package model_test

import (
	"testing"

	model "github.com/okian/elobattle/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestItem(t *testing.T) {
	convey.Convey("Given an item", t, func() {
		convey.Convey("When its counters add up", func() {
			it := model.Item{ID: "heat", Rating: 1200, Comparisons: 5, Wins: 2, Losses: 2, Draws: 1}

			convey.Convey("Then it should be balanced", func() {
				convey.So(it.Balanced(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a counter is off by one", func() {
			it := model.Item{ID: "heat", Comparisons: 5, Wins: 2, Losses: 2}

			convey.Convey("Then it should not be balanced", func() {
				convey.So(it.Balanced(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When it has zero values", func() {
			convey.So(model.Item{}.Balanced(), convey.ShouldBeTrue)
		})
	})
}

func TestCatalogClone(t *testing.T) {
	convey.Convey("Given a catalog", t, func() {
		c := model.Catalog{
			"alien": {ID: "alien", Rating: 1250},
			"heat":  {ID: "heat", Rating: 1180},
		}

		convey.Convey("When it is cloned and the clone is modified", func() {
			clone := c.Clone()
			it := clone["alien"]
			it.Rating = 900
			clone["alien"] = it
			delete(clone, "heat")

			convey.Convey("Then the original should be untouched", func() {
				convey.So(c["alien"].Rating, convey.ShouldEqual, 1250)
				convey.So(c, convey.ShouldContainKey, "heat")
				convey.So(len(clone), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestOutcomes(t *testing.T) {
	convey.Convey("Given the quantized outcome levels", t, func() {
		convey.Convey("Then there should be five levels from 1.0 down to 0.0", func() {
			convey.So(len(model.Outcomes), convey.ShouldEqual, 5)
			convey.So(model.Outcomes[0].Score, convey.ShouldEqual, 1.0)
			convey.So(model.Outcomes[2].Score, convey.ShouldEqual, 0.5)
			convey.So(model.Outcomes[4].Score, convey.ShouldEqual, 0.0)
		})

		convey.Convey("When looking up a label with odd casing and spaces", func() {
			o, ok := model.OutcomeByLabel("  b slightly better ")

			convey.Convey("Then it should resolve to the 0.25 level", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(o.Score, convey.ShouldEqual, 0.25)
				convey.So(o.Label, convey.ShouldEqual, "B Slightly Better")
			})
		})

		convey.Convey("When looking up an unknown label", func() {
			_, ok := model.OutcomeByLabel("A Somewhat Better")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("When labelling scores", func() {
			convey.So(model.LabelForScore(0.5), convey.ShouldEqual, "Even / Tie")
			convey.So(model.LabelForScore(0.75), convey.ShouldEqual, "A Slightly Better")
			convey.So(model.LabelForScore(0.6), convey.ShouldEqual, model.CustomOutcome)
		})
	})
}
