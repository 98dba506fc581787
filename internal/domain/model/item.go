// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Item is a single rankable entry of the catalog.
type Item struct {
	ID          string   // stable unique key
	Title       string   // display title
	Genres      []string // optional metadata, e.g. "Drama", "Comedy"
	Rating      float64  // current ELO rating
	Comparisons int      // total rated comparisons
	Wins        int
	Losses      int
	Draws       int
}

// Balanced reports whether the outcome counters add up to the comparison count.
func (it Item) Balanced() bool {
	return it.Wins+it.Losses+it.Draws == it.Comparisons
}

// Catalog maps item ID to item. The caller owns it between calls.
type Catalog map[string]Item

// Clone returns a shallow copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for id, it := range c {
		out[id] = it
	}
	return out
}

// Comparison is a single human judgement between two items.
// Fields mirror the outcome log row.
type Comparison struct {
	MatchupID  string    // id issued with the matchup, used for idempotency
	ItemA      string    // left item id
	ItemB      string    // right item id
	Outcome    string    // descriptor, e.g. "A Slightly Better"
	ScoreA     float64   // score of A in [0,1]
	RecordedAt time.Time // when the judgement was submitted
}

// Outcome is one of the quantized judgement levels offered to raters.
type Outcome struct {
	Label string
	Score float64
}

// CustomOutcome labels scores that do not match a quantized level.
const CustomOutcome = "Custom"

// Outcomes lists the quantized levels from "A decisively better" to
// "B decisively better".
var Outcomes = []Outcome{ //nolint:gochecknoglobals // fixed lookup table
	{Label: "A Much Better", Score: 1.0},
	{Label: "A Slightly Better", Score: 0.75},
	{Label: "Even / Tie", Score: 0.5},
	{Label: "B Slightly Better", Score: 0.25},
	{Label: "B Much Better", Score: 0.0},
}

// OutcomeByLabel finds a quantized level by its label (case-insensitive).
func OutcomeByLabel(label string) (Outcome, bool) {
	label = strings.TrimSpace(label)
	for _, o := range Outcomes {
		if strings.EqualFold(o.Label, label) {
			return o, true
		}
	}
	return Outcome{}, false
}

// LabelForScore returns the label of the quantized level with exactly this
// score, or CustomOutcome.
func LabelForScore(score float64) string {
	for _, o := range Outcomes {
		if o.Score == score {
			return o.Label
		}
	}
	return CustomOutcome
}
