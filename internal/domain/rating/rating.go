// Package rating implements the ELO update rule: expected score, tiered
// learning rate, and rating updates from an observed outcome.
package rating

import (
	"fmt"
	"math"

	"github.com/okian/elobattle/internal/domain/model"
)

// Logistic model constants.
const (
	eloScale       = 400.0
	maxExponentAbs = 40.0
	drawScore      = 0.5
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTiers replaces the default tier table. A malformed table leaves the
// engine on FallbackK; the reason is kept in TierErr.
func WithTiers(tiers []Tier) Option {
	return func(e *Engine) {
		table, err := NewTierTable(tiers)
		e.table = table
		e.tierErr = err
	}
}

// Result is the outcome of applying one comparison.
type Result struct {
	A        model.Item
	B        model.Item
	K        float64
	Expected float64 // expected score of A before the update
	Delta    float64 // unrounded change applied to A (and negated for B)
}

// Engine computes rating updates. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	table   TierTable
	tierErr error
}

// NewEngine creates an engine with the default tiers unless overridden.
func NewEngine(opts ...Option) *Engine {
	table, _ := NewTierTable(DefaultTiers())
	e := &Engine{table: table}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Tiers returns the tiers in effect, sorted ascending.
func (e *Engine) Tiers() []Tier { return e.table.Tiers() }

// TierErr reports why a configured tier table was rejected, if it was.
func (e *Engine) TierErr() error { return e.tierErr }

// ExpectedScore returns the probability that A is judged better than B.
// Rating gaps of 16000 points or more short-circuit to exactly 0 or 1.
func ExpectedScore(ratingA, ratingB float64) float64 {
	exponent := (ratingB - ratingA) / eloScale
	if exponent > maxExponentAbs {
		return 0.0
	}
	if exponent < -maxExponentAbs {
		return 1.0
	}
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// KFactor picks the learning rate from the smaller of the two comparison
// counts. Negative counts are treated as zero.
func (e *Engine) KFactor(comparisonsA, comparisonsB int) float64 {
	m := min(max(0, comparisonsA), max(0, comparisonsB))
	return e.table.Rate(m)
}

// UpdateRatings returns both ratings after A scored scoreA against B.
//
// The change is zero-sum before rounding. Each side is then rounded on its
// own (half away from zero), so the two changes may differ by one point.
func (e *Engine) UpdateRatings(ratingA, ratingB, scoreA, k float64) (float64, float64, error) {
	if err := validateRating(ratingA); err != nil {
		return 0, 0, fmt.Errorf("rating a: %w", err)
	}
	if err := validateRating(ratingB); err != nil {
		return 0, 0, fmt.Errorf("rating b: %w", err)
	}
	if err := ValidateScore(scoreA); err != nil {
		return 0, 0, err
	}
	if math.IsNaN(k) || math.IsInf(k, 0) || k < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidKFactor, k)
	}

	delta := k * (scoreA - ExpectedScore(ratingA, ratingB))
	return math.Round(ratingA + delta), math.Round(ratingB - delta), nil
}

// Apply runs one comparison through the engine and returns the updated
// items. The inputs are not modified.
func (e *Engine) Apply(a, b model.Item, scoreA float64) (Result, error) {
	k := e.KFactor(a.Comparisons, b.Comparisons)
	newA, newB, err := e.UpdateRatings(a.Rating, b.Rating, scoreA, k)
	if err != nil {
		return Result{}, err
	}

	expected := ExpectedScore(a.Rating, b.Rating)
	res := Result{
		A:        a,
		B:        b,
		K:        k,
		Expected: expected,
		Delta:    k * (scoreA - expected),
	}
	res.A.Rating = newA
	res.B.Rating = newB
	res.A.Comparisons++
	res.B.Comparisons++

	switch {
	case scoreA > drawScore:
		res.A.Wins++
		res.B.Losses++
	case scoreA < drawScore:
		res.A.Losses++
		res.B.Wins++
	default:
		res.A.Draws++
		res.B.Draws++
	}

	return res, nil
}

// ValidateScore checks that an outcome score lies within [0,1].
func ValidateScore(score float64) error {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}
	return nil
}

func validateRating(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRating, r)
	}
	return nil
}
