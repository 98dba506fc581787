// Package selection picks the next pair of items to compare, favouring items
// that have been compared less often.
package selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/okian/elobattle/internal/domain/model"
)

const (
	// DefaultExponent is the bias strength towards rarely compared items.
	DefaultExponent = 1.5

	normTolerance = 1e-9
)

// Pair is a selected matchup. Fallback is set when the weights were
// unusable and both slots were drawn uniformly.
type Pair struct {
	A        string
	B        string
	Fallback bool
}

// Selector draws matchups from a catalog. It keeps no reference to the
// catalog between calls. A Selector is not safe for concurrent use; callers
// serialize access.
type Selector struct {
	exponent float64
	rng      *rand.Rand
}

// New creates a selector with the default exponent and a time-seeded source.
func New(opts ...Option) *Selector {
	s := &Selector{
		exponent: DefaultExponent,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // matchup sampling, not security
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Exponent returns the weighting exponent in use.
func (s *Selector) Exponent() float64 { return s.exponent }

// Weight returns the sampling weight of an item with the given comparison
// count. Negative counts are treated as zero.
func Weight(comparisons int, exponent float64) float64 {
	return 1.0 / math.Pow(float64(max(0, comparisons))+1, exponent)
}

// SelectPair returns two distinct item IDs from the catalog. Slot A is drawn
// by weight; slot B is drawn uniformly from the remaining items.
func (s *Selector) SelectPair(catalog model.Catalog) (Pair, error) {
	if len(catalog) < 2 {
		return Pair{}, fmt.Errorf("%w: have %d", ErrInsufficientItems, len(catalog))
	}

	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 2 {
		if s.rng.Intn(2) == 0 {
			return Pair{A: ids[0], B: ids[1]}, nil
		}
		return Pair{A: ids[1], B: ids[0]}, nil
	}

	probs, ok := s.normalizedWeights(ids, catalog)
	if !ok {
		return s.uniform(ids), nil
	}

	ai := s.drawWeighted(probs)
	bi := s.rng.Intn(len(ids) - 1)
	if bi >= ai {
		bi++
	}

	return Pair{A: ids[ai], B: ids[bi]}, nil
}

func (s *Selector) normalizedWeights(ids []string, catalog model.Catalog) ([]float64, bool) {
	weights := make([]float64, len(ids))
	total := 0.0
	for i, id := range ids {
		w := Weight(catalog[id].Comparisons, s.exponent)
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, false
		}
		weights[i] = w
		total += w
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, false
	}

	sum := 0.0
	for i := range weights {
		weights[i] /= total
		sum += weights[i]
	}
	if math.Abs(sum-1) > normTolerance {
		return nil, false
	}

	return weights, true
}

func (s *Selector) drawWeighted(probs []float64) int {
	u := s.rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	// u landed in the rounding slack above the last cumulative sum.
	for i := len(probs) - 1; i >= 0; i-- {
		if probs[i] > 0 {
			return i
		}
	}
	return len(probs) - 1
}

func (s *Selector) uniform(ids []string) Pair {
	perm := s.rng.Perm(len(ids))
	return Pair{A: ids[perm[0]], B: ids[perm[1]], Fallback: true}
}
