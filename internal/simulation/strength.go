package simulation

import (
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/elobattle/internal/domain/model"
	"github.com/okian/elobattle/internal/domain/rating"
)

// Outcome bands: a judgement is a tie when the rater's draw lands within
// tieBand of the win probability, and decisive when the win probability is
// further than muchMargin from a coin flip.
const (
	tieBand    = 0.05
	muchMargin = 0.25
)

// Strength returns the hidden strength of an item. It depends only on the
// seed and the item ID, so every worker and every run with the same seed
// agrees on it.
func Strength(seed int64, id string, spread float64) float64 {
	src := rand.NewSource(seed ^ int64(xxhash.Sum64String(id))) //nolint:gosec // simulation only
	return rand.New(src).NormFloat64() * spread                  //nolint:gosec // simulation only
}

// Judge picks one of the quantized outcomes for a rater who sees A with
// strength sa against B with strength sb. u is a uniform draw in [0,1).
func Judge(sa, sb, u float64) model.Outcome {
	p := rating.ExpectedScore(sa, sb)
	if math.Abs(u-p) < tieBand {
		return model.Outcomes[2]
	}

	aWins := u < p
	decisive := math.Abs(p-0.5) > muchMargin
	switch {
	case aWins && decisive:
		return model.Outcomes[0]
	case aWins:
		return model.Outcomes[1]
	case decisive:
		return model.Outcomes[4]
	default:
		return model.Outcomes[3]
	}
}
