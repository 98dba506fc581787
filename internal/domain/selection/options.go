package selection

import "math/rand"

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithExponent sets the exponent p of the weight 1/(comparisons+1)^p.
// Negative values are ignored.
func WithExponent(p float64) Option {
	return func(s *Selector) {
		if p >= 0 {
			s.exponent = p
		}
	}
}

// WithRand injects the random source. The selector is not safe for
// concurrent use when the source is shared.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // matchup sampling, not security
	}
}
