package rating

import (
	"fmt"
	"math"
	"sort"
)

// FallbackK is the learning rate used when no usable tier table exists.
const FallbackK = 24

// Tier maps an upper bound on the smaller comparison count of a matchup to a
// learning rate. A Threshold of +Inf is the catch-all.
type Tier struct {
	Threshold float64 `koanf:"max_comparisons" yaml:"max_comparisons" json:"max_comparisons"`
	K         float64 `koanf:"k" yaml:"k" json:"k"`
}

// TierTable is an immutable list of tiers sorted ascending by threshold.
type TierTable struct {
	tiers []Tier
}

// DefaultTiers returns the stock calibration: new items move fast,
// established ones slower, well-compared ones drift.
func DefaultTiers() []Tier {
	return []Tier{
		{Threshold: 15, K: 64},
		{Threshold: 50, K: 40},
		{Threshold: math.Inf(1), K: 24},
	}
}

// NewTierTable validates and sorts tiers. Any NaN threshold or a rate that is
// not a positive finite number rejects the whole table.
func NewTierTable(tiers []Tier) (TierTable, error) {
	if len(tiers) == 0 {
		return TierTable{}, fmt.Errorf("%w: empty table", ErrMalformedTiers)
	}
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for i, t := range out {
		if math.IsNaN(t.Threshold) || math.IsInf(t.Threshold, -1) {
			return TierTable{}, fmt.Errorf("%w: tier %d has threshold %v", ErrMalformedTiers, i, t.Threshold)
		}
		if math.IsNaN(t.K) || math.IsInf(t.K, 0) || t.K <= 0 {
			return TierTable{}, fmt.Errorf("%w: tier %d has rate %v", ErrMalformedTiers, i, t.K)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Threshold < out[j].Threshold })
	return TierTable{tiers: out}, nil
}

// Tiers returns a copy of the sorted tiers.
func (t TierTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Empty reports whether the table has no tiers.
func (t TierTable) Empty() bool { return len(t.tiers) == 0 }

// Rate returns the rate of the first tier whose threshold is >= m. When m is
// above every threshold the largest tier's rate applies.
func (t TierTable) Rate(m int) float64 {
	if len(t.tiers) == 0 {
		return FallbackK
	}
	fm := float64(m)
	for _, tier := range t.tiers {
		if fm <= tier.Threshold {
			return tier.K
		}
	}
	return t.tiers[len(t.tiers)-1].K
}
