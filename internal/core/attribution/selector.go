package attribution

import "math/rand/v2"

// DrawFunc returns a uniformly distributed value in [0, 100).
type DrawFunc func() float64

// RandomDraw is the production DrawFunc.
func RandomDraw() float64 {
	return rand.Float64() * fullShare //nolint:gosec // attribution split, not a security decision
}

// Select walks the normalized list accumulating percentages and returns the first entry whose
// running total reaches draw. When rounding leaves the draw uncovered the first entry wins.
// An empty list yields false.
func Select(entries []WeightEntry, draw float64) (WeightEntry, bool) {
	if len(entries) == 0 {
		return WeightEntry{}, false
	}

	var cumulative float64

	for _, e := range entries {
		cumulative += e.Percentage
		if cumulative >= draw {
			return e, true
		}
	}

	return entries[0], true
}
