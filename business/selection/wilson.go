package selection

import "math"

// WilsonBounds computes the Wilson score interval for a binomial
// proportion plus an exploration bonus that shrinks with sample size.
// Pure function: never errors, never panics, for any non-negative input.
//
// n=0 means maximum uncertainty; n=1 is barely better.
func WilsonBounds(successes, failures, confidence float64) (lower, upper, explorationBonus float64) {
	n := successes + failures

	if n <= 0 {
		return 0.0, 1.0, 1.0
	}
	if n == 1 {
		return 0.0, 1.0, 0.7
	}

	pHat := successes / n
	z := zScore(confidence)

	z2 := z * z
	denom := 1 + z2/n
	center := pHat + z2/(2*n)
	spread := z * math.Sqrt(pHat*(1-pHat)/n+z2/(4*n*n))

	lower = (center - spread) / denom
	upper = (center + spread) / denom

	lower = clamp01(lower)
	upper = clamp01(upper)

	explorationBonus = 1 / math.Sqrt(n+1)

	return lower, upper, explorationBonus
}

// zScore maps a confidence level to the two-sided normal critical value.
func zScore(confidence float64) float64 {
	switch confidence {
	case 0.90:
		return 1.645
	case 0.95:
		return 1.96
	case 0.99:
		return 2.576
	default:
		return 1.96
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
