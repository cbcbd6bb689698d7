package selection

import (
	"math"
	"math/rand"
	"sync"
)

// Sampler draws Thompson samples from a normal approximation of the
// Beta(successes+1, failures+1) posterior. The random source is injectable
// so tests can seed it; the default source is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler builds a sampler from an explicit source. Pass nil to seed
// from the global source.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample blends a randomized posterior draw with the proven Wilson floor.
// High exploration rates favor the draw; low rates favor the floor.
// Result is always in [0,1].
func (s *Sampler) Sample(successes, failures, explorationRate float64) float64 {
	alpha := successes + 1
	beta := failures + 1
	total := alpha + beta

	mean := alpha / total
	variance := alpha * beta / (total * total * (total + 1))

	z := s.normFloat64()
	draw := clamp01(mean + math.Sqrt(variance)*z)

	wilsonLower, _, _ := WilsonBounds(successes, failures, 0.95)

	return draw*explorationRate + wilsonLower*(1-explorationRate)
}

// normFloat64 generates a standard normal variate via Box-Muller from two
// independent uniform draws.
func (s *Sampler) normFloat64() float64 {
	s.mu.Lock()
	u1 := s.rng.Float64()
	u2 := s.rng.Float64()
	s.mu.Unlock()

	// guard against log(0)
	if u1 < 1e-12 {
		u1 = 1e-12
	}

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
