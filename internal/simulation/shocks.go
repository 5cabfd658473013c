package simulation

import (
	"math"
	"math/rand"

	"portfolio-risk-lab/internal/linalg"
)

// normalSource draws standard normal variates from a seeded generator
// using the Box-Muller transform. Not safe for concurrent use; every
// trial owns its own source.
type normalSource struct {
	rng      *rand.Rand
	spare    float64
	hasSpare bool
}

func newNormalSource(seed int64) *normalSource {
	return &normalSource{rng: rand.New(rand.NewSource(seed))}
}

// Norm returns one standard normal variate. Box-Muller produces pairs;
// the second variate is cached for the next call.
func (s *normalSource) Norm() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}
	var u1 float64
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	s.spare = r * math.Sin(2*math.Pi*u2)
	s.hasSpare = true
	return r * math.Cos(2*math.Pi*u2)
}

// Fill fills dst with independent standard normal variates.
func (s *normalSource) Fill(dst []float64) {
	for i := range dst {
		dst[i] = s.Norm()
	}
}

// trialSeed derives an independent stream seed from the run seed and a
// trial index using the SplitMix64 finalizer, so results do not depend
// on which worker executes which trial.
func trialSeed(base int64, trial int) int64 {
	z := uint64(base) + (uint64(trial)+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	return int64(z)
}

// shockGenerator produces one vector of cross-asset correlated shocks
// per trading day: independent standard normals pushed through the
// lower-triangular Cholesky factor. Buffers are reused across days.
type shockGenerator struct {
	chol [][]float64
	src  *normalSource
	z    []float64
	out  []float64
}

func newShockGenerator(chol [][]float64, seed int64) *shockGenerator {
	n := len(chol)
	return &shockGenerator{
		chol: chol,
		src:  newNormalSource(seed),
		z:    make([]float64, n),
		out:  make([]float64, n),
	}
}

// Next returns the correlated shock vector for one day. The returned
// slice is overwritten by the following call.
func (g *shockGenerator) Next() []float64 {
	g.src.Fill(g.z)
	return linalg.LowerMulVec(g.chol, g.z, g.out)
}
