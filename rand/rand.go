// Package rand supplies the deterministic PRNG streams for the fit: one
// generator for initial-position jitter and one exp/rand source per walker
// for the gonum sampling kernels. Everything is Mersenne twister backed so
// a run is reproducible from a single seed.
package rand

import (
	mrand "math/rand"

	"github.com/seehuhn/mt19937"
	exprand "golang.org/x/exp/rand"
)

// A Generator produces the Gaussian draws the orchestration layer needs for
// initial-position jitter, on top of a seeded Mersenne twister.
type Generator struct {
	rnd *mrand.Rand
}

// NewGenerator returns a generator for the given seed.
func NewGenerator(seed int64) *Generator {
	src := mt19937.New()
	src.Seed(seed)
	return &Generator{rnd: mrand.New(src)}
}

// NormFloat64 returns a standard normal draw.
func (g *Generator) NormFloat64() float64 {
	return g.rnd.NormFloat64()
}

// Source adapts the twister to golang.org/x/exp/rand so the same stream
// family drives the gonum proposal and kernel draws.
type Source struct {
	mt *mt19937.MT19937
}

var _ exprand.Source = (*Source)(nil)

// NewSource returns a seeded source.
func NewSource(seed uint64) *Source {
	s := &Source{mt: mt19937.New()}
	s.Seed(seed)
	return s
}

// Uint64 returns the next raw output of the twister.
func (s *Source) Uint64() uint64 {
	return s.mt.Uint64()
}

// Seed reseeds the underlying twister.
func (s *Source) Seed(seed uint64) {
	s.mt.Seed(int64(seed))
}

// WalkerSeed derives a distinct, stable seed for one walker of a run. The
// odd multiplier keeps neighboring walker streams far apart in seed space.
func WalkerSeed(seed int64, walker int) uint64 {
	return uint64(seed)*0x9E3779B97F4A7C15 + uint64(walker)*2 + 1
}
