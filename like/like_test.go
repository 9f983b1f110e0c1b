package like

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cosmofit/spectrum"
)

func flatObserved() *spectrum.Observed {
	return &spectrum.Observed{
		Ell:   []float64{10, 20, 30},
		Dl:    []float64{100, 100, 100},
		Sigma: []float64{10, 10, 10},
	}
}

func flatTheory(val float64) *spectrum.Spectra {
	s := spectrum.New([]float64{2, 15, 25, 40})
	for i := range s.TT {
		s.TT[i] = val
	}
	return s
}

func TestGaussian(t *testing.T) {
	assert := assert.New(t)

	f, err := Gaussian(flatObserved())
	assert.NoError(err)

	// Perfect match scores zero
	assert.InDelta(0.0, f(flatTheory(100)), 1e-12)

	// One-sigma offset at each of 3 multipoles
	assert.InDelta(-1.5, f(flatTheory(110)), 1e-12)

	// Missing band or uncovered ell range rejects the point
	assert.True(math.IsInf(f(&spectrum.Spectra{Ell: []float64{10}}), -1))
	narrow := spectrum.New([]float64{15, 25})
	assert.True(math.IsInf(f(narrow), -1))
	assert.True(math.IsInf(f(nil), -1))

	_, err = Gaussian(&spectrum.Observed{Ell: []float64{1}, Dl: []float64{1}, Sigma: []float64{0}})
	assert.Error(err)
}

func TestExactTT(t *testing.T) {
	assert := assert.New(t)

	obs := flatObserved()
	noise := []float64{1e-3, 1e-3, 1e-3}

	f, err := ExactTT(obs, noise, 0.7)
	assert.NoError(err)

	// Exact match scores zero; any mismatch scores below zero
	assert.InDelta(0.0, f(flatTheory(100)), 1e-9)
	assert.Less(f(flatTheory(120)), 0.0)
	assert.Less(f(flatTheory(80)), 0.0)

	// Failure modes reject instead of raising
	assert.True(math.IsInf(f(nil), -1))
	assert.True(math.IsInf(f(spectrum.New([]float64{15, 25})), -1))

	_, err = ExactTT(obs, []float64{1e-3}, 0.7)
	assert.Error(err)
	_, err = ExactTT(obs, noise, 0.0)
	assert.Error(err)
	_, err = ExactTT(obs, noise, 1.5)
	assert.Error(err)
}

func TestTotal(t *testing.T) {
	assert := assert.New(t)

	one := Func(func(*spectrum.Spectra) float64 { return -1.5 })
	two := Func(func(*spectrum.Spectra) float64 { return -2.5 })

	// Sum starts from zero - no likelihoods means no contribution
	assert.InDelta(0.0, Total(nil, nil), 1e-12)
	assert.InDelta(-4.0, Total([]Func{one, two}, nil), 1e-12)
}
