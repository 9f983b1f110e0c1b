package mcmc

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"cosmofit/cosmo"
	"cosmofit/params"
	"cosmofit/spectrum"
)

// stubModel is a controllable cosmology for orchestration tests.
type stubModel struct {
	params   map[string]float64
	fail     bool
	runCount int
}

func newStubModel() *stubModel {
	return &stubModel{params: make(map[string]float64)}
}

func (s *stubModel) SetParams(p map[string]float64) {
	for k, v := range p {
		s.params[k] = v
	}
}

func (s *stubModel) Run() (*spectrum.Spectra, error) {
	s.runCount++
	if s.fail {
		return nil, assert.AnError
	}

	out := spectrum.New([]float64{2, 3, 4})
	for i := range out.TT {
		out.TT[i] = s.params["amp"]
	}
	return out, nil
}

func (s *stubModel) Clone() cosmo.Model {
	cp := newStubModel()
	cp.fail = s.fail
	for k, v := range s.params {
		cp.params[k] = v
	}
	return cp
}

func fitAssignments() []params.Assignment {
	return []params.Assignment{
		{Name: "amp", Value: []float64{0.0, 10.0, 20.0}},
		{Name: "offset", Value: 1.5},
	}
}

func TestSetParamsPushesBase(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	model := newStubModel()
	m.SetCosmology(model)

	assert.NoError(m.SetParams(fitAssignments()))
	assert.InDelta(1.5, model.params["offset"], 1e-12)
	assert.Equal([]string{"amp"}, m.Params().FitKeys())

	// Attaching a model after the params also pushes the base set
	m2 := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m2.SetParams(fitAssignments()))
	model2 := newStubModel()
	m2.SetCosmology(model2)
	assert.InDelta(1.5, model2.params["offset"], 1e-12)

	m2.ResetParams()
	assert.Equal(0, m2.Params().Dim())
}

func TestLogPrior(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m.SetParams(fitAssignments()))

	assert.Equal(0.0, m.LogPrior([]float64{10}))
	assert.Equal(0.0, m.LogPrior([]float64{0}))
	assert.Equal(0.0, m.LogPrior([]float64{20}))
	assert.True(math.IsInf(m.LogPrior([]float64{-0.1}), -1))
	assert.True(math.IsInf(m.LogPrior([]float64{20.1}), -1))
}

func TestGenerateTheory(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m.SetParams(fitAssignments()))

	// Without a model the failure is fatal, not caught
	_, err := m.GenerateTheory([]float64{10})
	assert.Error(err)

	model := newStubModel()
	m.SetCosmology(model)

	th, err := m.GenerateTheory([]float64{10})
	assert.NoError(err)
	assert.InDelta(10.0, th.TT[0], 1e-12)

	// Model failures surface as errors, never panics
	model.fail = true
	_, err = m.GenerateTheory([]float64{10})
	assert.Error(err)
}

func TestLogProbModelFailure(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m.SetParams(fitAssignments()))

	model := newStubModel()
	model.fail = true
	m.SetCosmology(model)
	m.AddLikelihood(func(*spectrum.Spectra) float64 { return -1.0 })

	// Failure wins regardless of where the point sits
	assert.True(math.IsInf(m.LogProb([]float64{10}), -1))
	assert.True(math.IsInf(m.LogProb([]float64{-5}), -1))
}

func TestLogProbOutOfBounds(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m.SetParams(fitAssignments()))

	model := newStubModel()
	m.SetCosmology(model)
	m.AddLikelihood(func(*spectrum.Spectra) float64 { return -1.0 })

	assert.True(math.IsInf(m.LogProb([]float64{25}), -1))

	// The theory step still ran: the model is consulted before the prior
	assert.Equal(1, model.runCount)
}

func TestLogProbSumsLikelihoods(t *testing.T) {
	assert := assert.New(t)

	m := NewMCMC(4, 0.01, "", 1, nil)
	assert.NoError(m.SetParams(fitAssignments()))
	m.SetCosmology(newStubModel())

	// No likelihoods: the sum is zero, posterior equals the flat prior
	assert.InDelta(0.0, m.LogProb([]float64{10}), 1e-12)

	m.AddLikelihood(func(s *spectrum.Spectra) float64 { return -2.0 })
	m.AddLikelihood(func(s *spectrum.Spectra) float64 { return s.TT[0] })
	assert.InDelta(-2.0+10.0, m.LogProb([]float64{10}), 1e-12)
}

func TestInitialPositions(t *testing.T) {
	assert := assert.New(t)

	// delta = 0 replicates the fiducials exactly across all walkers
	m := NewMCMC(4, 0.0, "", 1, nil)
	assert.NoError(m.SetParams([]params.Assignment{
		{Name: "a", Value: []float64{0, 3, 10}},
		{Name: "b", Value: []float64{0, 7, 10}},
	}))

	pos0 := m.InitialPositions(4)
	assert.Len(pos0, 4)
	for _, pos := range pos0 {
		assert.InDeltaSlice([]float64{3, 7}, pos, 1e-12)
	}

	// delta > 0 jitters but stays deterministic for a fixed seed
	m1 := NewMCMC(4, 0.1, "", 99, nil)
	assert.NoError(m1.SetParams([]params.Assignment{{Name: "a", Value: []float64{0, 3, 10}}}))
	m2 := NewMCMC(4, 0.1, "", 99, nil)
	assert.NoError(m2.SetParams([]params.Assignment{{Name: "a", Value: []float64{0, 3, 10}}}))

	p1 := m1.InitialPositions(4)
	p2 := m2.InitialPositions(4)
	for w := range p1 {
		assert.InDeltaSlice(p1[w], p2[w], 1e-15)
		assert.NotEqual(3.0, p1[w][0]) // jitter actually moved the point
	}
}

func TestRunValidation(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "chain.db")

	// No fit parameters
	m := NewMCMC(4, 0.0, path, 1, nil)
	assert.Error(m.Run(5, false))

	// No model
	assert.NoError(m.SetParams(fitAssignments()))
	assert.Error(m.Run(5, false))
}

func TestWalkerCountCorrection(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "chain.db")
	m := NewMCMC(1, 0.0, path, 1, nil)
	defer func() { _ = m.Close() }()

	assert.NoError(m.SetParams([]params.Assignment{
		{Name: "a", Value: []float64{0, 3, 10}},
		{Name: "b", Value: []float64{0, 7, 10}},
	}))
	m.SetCosmology(newStubModel())

	// A zero-step run still validates, resets, and corrects the count
	assert.NoError(m.Run(0, false))
	assert.Equal(4, m.Walkers())

	store, err := m.Store()
	assert.NoError(err)
	meta, err := store.Meta()
	assert.NoError(err)
	assert.Equal(4, meta.NWalkers)
}
