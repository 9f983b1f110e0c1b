// Package mcmc orchestrates a parameter fit: it owns the parameter set, the
// cosmology model, and the likelihood stack, evaluates the posterior for the
// sampling kernel, and extracts best-fit results from the checkpoint store.
package mcmc

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cosmofit/backend"
	"cosmofit/cosmo"
	"cosmofit/like"
	"cosmofit/params"
	"cosmofit/rand"
	"cosmofit/spectrum"
)

// MCMC drives one fit. Configure it with parameters, a cosmology, and
// likelihoods, then call Run; afterwards BestFit and ChainStats read results
// back from the checkpoint store.
type MCMC struct {
	nWalkers    int
	delta       float64
	backendFile string
	seed        int64

	set   *params.Set
	model cosmo.Model
	likes []like.Func

	store *backend.Backend
	log   *zap.Logger
}

// NewMCMC creates a fit driver. nWalkers is the requested walker count
// (auto-corrected upward at run time if too small for the dimensionality),
// delta the fractional Gaussian jitter applied to fiducial values when
// generating fresh starting positions.
func NewMCMC(nWalkers int, delta float64, backendFile string, seed int64, log *zap.Logger) *MCMC {
	if log == nil {
		log = zap.NewNop()
	}

	return &MCMC{
		nWalkers:    nWalkers,
		delta:       delta,
		backendFile: backendFile,
		seed:        seed,
		set:         params.NewSet(),
		log:         log,
	}
}

// SetParams classifies and assigns parameters in order: 3-element ranges
// become fit parameters, scalars base parameters. If a cosmology is already
// attached, the base parameters are pushed into it immediately.
func (m *MCMC) SetParams(assigns []params.Assignment) error {
	if err := m.set.AssignAll(assigns); err != nil {
		return err
	}

	if m.model != nil {
		m.model.SetParams(m.set.Base())
	}
	return nil
}

// ResetParams clears all assigned parameters.
func (m *MCMC) ResetParams() {
	m.set.Reset()
}

// Params exposes the underlying parameter set.
func (m *MCMC) Params() *params.Set {
	return m.set
}

// SetCosmology attaches the model to fit and pushes the current base
// parameters into it.
func (m *MCMC) SetCosmology(model cosmo.Model) {
	m.model = model
	m.model.SetParams(m.set.Base())
}

// AddLikelihood appends a likelihood contribution to the ordered stack.
func (m *MCMC) AddLikelihood(f like.Func) {
	m.likes = append(m.likes, f)
}

// LogPrior evaluates the flat prior for a coordinate vector in fit-key
// order: zero inside every bound, -Inf outside any.
func (m *MCMC) LogPrior(theta []float64) float64 {
	return m.set.LogPrior(theta)
}

// GenerateTheory maps a coordinate vector to named parameters, pushes them
// into the cosmology, and runs a full evaluation. Model failures are
// reported through the error - the caller rejects the point, the run
// continues.
func (m *MCMC) GenerateTheory(theta []float64) (*spectrum.Spectra, error) {
	if m.model == nil {
		return nil, errors.Errorf("No cosmology model has been set")
	}
	return generateTheory(m.set, m.model, theta)
}

// LogProb is the posterior the sampler targets: -Inf for a failed model
// evaluation or an out-of-bound draw, prior plus summed likelihoods
// otherwise.
func (m *MCMC) LogProb(theta []float64) float64 {
	ev := &evaluator{set: m.set, model: m.model, likes: m.likes, log: m.log}
	return ev.LogProb(theta)
}

// InitialPositions generates one starting position per walker by jittering
// each fiducial value with a Gaussian perturbation scaled by delta and the
// value itself. With delta = 0 every walker starts exactly at the
// fiducials.
func (m *MCMC) InitialPositions(walkers int) [][]float64 {
	gen := rand.NewGenerator(m.seed)
	fids := m.set.Fiducials()

	pos0 := make([][]float64, walkers)
	for w := range pos0 {
		pos := make([]float64, len(fids))
		for i, fid := range fids {
			pos[i] = fid + gen.NormFloat64()*m.delta*fid
		}
		pos0[w] = pos
	}
	return pos0
}

// evaluator is the per-walker posterior. Each walker owns a model clone, so
// evaluators never share mutable state and need no locking.
type evaluator struct {
	set   *params.Set
	model cosmo.Model
	likes []like.Func
	log   *zap.Logger
}

// LogProb implements sampler.Target.
func (e *evaluator) LogProb(theta []float64) float64 {
	th, err := generateTheory(e.set, e.model, theta)
	if err != nil {
		// One bad point must never kill a long-running chain
		e.log.Warn("Model evaluation failed, rejecting point",
			zap.Float64s("theta", theta),
			zap.Error(err),
		)
		return math.Inf(-1)
	}

	prior := e.set.LogPrior(theta)
	if math.IsInf(prior, -1) {
		return math.Inf(-1)
	}

	likeSum := like.Total(e.likes, th)

	e.log.Debug("Posterior evaluated",
		zap.Float64s("theta", theta),
		zap.Float64("loglike", likeSum),
	)
	return prior + likeSum
}

// generateTheory is the shared theory step: coordinates to named params to a
// full model run. The theory is generated before the prior is consulted, so
// a model failure always wins over an out-of-bound rejection.
func generateTheory(set *params.Set, model cosmo.Model, theta []float64) (*spectrum.Spectra, error) {
	if model == nil {
		return nil, errors.Errorf("No cosmology model has been set")
	}

	named, err := set.Named(theta)
	if err != nil {
		return nil, errors.Wrap(err, "Could not map coordinates to parameters")
	}

	model.SetParams(named)
	th, err := model.Run()
	if err != nil {
		return nil, errors.Wrap(err, "Model evaluation failed")
	}
	return th, nil
}
