package mcmc

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"cosmofit/backend"
	"cosmofit/sampler"
)

// Run advances the fit by steps stored samples per walker. A fresh run
// resets the checkpoint file and jitters fiducials into starting positions;
// a resumed run restarts every walker from its last stored position (and
// takes the walker count from the file, not the configuration). Remaining
// options are passed through to the sampling ensemble.
func (m *MCMC) Run(steps int, resume bool, opts ...sampler.Option) error {
	ndim := m.set.Dim()
	if ndim < 1 {
		return errors.Errorf("No fit parameters have been assigned")
	}
	if m.model == nil {
		return errors.Errorf("No cosmology model has been set")
	}

	// The ensemble needs room to move: at least two walkers per dimension
	if m.nWalkers < 2*ndim {
		m.nWalkers = 2 * ndim
		m.log.Warn("Walker count too small, corrected",
			zap.Int("ndim", ndim),
			zap.Int("nWalkers", m.nWalkers),
		)
	}

	store, err := m.attachStore()
	if err != nil {
		return err
	}

	var pos0 [][]float64
	if resume {
		meta, err := store.Meta()
		if err != nil {
			return errors.Wrap(err, "Can not resume")
		}
		if meta.Ndim != ndim {
			return errors.Errorf("Backend holds %d dimensions, fit has %d", meta.Ndim, ndim)
		}

		m.nWalkers = meta.NWalkers
		pos0, err = store.LastPositions()
		if err != nil {
			return errors.Wrap(err, "Can not resume")
		}

		done, err := store.Steps()
		if err != nil {
			return err
		}
		m.log.Info("Resuming from checkpoint",
			zap.String("backend", store.Path()),
			zap.Int("storedSteps", done),
			zap.Int("nWalkers", m.nWalkers),
		)
	} else {
		if err := store.Reset(m.nWalkers, ndim, m.set.FitKeys()); err != nil {
			return errors.Wrap(err, "Could not reset backend for a fresh run")
		}
		pos0 = m.InitialPositions(m.nWalkers)
	}

	targets := make([]sampler.Target, m.nWalkers)
	for w := range targets {
		targets[w] = &evaluator{
			set:   m.set,
			model: m.model.Clone(),
			likes: m.likes,
			log:   m.log,
		}
	}

	// Defaults first so caller options win
	ensOpts := append([]sampler.Option{
		sampler.WithProposalWidths(m.defaultWidths()),
		sampler.WithSeed(m.seed),
	}, opts...)

	ens, err := sampler.NewEnsemble(targets, store, m.log, ensOpts...)
	if err != nil {
		return err
	}

	if steps > 0 {
		if err := ens.Run(pos0, steps); err != nil {
			return err
		}
	}
	return nil
}

// Walkers returns the current (possibly auto-corrected) walker count.
func (m *MCMC) Walkers() int {
	return m.nWalkers
}

// Store returns the attached checkpoint store, opening it if needed. Useful
// for inspecting a finished or foreign run.
func (m *MCMC) Store() (*backend.Backend, error) {
	return m.attachStore()
}

// Close releases the checkpoint store.
func (m *MCMC) Close() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}

func (m *MCMC) attachStore() (*backend.Backend, error) {
	if m.store != nil {
		return m.store, nil
	}

	store, err := backend.Open(m.backendFile)
	if err != nil {
		return nil, err
	}
	m.store = store
	return store, nil
}

// defaultWidths derives per-dimension proposal widths from the prior ranges
// when the caller does not pass their own.
func (m *MCMC) defaultWidths() []float64 {
	keys := m.set.FitKeys()
	widths := make([]float64, len(keys))
	for i, k := range keys {
		r, _ := m.set.FitRange(k)
		widths[i] = (r.Upper - r.Lower) / 10.0
	}
	return widths
}
