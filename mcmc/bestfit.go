package mcmc

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"cosmofit/backend"
	"cosmofit/cosmo"
)

// BestFit scans the flattened log-probability history for its maximum and
// returns the matching parameter vector as a named mapping, together with
// the peak log-probability.
func (m *MCMC) BestFit() (map[string]float64, float64, error) {
	store, err := m.attachStore()
	if err != nil {
		return nil, 0, err
	}
	return BestFitFrom(store)
}

// BestFitFrom extracts the best-fit mapping from any checkpoint store,
// keyed by the fit-key order recorded in the file.
func BestFitFrom(store *backend.Backend) (map[string]float64, float64, error) {
	meta, err := store.Meta()
	if err != nil {
		return nil, 0, err
	}

	lnp, err := store.FlatLogProb()
	if err != nil {
		return nil, 0, err
	}
	if len(lnp) < 1 {
		return nil, 0, errors.Errorf("Backend %s holds no samples", store.Path())
	}

	whMax := 0
	for i, v := range lnp {
		if v > lnp[whMax] {
			whMax = i
		}
	}

	flat, err := store.FlatChain()
	if err != nil {
		return nil, 0, err
	}
	if len(flat) != len(lnp) {
		return nil, 0, errors.Errorf("Chain/log-prob length mismatch: %d vs %d", len(flat), len(lnp))
	}

	best := flat[whMax]
	if len(best) != len(meta.FitKeys) {
		return nil, 0, errors.Errorf("Best row has %d coordinates for %d fit keys", len(best), len(meta.FitKeys))
	}

	bf := make(map[string]float64, len(best))
	for i, k := range meta.FitKeys {
		bf[k] = best[i]
	}
	return bf, lnp[whMax], nil
}

// BestFitCosmology deep-copies the current model and applies the best-fit
// parameters, leaving the fit's own model untouched.
func (m *MCMC) BestFitCosmology() (cosmo.Model, error) {
	if m.model == nil {
		return nil, errors.Errorf("No cosmology model has been set")
	}

	bf, _, err := m.BestFit()
	if err != nil {
		return nil, err
	}

	model := m.model.Clone()
	model.SetParams(bf)
	return model, nil
}

// ParamStat summarizes the marginal posterior of one fit parameter.
type ParamStat struct {
	Name string
	Mean float64
	Std  float64
	P16  float64
	P50  float64
	P84  float64
}

// ChainStats computes per-parameter marginal statistics from the flat chain.
func (m *MCMC) ChainStats() ([]ParamStat, error) {
	store, err := m.attachStore()
	if err != nil {
		return nil, err
	}
	return StatsFrom(store)
}

// StatsFrom computes per-parameter marginal statistics from any checkpoint
// store, in the stored fit-key order.
func StatsFrom(store *backend.Backend) ([]ParamStat, error) {
	meta, err := store.Meta()
	if err != nil {
		return nil, err
	}

	flat, err := store.FlatChain()
	if err != nil {
		return nil, err
	}
	if len(flat) < 1 {
		return nil, errors.Errorf("Backend %s holds no samples", store.Path())
	}

	stats := make([]ParamStat, len(meta.FitKeys))
	col := make([]float64, len(flat))
	for i, k := range meta.FitKeys {
		for j, row := range flat {
			if len(row) != len(meta.FitKeys) {
				return nil, errors.Errorf("Chain row %d has %d coordinates for %d fit keys", j, len(row), len(meta.FitKeys))
			}
			col[j] = row[i]
		}

		sorted := make([]float64, len(col))
		copy(sorted, col)
		sort.Float64s(sorted)

		stats[i] = ParamStat{
			Name: k,
			Mean: stat.Mean(col, nil),
			Std:  stat.StdDev(col, nil),
			P16:  stat.Quantile(0.16, stat.Empirical, sorted, nil),
			P50:  stat.Quantile(0.50, stat.Empirical, sorted, nil),
			P84:  stat.Quantile(0.84, stat.Empirical, sorted, nil),
		}
	}
	return stats, nil
}
