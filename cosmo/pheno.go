package cosmo

import (
	"math"

	"github.com/pkg/errors"

	"cosmofit/spectrum"
)

// Parameter names the phenomenological model understands.
const (
	ParamAmp  = "amp"  // Dl amplitude at the pivot multipole
	ParamTilt = "tilt" // spectral tilt around the pivot
	ParamDamp = "damp" // Gaussian damping scale in ell
)

// PhenoModel is a damped power-law TT spectrum:
//
//	Dl(l) = amp * (l/pivot)^tilt * exp(-(l/damp)^2)
//
// It is not a Boltzmann code; it exists so the fit loop, CLI, and tests can
// run end to end against something cheap with realistic failure modes.
type PhenoModel struct {
	ell    []float64
	pivot  float64
	params map[string]float64
}

// NewPhenoModel builds the model on a dense ell grid [lmin, lmax].
func NewPhenoModel(lmin, lmax int, pivot float64) (*PhenoModel, error) {
	if lmin < 1 || lmax <= lmin {
		return nil, errors.Errorf("Invalid ell range [%d, %d]", lmin, lmax)
	}
	if pivot <= 0 {
		return nil, errors.Errorf("Invalid pivot multipole %f", pivot)
	}

	ell := make([]float64, 0, lmax-lmin+1)
	for l := lmin; l <= lmax; l++ {
		ell = append(ell, float64(l))
	}

	return &PhenoModel{
		ell:    ell,
		pivot:  pivot,
		params: make(map[string]float64),
	}, nil
}

// SetParams merges named parameters into the model state. Unknown names are
// kept around untouched - the fit may carry parameters this model ignores.
func (m *PhenoModel) SetParams(params map[string]float64) {
	for k, v := range params {
		m.params[k] = v
	}
}

// Params returns a copy of the current model parameters.
func (m *PhenoModel) Params() map[string]float64 {
	cp := make(map[string]float64, len(m.params))
	for k, v := range m.params {
		cp[k] = v
	}
	return cp
}

// Run evaluates the spectrum for the current parameters. Missing or
// unphysical parameters produce an error, never a panic - the caller treats
// such a point as rejected.
func (m *PhenoModel) Run() (*spectrum.Spectra, error) {
	amp, ok := m.params[ParamAmp]
	if !ok {
		return nil, errors.Errorf("Model parameter %s has not been set", ParamAmp)
	}
	tilt, ok := m.params[ParamTilt]
	if !ok {
		return nil, errors.Errorf("Model parameter %s has not been set", ParamTilt)
	}
	damp, ok := m.params[ParamDamp]
	if !ok {
		return nil, errors.Errorf("Model parameter %s has not been set", ParamDamp)
	}

	if amp <= 0 {
		return nil, errors.Errorf("Unphysical amplitude %f", amp)
	}
	if damp <= 0 {
		return nil, errors.Errorf("Unphysical damping scale %f", damp)
	}

	s := spectrum.New(m.ell)
	for i, l := range m.ell {
		s.TT[i] = amp * math.Pow(l/m.pivot, tilt) * math.Exp(-(l/damp)*(l/damp))
		if math.IsNaN(s.TT[i]) || math.IsInf(s.TT[i], 0) {
			return nil, errors.Errorf("Spectrum not finite at ell=%f (amp=%f tilt=%f damp=%f)", l, amp, tilt, damp)
		}
	}

	return s, nil
}

// Clone returns a deep copy, satisfying the Model contract.
func (m *PhenoModel) Clone() Model {
	cp := &PhenoModel{
		ell:    make([]float64, len(m.ell)),
		pivot:  m.pivot,
		params: make(map[string]float64, len(m.params)),
	}
	copy(cp.ell, m.ell)
	for k, v := range m.params {
		cp.params[k] = v
	}
	return cp
}
