// Package cosmo defines the contract the MCMC loop expects from a
// cosmological model and ships a small phenomenological reference model.
// Real Boltzmann codes live outside this repository; anything that can
// accept named parameters and produce spectra can be fitted.
package cosmo

import (
	"cosmofit/spectrum"
)

// Model is the external cosmology contract: push named parameters in, run a
// full evaluation out to theory spectra. Implementations must be
// deep-copyable via Clone so a best-fit model can be produced without
// touching the one owned by a running fit.
type Model interface {
	// SetParams merges the given named parameters into the model state.
	// Parameters the model does not know are kept and ignored at Run time.
	SetParams(params map[string]float64)

	// Run performs a full model evaluation. A returned error marks the
	// current parameter point as unusable; it must not panic.
	Run() (*spectrum.Spectra, error)

	// Clone returns an independent deep copy of the model.
	Clone() Model
}
