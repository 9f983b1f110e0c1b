// Package like scores theory spectra against observed bandpowers. Each
// likelihood is a plain function from spectra to a scalar log-likelihood so
// a fit can stack an arbitrary ordered collection of them.
package like

import (
	"math"

	"github.com/pkg/errors"

	"cosmofit/spectrum"
)

// Func maps theory spectra to a scalar log-likelihood contribution. A
// likelihood that can not score the given spectra (missing band, ell range
// mismatch) returns -Inf rather than raising - the point is rejected, the
// sampler keeps running.
type Func func(*spectrum.Spectra) float64

// Total sums the contributions of all likelihoods for the given theory.
func Total(funcs []Func, s *spectrum.Spectra) float64 {
	var total float64
	for _, f := range funcs {
		total += f(s)
	}
	return total
}

// Gaussian returns a diagonal chi-square likelihood against observed TT
// bandpowers. Theory is resampled onto the observed ell grid.
func Gaussian(obs *spectrum.Observed) (Func, error) {
	if err := obs.Check(); err != nil {
		return nil, errors.Wrap(err, "Can not build Gaussian likelihood")
	}

	return func(s *spectrum.Spectra) float64 {
		if s == nil || s.TT == nil {
			return math.Inf(-1)
		}

		th, err := s.Resample(obs.Ell)
		if err != nil {
			return math.Inf(-1)
		}

		var chi2 float64
		for i := range obs.Ell {
			r := (th.TT[i] - obs.Dl[i]) / obs.Sigma[i]
			chi2 += r * r
		}
		return -0.5 * chi2
	}, nil
}

// ExactTT returns the full-sky exact TT likelihood
//
//	lnL = -1/2 * sum (2l+1) fsky [ (Co+N)/(Ct+N) + ln((Ct+N)/(Co+N)) - 1 ]
//
// where Co/Ct are observed/theory Cl and N is the noise power spectrum on
// the observed ell grid (Cl form, nil for a noiseless instrument). The
// contribution is zero when theory matches the observation exactly.
func ExactTT(obs *spectrum.Observed, noise []float64, fsky float64) (Func, error) {
	if err := obs.Check(); err != nil {
		return nil, errors.Wrap(err, "Can not build exact likelihood")
	}
	if noise == nil {
		noise = make([]float64, len(obs.Ell))
	}
	if len(noise) != len(obs.Ell) {
		return nil, errors.Errorf("Noise spectrum has %d entries for %d multipoles", len(noise), len(obs.Ell))
	}
	if fsky <= 0 || fsky > 1 {
		return nil, errors.Errorf("Invalid sky fraction %f", fsky)
	}

	obsCl, err := spectrum.DlToCl(obs.Ell, obs.Dl)
	if err != nil {
		return nil, errors.Wrap(err, "Could not convert observed spectra")
	}

	return func(s *spectrum.Spectra) float64 {
		if s == nil || s.TT == nil {
			return math.Inf(-1)
		}

		th, err := s.Resample(obs.Ell)
		if err != nil {
			return math.Inf(-1)
		}
		thCl, err := spectrum.DlToCl(th.Ell, th.TT)
		if err != nil {
			return math.Inf(-1)
		}

		var lnL float64
		for i, l := range obs.Ell {
			co := obsCl[i] + noise[i]
			ct := thCl[i] + noise[i]
			if ct <= 0 || co <= 0 {
				return math.Inf(-1)
			}
			lnL += (2*l + 1) * fsky * (co/ct + math.Log(ct/co) - 1)
		}
		return -0.5 * lnL
	}, nil
}
