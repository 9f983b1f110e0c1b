// Package spectrum holds CMB power spectra in Dl form (l(l+1)Cl/2pi) along
// with the conversions and resampling needed to compare theory against
// observed bandpowers.
package spectrum

import (
	"math"

	"github.com/pkg/errors"
)

// Spectra is a set of theory power spectra on a common multipole grid. All
// bands are stored as Dl. A band that a model does not predict stays nil.
type Spectra struct {
	Ell []float64
	TT  []float64
	EE  []float64
	BB  []float64
	TE  []float64
}

// New returns spectra with a TT band allocated on the given ell grid.
func New(ell []float64) *Spectra {
	return &Spectra{
		Ell: ell,
		TT:  make([]float64, len(ell)),
	}
}

// Clone returns a deep copy of the spectra.
func (s *Spectra) Clone() *Spectra {
	cp := &Spectra{}
	cp.Ell = copyBand(s.Ell)
	cp.TT = copyBand(s.TT)
	cp.EE = copyBand(s.EE)
	cp.BB = copyBand(s.BB)
	cp.TE = copyBand(s.TE)
	return cp
}

// Check returns an error if any present band does not match the ell grid.
func (s *Spectra) Check() error {
	if len(s.Ell) < 1 {
		return errors.Errorf("Spectra has an empty ell grid")
	}
	for i, l := range s.Ell {
		if l <= 0 {
			return errors.Errorf("Spectra ell[%d]=%f - multipoles must be positive", i, l)
		}
	}

	bands := map[string][]float64{"TT": s.TT, "EE": s.EE, "BB": s.BB, "TE": s.TE}
	for name, band := range bands {
		if band != nil && len(band) != len(s.Ell) {
			return errors.Errorf("Band %s has %d entries for %d multipoles", name, len(band), len(s.Ell))
		}
	}
	return nil
}

// DlToCl converts a Dl band to Cl: Cl = 2*pi*Dl / (l*(l+1)).
func DlToCl(ell, dl []float64) ([]float64, error) {
	if len(ell) != len(dl) {
		return nil, errors.Errorf("Grid size mismatch: %d multipoles vs %d values", len(ell), len(dl))
	}

	cl := make([]float64, len(dl))
	for i, l := range ell {
		if l <= 0 {
			return nil, errors.Errorf("Invalid multipole %f at index %d", l, i)
		}
		cl[i] = dl[i] * 2.0 * math.Pi / (l * (l + 1))
	}
	return cl, nil
}

// ClToDl is the inverse of DlToCl.
func ClToDl(ell, cl []float64) ([]float64, error) {
	if len(ell) != len(cl) {
		return nil, errors.Errorf("Grid size mismatch: %d multipoles vs %d values", len(ell), len(cl))
	}

	dl := make([]float64, len(cl))
	for i, l := range ell {
		if l <= 0 {
			return nil, errors.Errorf("Invalid multipole %f at index %d", l, i)
		}
		dl[i] = cl[i] * l * (l + 1) / (2.0 * math.Pi)
	}
	return dl, nil
}

// Resample linearly interpolates every present band onto a new ell grid. The
// new grid must lie inside the current one - no extrapolation.
func (s *Spectra) Resample(ell []float64) (*Spectra, error) {
	if err := s.Check(); err != nil {
		return nil, errors.Wrap(err, "Can not resample invalid spectra")
	}

	out := &Spectra{Ell: copyBand(ell)}

	var err error
	if s.TT != nil {
		if out.TT, err = Interp(s.Ell, s.TT, ell); err != nil {
			return nil, errors.Wrap(err, "Could not resample TT")
		}
	}
	if s.EE != nil {
		if out.EE, err = Interp(s.Ell, s.EE, ell); err != nil {
			return nil, errors.Wrap(err, "Could not resample EE")
		}
	}
	if s.BB != nil {
		if out.BB, err = Interp(s.Ell, s.BB, ell); err != nil {
			return nil, errors.Wrap(err, "Could not resample BB")
		}
	}
	if s.TE != nil {
		if out.TE, err = Interp(s.Ell, s.TE, ell); err != nil {
			return nil, errors.Wrap(err, "Could not resample TE")
		}
	}

	return out, nil
}

// Interp performs linear interpolation of (x, y) onto xNew. The x grid must
// be strictly increasing and xNew must lie within [x[0], x[len-1]].
func Interp(x, y, xNew []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, errors.Errorf("Interp size mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, errors.Errorf("Interp needs at least 2 source points, have %d", len(x))
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, errors.Errorf("Interp source grid not increasing at index %d", i)
		}
	}

	out := make([]float64, len(xNew))
	lo := 0
	for i, xv := range xNew {
		if xv < x[0] || xv > x[len(x)-1] {
			return nil, errors.Errorf("Interp target %f outside source range [%f, %f]", xv, x[0], x[len(x)-1])
		}

		// xNew is usually increasing, so resume the scan where we left off
		if lo > 0 && xv < x[lo] {
			lo = 0
		}
		for lo < len(x)-2 && x[lo+1] < xv {
			lo++
		}

		t := (xv - x[lo]) / (x[lo+1] - x[lo])
		out[i] = y[lo] + t*(y[lo+1]-y[lo])
	}

	return out, nil
}

func copyBand(band []float64) []float64 {
	if band == nil {
		return nil
	}
	cp := make([]float64, len(band))
	copy(cp, band)
	return cp
}
