package params

import (
	"math"

	"github.com/pkg/errors"
)

// Range is the bounded prior interval for a single fit parameter. The
// fiducial value is used as the chain starting point.
type Range struct {
	Lower    float64
	Fiducial float64
	Upper    float64
}

// Set partitions a parameter configuration into base parameters (held fixed
// for the whole fit) and fit parameters (varied by the sampler within their
// Range). The insertion order of fit parameters defines the coordinate
// ordering used everywhere: prior evaluation, theory generation, and
// best-fit extraction all index into the same ordered key list.
type Set struct {
	base map[string]float64
	fit  map[string]Range
	keys []string
}

// NewSet returns an empty parameter set.
func NewSet() *Set {
	return &Set{
		base: make(map[string]float64),
		fit:  make(map[string]Range),
	}
}

// Assign classifies a single named value by shape: a 3-element list (or
// array) becomes a fit parameter as (lower, fiducial, upper), any scalar
// number becomes a base parameter. Note that no ordering check is made on
// the triple; an inverted range simply rejects every draw at prior time.
func (s *Set) Assign(name string, value interface{}) error {
	if name == "" {
		return errors.Errorf("Parameter name may not be empty")
	}

	if triple, ok := asTriple(value); ok {
		if _, seen := s.fit[name]; !seen {
			s.keys = append(s.keys, name)
		}
		s.fit[name] = triple
		delete(s.base, name)
		return nil
	}

	num, ok := asNumber(value)
	if !ok {
		return errors.Errorf("Parameter %s has unusable value %v (want a number or a 3-element range)", name, value)
	}

	s.base[name] = num
	s.dropFitKey(name)
	return nil
}

// Assignment is a single ordered name/value pair from a configuration source.
type Assignment struct {
	Name  string
	Value interface{}
}

// AssignAll applies ordered assignments, stopping at the first failure.
func (s *Set) AssignAll(assigns []Assignment) error {
	for _, a := range assigns {
		if err := s.Assign(a.Name, a.Value); err != nil {
			return errors.Wrapf(err, "Could not assign parameter %s", a.Name)
		}
	}
	return nil
}

// Reset clears all parameters and the fit-key ordering.
func (s *Set) Reset() {
	s.base = make(map[string]float64)
	s.fit = make(map[string]Range)
	s.keys = nil
}

// FitKeys returns the ordered fit parameter names. The returned slice is a
// copy and safe to hold across updates.
func (s *Set) FitKeys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Dim is the sampling dimensionality (number of fit parameters).
func (s *Set) Dim() int {
	return len(s.keys)
}

// Base returns a copy of the fixed parameters.
func (s *Set) Base() map[string]float64 {
	cp := make(map[string]float64, len(s.base))
	for k, v := range s.base {
		cp[k] = v
	}
	return cp
}

// FitRange returns the range registered for a fit parameter.
func (s *Set) FitRange(name string) (Range, bool) {
	r, ok := s.fit[name]
	return r, ok
}

// Fiducials returns the starting point vector in fit-key order.
func (s *Set) Fiducials() []float64 {
	fids := make([]float64, len(s.keys))
	for i, k := range s.keys {
		fids[i] = s.fit[k].Fiducial
	}
	return fids
}

// Named maps a coordinate vector back to named parameters using the fit-key
// order.
func (s *Set) Named(theta []float64) (map[string]float64, error) {
	if len(theta) != len(s.keys) {
		return nil, errors.Errorf("Coordinate vector has %d entries for %d fit parameters", len(theta), len(s.keys))
	}

	named := make(map[string]float64, len(theta))
	for i, k := range s.keys {
		named[k] = theta[i]
	}
	return named, nil
}

// LogPrior evaluates the flat prior for a coordinate vector aligned to the
// fit-key order: 0 when every coordinate lies inside its registered bounds,
// -Inf otherwise. A vector of the wrong length is rejected outright.
func (s *Set) LogPrior(theta []float64) float64 {
	if len(theta) != len(s.keys) {
		return math.Inf(-1)
	}

	for i, k := range s.keys {
		r := s.fit[k]
		if theta[i] < r.Lower || theta[i] > r.Upper {
			return math.Inf(-1)
		}
	}
	return 0.0
}

func (s *Set) dropFitKey(name string) {
	if _, seen := s.fit[name]; !seen {
		return
	}
	delete(s.fit, name)
	for i, k := range s.keys {
		if k == name {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// asTriple recognizes the fit-parameter shapes a config source can produce.
func asTriple(value interface{}) (Range, bool) {
	switch v := value.(type) {
	case Range:
		return v, true
	case [3]float64:
		return Range{v[0], v[1], v[2]}, true
	case []float64:
		if len(v) == 3 {
			return Range{v[0], v[1], v[2]}, true
		}
	case []interface{}:
		if len(v) != 3 {
			return Range{}, false
		}
		var vals [3]float64
		for i, elem := range v {
			num, ok := asNumber(elem)
			if !ok {
				return Range{}, false
			}
			vals[i] = num
		}
		return Range{vals[0], vals[1], vals[2]}, true
	}
	return Range{}, false
}

func asNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
