package spectrum

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDlClRoundTrip(t *testing.T) {
	assert := assert.New(t)

	ell := []float64{2, 10, 100, 2000}
	dl := []float64{100.0, 2500.0, 5700.0, 900.0}

	cl, err := DlToCl(ell, dl)
	assert.NoError(err)

	// Spot check the l=2 conversion by hand
	assert.InDelta(100.0*2.0*math.Pi/6.0, cl[0], 1e-9)

	back, err := ClToDl(ell, cl)
	assert.NoError(err)
	assert.InDeltaSlice(dl, back, 1e-9)

	_, err = DlToCl([]float64{0}, []float64{1})
	assert.Error(err)
	_, err = ClToDl([]float64{2, 3}, []float64{1})
	assert.Error(err)
}

func TestInterp(t *testing.T) {
	assert := assert.New(t)

	x := []float64{0, 1, 2, 3}
	y := []float64{0, 10, 20, 30}

	out, err := Interp(x, y, []float64{0.5, 1.5, 3.0})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{5, 15, 30}, out, 1e-12)

	// Out of range and bad grids fail
	_, err = Interp(x, y, []float64{-0.1})
	assert.Error(err)
	_, err = Interp(x, y, []float64{3.1})
	assert.Error(err)
	_, err = Interp([]float64{0, 0}, []float64{1, 1}, []float64{0})
	assert.Error(err)
	_, err = Interp([]float64{0}, []float64{1}, []float64{0})
	assert.Error(err)
}

func TestResample(t *testing.T) {
	assert := assert.New(t)

	s := New([]float64{2, 4, 6})
	copy(s.TT, []float64{10, 20, 30})
	s.TE = []float64{1, 2, 3}

	out, err := s.Resample([]float64{3, 5})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{15, 25}, out.TT, 1e-12)
	assert.InDeltaSlice([]float64{1.5, 2.5}, out.TE, 1e-12)
	assert.Nil(out.EE)

	// Clone is independent
	cp := s.Clone()
	cp.TT[0] = -1
	assert.InDelta(10.0, s.TT[0], 1e-12)

	// Mismatched band fails Check and Resample
	s.EE = []float64{1}
	assert.Error(s.Check())
	_, err = s.Resample([]float64{3})
	assert.Error(err)
}

func TestObservedCSVRoundTrip(t *testing.T) {
	assert := assert.New(t)

	obs := &Observed{
		Ell:   []float64{2, 3, 4},
		Dl:    []float64{100, 200, 300},
		Sigma: []float64{1, 2, 3},
	}
	assert.NoError(obs.Check())

	path := filepath.Join(t.TempDir(), "obs.csv")
	assert.NoError(obs.WriteCSV(path))

	back, err := ReadObservedCSV(path)
	assert.NoError(err)
	assert.InDeltaSlice(obs.Ell, back.Ell, 1e-12)
	assert.InDeltaSlice(obs.Dl, back.Dl, 1e-12)
	assert.InDeltaSlice(obs.Sigma, back.Sigma, 1e-12)

	_, err = ReadObservedCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(err)

	bad := &Observed{Ell: []float64{2}, Dl: []float64{1}, Sigma: []float64{0}}
	assert.Error(bad.Check())
}
