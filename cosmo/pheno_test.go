package cosmo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhenoModelRun(t *testing.T) {
	assert := assert.New(t)

	m, err := NewPhenoModel(2, 100, 50.0)
	assert.NoError(err)

	// Missing parameters fail one at a time
	_, err = m.Run()
	assert.Error(err)
	m.SetParams(map[string]float64{ParamAmp: 1000.0})
	_, err = m.Run()
	assert.Error(err)
	m.SetParams(map[string]float64{ParamTilt: -0.5, ParamDamp: 80.0})

	s, err := m.Run()
	assert.NoError(err)
	assert.NoError(s.Check())
	assert.Len(s.TT, 99)

	// At the pivot the power law factor is 1
	idx := int(50.0) - 2
	want := 1000.0 * math.Exp(-(50.0/80.0)*(50.0/80.0))
	assert.InDelta(want, s.TT[idx], 1e-9)
}

func TestPhenoModelBadParams(t *testing.T) {
	assert := assert.New(t)

	m, err := NewPhenoModel(2, 10, 5.0)
	assert.NoError(err)
	m.SetParams(map[string]float64{ParamAmp: 100.0, ParamTilt: 0.0, ParamDamp: 50.0})

	m.SetParams(map[string]float64{ParamAmp: -1.0})
	_, err = m.Run()
	assert.Error(err)

	m.SetParams(map[string]float64{ParamAmp: 100.0, ParamDamp: 0.0})
	_, err = m.Run()
	assert.Error(err)
}

func TestPhenoModelClone(t *testing.T) {
	assert := assert.New(t)

	m, err := NewPhenoModel(2, 10, 5.0)
	assert.NoError(err)
	m.SetParams(map[string]float64{ParamAmp: 100.0, ParamTilt: 0.2, ParamDamp: 50.0})

	cp := m.Clone().(*PhenoModel)
	cp.SetParams(map[string]float64{ParamAmp: 7.0})

	assert.InDelta(100.0, m.Params()[ParamAmp], 1e-12)
	assert.InDelta(7.0, cp.Params()[ParamAmp], 1e-12)
}

func TestNewPhenoModelValidation(t *testing.T) {
	assert := assert.New(t)

	_, err := NewPhenoModel(0, 10, 5.0)
	assert.Error(err)
	_, err = NewPhenoModel(10, 10, 5.0)
	assert.Error(err)
	_, err = NewPhenoModel(2, 10, 0.0)
	assert.Error(err)
}
