package spectrum

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Observed is a single measured bandpower set with per-multipole errors,
// stored in Dl form like everything else.
type Observed struct {
	Ell   []float64
	Dl    []float64
	Sigma []float64
}

// Check returns an error on mismatched columns or non-positive errors.
func (o *Observed) Check() error {
	if len(o.Ell) < 1 {
		return errors.Errorf("Observed spectra are empty")
	}
	if len(o.Dl) != len(o.Ell) || len(o.Sigma) != len(o.Ell) {
		return errors.Errorf("Observed column mismatch: %d ell, %d dl, %d sigma", len(o.Ell), len(o.Dl), len(o.Sigma))
	}
	for i, sg := range o.Sigma {
		if sg <= 0 {
			return errors.Errorf("Observed sigma[%d]=%f - errors must be positive", i, sg)
		}
	}
	return nil
}

// ReadObservedCSV loads observed bandpowers from a headerless CSV file with
// columns ell, Dl, sigma.
func ReadObservedCSV(filename string) (*Observed, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ observed spectra from %s", filename)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE observed spectra from %s", filename)
	}

	obs := &Observed{}
	for i, rec := range records {
		if len(rec) != 3 {
			return nil, errors.Errorf("Row %d of %s has %d columns, want ell,dl,sigma", i+1, filename, len(rec))
		}

		var vals [3]float64
		for j, field := range rec {
			vals[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "Bad number %q at row %d of %s", field, i+1, filename)
			}
		}

		obs.Ell = append(obs.Ell, vals[0])
		obs.Dl = append(obs.Dl, vals[1])
		obs.Sigma = append(obs.Sigma, vals[2])
	}

	if err := obs.Check(); err != nil {
		return nil, errors.Wrapf(err, "Observed spectra from %s are not valid", filename)
	}
	return obs, nil
}

// WriteCSV saves the observed bandpowers in the format ReadObservedCSV reads.
func (o *Observed) WriteCSV(filename string) error {
	if err := o.Check(); err != nil {
		return errors.Wrap(err, "Refusing to write invalid observed spectra")
	}

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "Could not create %s", filename)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := range o.Ell {
		rec := []string{
			strconv.FormatFloat(o.Ell[i], 'g', -1, 64),
			strconv.FormatFloat(o.Dl[i], 'g', -1, 64),
			strconv.FormatFloat(o.Sigma[i], 'g', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrapf(err, "Could not write row %d to %s", i+1, filename)
		}
	}

	w.Flush()
	return errors.Wrapf(w.Error(), "Could not flush %s", filename)
}
