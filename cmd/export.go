package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cosmofit/backend"
)

var exportCmd = &cobra.Command{
	Use:   "export <chain.csv>",
	Short: "Dump the flat chain to CSV for downstream plotting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportChain(args[0])
	},
}

func exportChain(outFile string) error {
	store, err := backend.Open(viper.GetString("backend"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	meta, err := store.Meta()
	if err != nil {
		return err
	}
	chain, err := store.FlatChain()
	if err != nil {
		return err
	}
	lnp, err := store.FlatLogProb()
	if err != nil {
		return err
	}
	if len(chain) != len(lnp) {
		return errors.Errorf("Chain has %d rows but %d log-probabilities", len(chain), len(lnp))
	}

	f, err := os.Create(outFile)
	if err != nil {
		return errors.Wrapf(err, "Could not create %s", outFile)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := append(append([]string{}, meta.FitKeys...), "lnprob")
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "Could not write chain CSV")
	}

	row := make([]string, len(meta.FitKeys)+1)
	for i, theta := range chain {
		for j, v := range theta {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = strconv.FormatFloat(lnp[i], 'g', -1, 64)
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "Could not write chain CSV")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "Could not write chain CSV")
	}

	fmt.Printf("Wrote %d samples to %s\n", len(chain), outFile)
	return nil
}
