package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cosmofit/backend"
	"cosmofit/mcmc"
)

var bestfitCmd = &cobra.Command{
	Use:   "bestfit",
	Short: "Print best-fit parameters and chain statistics from a checkpoint file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := backend.Open(viper.GetString("backend"))
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		meta, err := store.Meta()
		if err != nil {
			return err
		}
		bf, lnp, err := mcmc.BestFitFrom(store)
		if err != nil {
			return err
		}
		stats, err := mcmc.StatsFrom(store)
		if err != nil {
			return err
		}

		return writeFitTable(os.Stdout, meta.FitKeys, bf, lnp, stats)
	},
}
