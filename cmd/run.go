package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cosmofit/cosmo"
	"cosmofit/like"
	"cosmofit/mcmc"
	"cosmofit/params"
	"cosmofit/sampler"
	"cosmofit/spectrum"
)

var runCmd = &cobra.Command{
	Use:   "run <params.yaml>",
	Short: "Run (or resume) a parameter fit",
	Long: `run loads an ordered parameter file, builds the phenomenological
spectrum model and the configured likelihoods, and advances the chain.
Use --resume to continue from the checkpoint file instead of starting over.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFit(args[0])
	},
}

func init() {
	runCmd.Flags().IntP("steps", "n", 1000, "Stored samples per walker")
	runCmd.Flags().Bool("resume", false, "Continue from the checkpoint file")
	runCmd.Flags().String("obs", "", "Observed spectrum CSV (ell,dl,sigma)")
	runCmd.Flags().Int("lmin", 2, "Lowest multipole of the model spectrum")
	runCmd.Flags().Int("lmax", 2500, "Highest multipole of the model spectrum")
	runCmd.Flags().Float64("pivot", 1000, "Pivot multipole of the model spectrum")
	runCmd.Flags().Bool("exact", false, "Use the exact full-sky TT likelihood instead of Gaussian")
	runCmd.Flags().Float64("fsky", 1.0, "Sky fraction for the exact likelihood")
	runCmd.Flags().String("monitor", "", "Serve expvar progress counters on this address (e.g. :8000)")
	if err := viper.BindPFlags(runCmd.Flags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding run flags: %v\n", err)
		os.Exit(1)
	}
}

func runFit(paramFile string) error {
	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	data, err := os.ReadFile(paramFile)
	if err != nil {
		return errors.Wrapf(err, "Could not read parameter file %s", paramFile)
	}
	assigns, err := params.ParseYAML(data)
	if err != nil {
		return err
	}

	m := mcmc.NewMCMC(
		viper.GetInt("walkers"),
		viper.GetFloat64("delta"),
		viper.GetString("backend"),
		viper.GetInt64("seed"),
		log,
	)
	defer func() { _ = m.Close() }()

	if err := m.SetParams(assigns); err != nil {
		return err
	}

	model, err := cosmo.NewPhenoModel(
		viper.GetInt("lmin"),
		viper.GetInt("lmax"),
		viper.GetFloat64("pivot"),
	)
	if err != nil {
		return err
	}
	m.SetCosmology(model)

	obsFile := viper.GetString("obs")
	if obsFile == "" {
		return errors.Errorf("An observed spectrum is required (--obs)")
	}
	obs, err := spectrum.ReadObservedCSV(obsFile)
	if err != nil {
		return err
	}

	var lf like.Func
	if viper.GetBool("exact") {
		lf, err = like.ExactTT(obs, nil, viper.GetFloat64("fsky"))
	} else {
		lf, err = like.Gaussian(obs)
	}
	if err != nil {
		return err
	}
	m.AddLikelihood(lf)

	steps := viper.GetInt("steps")
	opts := []sampler.Option{}

	mon := &monitor{}
	if addr := viper.GetString("monitor"); addr != "" {
		if err := mon.Start(addr); err != nil {
			return err
		}
		defer mon.Stop()
		opts = append(opts, sampler.WithProgress(mon.Progress))
	}

	start := time.Now()
	if err := m.Run(steps, viper.GetBool("resume"), opts...); err != nil {
		return err
	}

	fmt.Printf("Sampled %d steps with %d walkers in %v\n",
		steps, m.Walkers(), time.Since(start).Round(time.Millisecond))

	bf, lnp, err := m.BestFit()
	if err != nil {
		return err
	}
	stats, err := m.ChainStats()
	if err != nil {
		return err
	}

	pset := m.Params()
	return writeFitTable(os.Stdout, pset.FitKeys(), bf, lnp, stats)
}
