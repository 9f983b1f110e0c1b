// Package cmd defines the command-line interface for cosmofit.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cosmofit",
	Short: "MCMC parameter fitting for CMB power spectra",
	Long: `cosmofit fits cosmological parameters against observed power spectra
with an ensemble MCMC sampler. Among other features:

  - Ordered YAML parameter files (ranges become fit parameters)
  - Gaussian and exact full-sky TT likelihoods
  - SQLite chain checkpointing with resume
  - Best-fit extraction and marginal chain statistics
`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in the config file and ENV variables if set.
func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".cosmofit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("COSMOFIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// buildLogger creates the CLI logger: terse production output normally,
// debug-level development output under --verbose.
func buildLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bestfitCmd)
	rootCmd.AddCommand(exportCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file (default is $HOME/.cosmofit.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	rootCmd.PersistentFlags().StringP("backend", "b", "chain.db", "Chain checkpoint file")
	rootCmd.PersistentFlags().Int64P("seed", "r", 1, "Random seed to use")
	rootCmd.PersistentFlags().IntP("walkers", "w", 0, "Walker count (0 = twice the fit dimensionality)")
	rootCmd.PersistentFlags().Float64P("delta", "d", 0.01, "Fractional jitter around fiducials for fresh starts")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding root flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
