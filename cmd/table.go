package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"cosmofit/mcmc"
)

var (
	paramColor = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow)
)

// writeFitTable prints the best-fit point and the marginal chain statistics
// as a human-readable table.
func writeFitTable(w io.Writer, fitKeys []string, bf map[string]float64, lnp float64, stats []mcmc.ParamStat) error {
	byName := make(map[string]mcmc.ParamStat, len(stats))
	for _, s := range stats {
		byName[s.Name] = s
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Parameter", "Best Fit", "Mean", "Std", "P16", "P50", "P84"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, k := range fitKeys {
		s := byName[k]
		data = append(data, []string{
			paramColor.Sprint(k),
			fmt.Sprintf("%.6g", bf[k]),
			fmt.Sprintf("%.6g", s.Mean),
			fmt.Sprintf("%.6g", s.Std),
			fmt.Sprintf("%.6g", s.P16),
			fmt.Sprintf("%.6g", s.P50),
			fmt.Sprintf("%.6g", s.P84),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if math.IsInf(lnp, -1) {
		_, err := fmt.Fprintf(w, "Best log-probability: %s\n", warnColor.Sprint("-Inf (no accepted sample)"))
		return err
	}
	_, err := fmt.Fprintf(w, "Best log-probability: %.6g\n", lnp)
	return err
}
