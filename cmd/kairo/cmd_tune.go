package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kairo/internal/core"
	"kairo/internal/types"
)

// tuneCmd runs one tuning cycle over the stored feedback
var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Run one adaptive tuning cycle over all stored feedback",
	Long: `Aggregates every stored feedback record and nudges the pattern
weights of domains that fall short of (or recover past) the configured
targets. Weights are persisted when rules.persist_weights is set.`,
	Args: cobra.NoArgs,
	RunE: runTune,
}

func runTune(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withEngine(ctx, func(eng *core.Engine) error {
		report, err := eng.Tuner.RunCycle(ctx)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("tuning cycle · %d records", report.Records)))
		if len(report.Adjustments) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("no weights changed"))
		}
		for _, a := range report.Adjustments {
			line := fmt.Sprintf("%-12s %+d on %d rules (samples %d, success %.0f%%, satisfaction %.2f)",
				a.Domain, a.Delta, a.Rules, a.Samples, a.Signal.SuccessRate()*100, a.Signal.MeanSatisfaction())
			if a.Delta < 0 {
				fmt.Fprintln(w, warnStyle.Render(line))
			} else {
				fmt.Fprintln(w, line)
			}
		}
		pending := make([]types.DomainID, 0, len(report.Pending))
		for d := range report.Pending {
			pending = append(pending, d)
		}
		types.SortDomains(pending)
		for _, d := range pending {
			fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%-12s %d samples pending", d, report.Pending[d])))
		}
		return nil
	})
}
