package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kairo/internal/core"
	"kairo/internal/perception"
	"kairo/internal/types"
)

// rulesCmd groups rule-table commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, export and validate the classifier rule table",
}

var rulesListCmd = &cobra.Command{
	Use:   "list [domain]",
	Short: "List pattern rules with their current and declared weights",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesList,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write the active rule table, with tuned weights, as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesExport,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Parse and compile a rule-table file without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesValidate,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	var only types.DomainID
	if len(args) == 1 {
		only = types.DomainID(args[0])
		if !types.IsKnownDomain(only) || only == types.BaselineDomain {
			return fmt.Errorf("%w %q", types.ErrUnknownDomain, args[0])
		}
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withEngine(ctx, func(eng *core.Engine) error {
		table := eng.Weights.Snapshot().Table
		t := newTable("ID", "DOMAIN", "WEIGHT", "BASE", "PATTERN")
		for _, r := range table.Patterns {
			if only != "" && r.Domain != only {
				continue
			}
			weight := fmt.Sprint(r.Weight)
			if r.Weight != r.BaseWeight {
				weight += " *"
			}
			t.Row(r.ID, string(r.Domain), weight, fmt.Sprint(r.BaseWeight), r.Pattern.String())
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	})
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withEngine(ctx, func(eng *core.Engine) error {
		table := eng.Weights.Snapshot().Table
		if err := perception.SaveRuleTable(args[0], table); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d patterns to %s\n", len(table.Patterns), args[0])
		return nil
	})
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	table, err := perception.LoadRuleTable(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d patterns, %d disambiguations, %d combinations, %d markers)\n",
		args[0], len(table.Patterns), len(table.Disambiguations), len(table.Combinations), len(table.ComprehensiveMarkers))
	return nil
}
