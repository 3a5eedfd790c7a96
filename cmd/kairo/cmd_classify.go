package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kairo/internal/core"
	"kairo/internal/types"
)

var (
	classifyTrace bool
	classifyJSON  bool
	planURL       string
)

// classifyCmd shows how a request is scored
var classifyCmd = &cobra.Command{
	Use:   "classify [request]",
	Short: "Score a request against every capability domain",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

// planCmd shows which domains and actions a request would activate
var planCmd = &cobra.Command{
	Use:   "plan [request]",
	Short: "Show the activation plan for a request without running it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlan,
}

func init() {
	for _, c := range []*cobra.Command{classifyCmd, planCmd} {
		c.Flags().BoolVar(&classifyTrace, "trace", false, "Show every score adjustment")
		c.Flags().BoolVar(&classifyJSON, "json", false, "Print JSON instead of a table")
	}
	planCmd.Flags().StringVar(&planURL, "url", "", "URL of the page the request was made from")
}

// planView is the JSON shape of an activation plan.
type planView struct {
	Domains  []types.DomainID `json:"domains"`
	Actions  []types.ActionID `json:"actions"`
	Priority string           `json:"priority"`
	Rules    []string         `json:"rules"`
}

func newPlanView(p types.ActivationPlan) planView {
	return planView{
		Domains:  p.DomainList(),
		Actions:  p.ActionList(),
		Priority: p.Priority.String(),
		Rules:    p.Rules,
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withEngine(ctx, func(eng *core.Engine) error {
		cls := eng.Orchestrator.Classify(types.Request{Text: joinArgs(args)})
		w := cmd.OutOrStdout()
		if classifyJSON {
			return writeJSON(w, cls)
		}
		writeClassification(w, cls, classifyTrace)
		return nil
	})
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	req := types.Request{
		Text:    joinArgs(args),
		Context: types.RequestContext{URL: planURL, Timestamp: time.Now()},
	}
	return withEngine(ctx, func(eng *core.Engine) error {
		cls := eng.Orchestrator.Classify(req)
		plan := eng.Orchestrator.Plan(cls, req.Context)

		w := cmd.OutOrStdout()
		if classifyJSON {
			return writeJSON(w, struct {
				Classification types.ClassificationResult `json:"classification"`
				Plan           planView                   `json:"plan"`
			}{cls, newPlanView(plan)})
		}
		writeClassification(w, cls, classifyTrace)
		writePlan(w, plan)
		return nil
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
