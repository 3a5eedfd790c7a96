package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"kairo/internal/articulation"
	"kairo/internal/core"
	"kairo/internal/logging"
	"kairo/internal/types"
)

var (
	runURL   string
	runTitle string
	runRaw   bool
	runJSON  bool
)

// runCmd orchestrates a single request
var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Orchestrate one request and print the merged response",
	Long: `Classifies the request, activates the planned domains concurrently and
prints the synthesized response.

Examples:
  kairo run "find the latest news about electric cars"
  kairo run --url https://shop.example.com "buy a laptop under $800"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "URL of the page the request was made from")
	runCmd.Flags().StringVar(&runTitle, "title", "", "Title of the page the request was made from")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "Print markdown without terminal rendering")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the response envelope as JSON")

	renderCmd.Flags().BoolVar(&runRaw, "raw", false, "Print markdown without terminal rendering")
}

// renderCmd renders a saved JSON envelope
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a response envelope saved by run --json (stdin when no file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRender,
}

func runRequest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	req := types.Request{
		Text: joinArgs(args),
		Context: types.RequestContext{
			URL:       runURL,
			Title:     runTitle,
			Timestamp: time.Now(),
		},
	}
	return withEngine(ctx, func(eng *core.Engine) error {
		out, err := eng.Orchestrator.Orchestrate(ctx, req)
		if err != nil {
			return err
		}
		logging.Boot("Request %s answered in %s", out.RequestID, out.Elapsed)

		if runJSON {
			return articulation.NewEmitter(cmd.OutOrStdout(), true).Emit(envelopeOf(out))
		}

		var renderer *glamour.TermRenderer
		if !runRaw {
			renderer = newRenderer(defaultWrap)
		}
		writeOutcome(cmd.OutOrStdout(), out, renderer)
		return nil
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	env, method, err := articulation.ParseEnvelope(string(raw))
	if err != nil {
		return err
	}
	logging.BootDebug("Envelope %s parsed as %s", env.Data.RequestID, method)

	var renderer *glamour.TermRenderer
	if !runRaw {
		renderer = newRenderer(defaultWrap)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s · primary %s (%d) · %dms",
		env.Data.RequestID, env.Data.Primary, env.Data.Confidence, env.Data.ElapsedMs)))
	fmt.Fprintln(w, renderMarkdown(renderer, env.Result))
	return nil
}

func envelopeOf(out core.Outcome) articulation.Envelope {
	return articulation.NewEnvelope(out.RequestID, out.Classification, out.Results, out.Response, out.Elapsed)
}

func writeOutcome(w io.Writer, out core.Outcome, r *glamour.TermRenderer) {
	fmt.Fprintln(w, outcomeHeader(out))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderMarkdown(r, out.Response.Markdown()))
}
