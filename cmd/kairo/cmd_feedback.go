package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kairo/internal/autopoiesis"
	"kairo/internal/store"
	"kairo/internal/types"
)

var (
	feedbackLimit     int
	feedbackOlderThan time.Duration
)

// feedbackCmd groups feedback-log commands
var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect and prune the feedback log",
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-domain success rate and satisfaction over the whole log",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackStats,
}

var feedbackRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent feedback records",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackRecent,
}

var feedbackPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete feedback older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runFeedbackPrune,
}

func init() {
	feedbackRecentCmd.Flags().IntVarP(&feedbackLimit, "limit", "n", 10, "Number of records to show")
	feedbackPruneCmd.Flags().DurationVar(&feedbackOlderThan, "older-than", 30*24*time.Hour, "Age cutoff")

	feedbackCmd.AddCommand(feedbackStatsCmd)
	feedbackCmd.AddCommand(feedbackRecentCmd)
	feedbackCmd.AddCommand(feedbackPruneCmd)
}

// withStore opens only the feedback backend.
func withStore(fn func(store.Backend) error) (err error) {
	backend, err := store.Open(cfg.Feedback)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(backend)
}

// domainStats folds records into per-domain signals, baseline included.
func domainStats(recs []types.FeedbackRecord) map[types.DomainID]*autopoiesis.DomainSignal {
	out := make(map[types.DomainID]*autopoiesis.DomainSignal)
	for _, rec := range recs {
		for _, d := range rec.DomainsUsed {
			sig, ok := out[d]
			if !ok {
				sig = &autopoiesis.DomainSignal{}
				out[d] = sig
			}
			sig.Observe(rec, d)
		}
	}
	return out
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withStore(func(s store.Backend) error {
		recs, _, err := s.Since(ctx, 0)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d feedback records", len(recs))))
		if len(recs) == 0 {
			return nil
		}

		stats := domainStats(recs)
		t := newTable("DOMAIN", "SAMPLES", "SUCCESS", "SATISFACTION")
		for _, d := range types.AllDomains() {
			sig, ok := stats[d]
			if !ok {
				continue
			}
			t.Row(string(d), fmt.Sprint(sig.Samples),
				fmt.Sprintf("%.0f%%", sig.SuccessRate()*100), fmt.Sprintf("%.2f", sig.MeanSatisfaction()))
		}
		fmt.Fprintln(w, t.Render())
		return nil
	})
}

func runFeedbackRecent(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withStore(func(s store.Backend) error {
		recs, _, err := s.Since(ctx, 0)
		if err != nil {
			return err
		}
		if feedbackLimit > 0 && len(recs) > feedbackLimit {
			recs = recs[len(recs)-feedbackLimit:]
		}

		t := newTable("RECORDED", "PRIMARY", "CONF", "OK", "SAT", "FAILED", "REQUEST")
		for i := len(recs) - 1; i >= 0; i-- {
			r := recs[i]
			failed := "-"
			if len(r.FailedDomains) > 0 {
				names := make([]string, len(r.FailedDomains))
				for j, d := range r.FailedDomains {
					names[j] = string(d)
				}
				failed = strings.Join(names, ",")
			}
			t.Row(r.RecordedAt.Format(time.DateTime), string(r.Primary), fmt.Sprint(r.Confidence),
				fmt.Sprint(r.OutcomeSuccess), fmt.Sprintf("%.2f", r.Satisfaction), failed, r.RequestID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	})
}

func runFeedbackPrune(cmd *cobra.Command, args []string) error {
	if feedbackOlderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %s", feedbackOlderThan)
	}
	ctx, cancel := commandContext(timeout)
	defer cancel()

	return withStore(func(s store.Backend) error {
		n, err := s.Prune(ctx, time.Now().Add(-feedbackOlderThan))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records\n", n)
		return nil
	})
}
