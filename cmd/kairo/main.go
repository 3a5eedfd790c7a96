// Package main provides the kairo CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kairo/internal/config"
	"kairo/internal/core"
	"kairo/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration
	dbPath     string
	rulesPath  string

	// cfg is loaded in PersistentPreRunE
	cfg *config.Config
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "kairo",
	Short: "kairo - multi-domain request orchestrator",
	Long: `kairo classifies a free-text request into capability domains,
activates the relevant domains concurrently and merges their results
into one sectioned response. Feedback from every request tunes the
classifier's pattern weights over time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(loaded)
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := logging.Configure(loaded.Logging.ToLogging()); err != nil {
			return err
		}
		cfg = loaded
		logging.BootDebug("Config loaded from %s (backend=%s)", configPath, cfg.Feedback.Backend)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// applyFlagOverrides layers command-line flags over the loaded config.
func applyFlagOverrides(c *config.Config) {
	if verbose {
		c.Logging.Enabled = true
		c.Logging.Level = "debug"
	}
	if dbPath != "" {
		c.Feedback.DatabasePath = dbPath
		if dbPath == ":memory:" {
			c.Feedback.Backend = "memory"
		}
	}
	if rulesPath != "" {
		c.Rules.Path = rulesPath
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "kairo.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Feedback database path (\":memory:\" for in-process)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Rule table YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context cancelled on SIGINT/SIGTERM or after d.
// A non-positive d means no deadline.
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	return tctx, func() {
		cancel()
		stop()
	}
}

// withEngine builds an engine from the loaded config, runs fn and closes
// the engine, flushing queued feedback.
func withEngine(ctx context.Context, fn func(*core.Engine) error) (err error) {
	eng, err := core.NewEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(eng)
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
