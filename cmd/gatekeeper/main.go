package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TheNeerajGarg/gatekeeper/internal/metrics"
)

var (
	// Global flags
	configPath   string
	overridePath string
	repoDir      string
	verbose      bool
	metricsAddr  string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gatekeeper",
	Short: "gatekeeper - branch-aware quality gate enforcement",
	Long: `gatekeeper resolves and runs quality gates for a changeset.

Gates, their execution order, stage relaxations, and exemption rules live in
quality-gates.yaml; a repo-local quality-gates.local.yaml can refine them.
The base configuration is the highest standard (push-to-main); earlier stages
may carry explicit relaxations. Emergency bypasses are environment-triggered
and always leave a JSON audit record.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		metrics.MustRegister()
		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "quality-gates.yaml", "path to the gate policy document")
	rootCmd.PersistentFlags().StringVar(&overridePath, "override", "", "explicit override file (default: the document's override_file)")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "repository directory gates run against")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(bypassesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
