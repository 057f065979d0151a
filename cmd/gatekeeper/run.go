package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheNeerajGarg/gatekeeper/internal/audit/zapaudit"
	"github.com/TheNeerajGarg/gatekeeper/internal/bypass"
	"github.com/TheNeerajGarg/gatekeeper/internal/match"
	"github.com/TheNeerajGarg/gatekeeper/internal/policy/file"
	"github.com/TheNeerajGarg/gatekeeper/internal/runner"
	"github.com/TheNeerajGarg/gatekeeper/internal/source/env"
	"github.com/TheNeerajGarg/gatekeeper/internal/source/git"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

var (
	flagStage       string
	flagBranch      string
	flagFiles       []string
	flagBaseRef     string
	flagConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve and execute quality gates for the current changeset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bundle, err := loadBundle(ctx)
		if err != nil {
			return err
		}

		cs, err := buildChangeset(ctx)
		if err != nil {
			return err
		}

		engine, err := match.New(bundle)
		if err != nil {
			return err
		}

		res, err := engine.Resolve(cs)
		if err != nil {
			return err
		}

		audit := zapaudit.New(logger)
		_ = audit.LogResolution(ctx, res)

		bypassLogger := bypass.New(res.Bypass.RecordDirName(), engine)
		r := runner.New(audit, bypassLogger, runner.Options{
			Dir:         repoDir,
			Concurrency: flagConcurrency,
		})

		report, err := r.Run(ctx, res)
		if err != nil {
			_ = audit.LogSystemError(ctx, err, cs.Branch, cs.Stage, res.PolicyID)
			return err
		}

		printReport(res, report)

		if !report.Passed {
			return fmt.Errorf("%d gate(s) failed", len(report.Failures))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&flagStage, "stage", "", "stage to enforce (pre-push, pr, push-to-main; default: auto-detect)")
	runCmd.Flags().StringVar(&flagBranch, "branch", "", "branch name (default: from git)")
	runCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "changed files (default: from git)")
	runCmd.Flags().StringVar(&flagBaseRef, "base", git.DefaultBaseRef, "base ref for changed-file detection")
	runCmd.Flags().IntVar(&flagConcurrency, "concurrency", 4, "parallel gate executions within an independent batch")
}

// loadBundle loads and validates the policy document.
func loadBundle(ctx context.Context) (*gate.Bundle, error) {
	provider := file.New(configPath, overridePath)
	bundle, err := provider.GetBundle(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("policy loaded",
		zap.String("policy_id", bundle.ID),
		zap.String("version", bundle.Doc.Version),
		zap.Int("gates", len(bundle.Doc.Gates)))
	return bundle, nil
}

// buildChangeset assembles the changeset from flags, falling back to the
// context providers for anything not given explicitly.
func buildChangeset(ctx context.Context) (gate.Changeset, error) {
	cs := gate.Changeset{
		Branch: flagBranch,
		Files:  flagFiles,
		Stage:  flagStage,
	}
	if cs.Branch != "" && cs.Files != nil && cs.Stage != "" {
		return cs, nil
	}

	registry := gate.NewContextRegistry()
	if cs.Branch == "" {
		registry.Register(&git.BranchProvider{})
	}
	if cs.Files == nil {
		registry.Register(&git.ChangedFilesProvider{BaseRef: flagBaseRef})
	}
	if cs.Stage == "" {
		registry.Register(&env.StageProvider{})
	}

	facts, err := registry.SnapshotWithOpts(ctx, repoDir, gate.SnapshotOpts{
		PerProviderTimeout: 10 * time.Second,
	})
	if err != nil {
		return gate.Changeset{}, err
	}

	if v, ok := facts["branch"].(string); ok {
		cs.Branch = v
	}
	if v, ok := facts["changed_files"].([]string); ok {
		cs.Files = v
	}
	if v, ok := facts["stage"].(string); ok {
		cs.Stage = v
	}
	return cs, nil
}

func printReport(res gate.Resolution, report gate.Report) {
	if report.Bypassed {
		fmt.Printf("EMERGENCY BYPASS: %d gate(s) skipped, record written to %s\n",
			len(res.Active()), res.Bypass.RecordDirName())
		return
	}

	for _, g := range res.Gates {
		if g.Exempted {
			reason := g.ExemptReason
			if g.ExemptedBy != "" {
				reason = fmt.Sprintf("rule %s: %s", g.ExemptedBy, reason)
			}
			fmt.Printf("  - %-20s exempted (%s)\n", g.Name, reason)
		}
	}

	for _, r := range report.Results {
		switch r.Status {
		case gate.StatusPassed:
			fmt.Printf("  ✓ %-20s passed (%.1fs)\n", r.Gate, r.Duration.Seconds())
		case gate.StatusFailed:
			fmt.Printf("  ✗ %-20s failed (%.1fs): %s\n", r.Gate, r.Duration.Seconds(), r.Message)
			if r.FailMessage != "" {
				fmt.Printf("      %s\n", r.FailMessage)
			}
		case gate.StatusSkipped:
			fmt.Printf("  - %-20s skipped: %s\n", r.Gate, r.SkipReason)
		case gate.StatusNotRun:
			fmt.Printf("  - %-20s not run: %s\n", r.Gate, r.SkipReason)
		}
	}

	if report.Passed {
		fmt.Printf("All gates passed in %.1fs\n", report.Duration.Seconds())
	} else {
		fmt.Printf("%d gate(s) failed in %.1fs\n", len(report.Failures), report.Duration.Seconds())
	}
}
