// Package runner executes resolved quality gates: external tool invocations
// in execution order, honoring depends_on, per-gate timeouts, and the
// required/optional distinction. A set emergency-bypass variable
// short-circuits the run and leaves an audit record instead.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TheNeerajGarg/gatekeeper/internal/bypass"
	"github.com/TheNeerajGarg/gatekeeper/internal/metrics"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

const defaultConcurrency = 4

// Options tune gate execution.
type Options struct {
	// Dir is the working directory gates run in. Empty means the process cwd.
	Dir string
	// Concurrency bounds parallel execution inside an independent batch.
	Concurrency int
	// Env is appended to the process environment for gate commands.
	Env []string
	// LookPath overrides tool resolution, for tests. Defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Getenv overrides bypass variable lookup, for tests. Defaults to os.Getenv.
	Getenv func(string) string
}

// Runner implements gate.Runner.
type Runner struct {
	audit  gate.AuditLogger
	bypass *bypass.Logger
	opts   Options
}

var _ gate.Runner = (*Runner)(nil)

// New creates a Runner. bypassLogger may be nil when bypass recording is
// handled elsewhere.
func New(audit gate.AuditLogger, bypassLogger *bypass.Logger, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	return &Runner{audit: audit, bypass: bypassLogger, opts: opts}
}

// Run implements gate.Runner.
func (r *Runner) Run(ctx context.Context, res gate.Resolution) (gate.Report, error) {
	if r.opts.Getenv(res.Bypass.EnableVarName()) != "" {
		return r.runBypassed(ctx, res)
	}

	start := time.Now()
	active := res.Active()
	status := make(map[string]gate.Status, len(active))

	var report gate.Report
	stopped := false

	for batchStart := 0; batchStart < len(active); {
		batch := nextBatch(active, batchStart)
		results := make([]gate.Result, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Concurrency)
		for i, rg := range batch {
			if reason, blocked := blockedBy(rg, status); blocked {
				results[i] = gate.Result{
					Gate:       rg.Name,
					Status:     gate.StatusSkipped,
					Required:   rg.Required,
					SkipReason: reason,
				}
				continue
			}
			g.Go(func() error {
				results[i] = r.executeGate(gctx, rg)
				return nil
			})
		}
		_ = g.Wait() // executeGate never returns an error

		// Process batch results in execution order
		for _, result := range results {
			status[result.Gate] = result.Status
			report.Results = append(report.Results, result)
			if r.audit != nil {
				_ = r.audit.LogGateResult(ctx, result, res.PolicyID, res.Stage)
			}
			if result.Failed() {
				report.Failures = append(report.Failures, result)
				if result.Required {
					stopped = true
				}
			}
		}

		batchStart += len(batch)
		if stopped {
			// Remaining gates never run
			for _, rg := range active[batchStart:] {
				report.Results = append(report.Results, gate.Result{
					Gate:       rg.Name,
					Status:     gate.StatusNotRun,
					Required:   rg.Required,
					SkipReason: "run stopped at earlier required failure",
				})
			}
			break
		}
	}

	report.Duration = time.Since(start)
	report.Passed = len(report.Failures) == 0
	return report, nil
}

// runBypassed records an emergency bypass instead of executing gates. A
// bypass without a reason is refused.
func (r *Runner) runBypassed(ctx context.Context, res gate.Resolution) (gate.Report, error) {
	reason := r.opts.Getenv(res.Bypass.ReasonVarName())
	if strings.TrimSpace(reason) == "" {
		err := fmt.Errorf("%w: set %s", gate.ErrBypassRefused, res.Bypass.ReasonVarName())
		if r.audit != nil {
			_ = r.audit.LogSystemError(ctx, err, res.Branch, res.Stage, res.PolicyID)
		}
		return gate.Report{}, err
	}

	var skipped []string
	for _, rg := range res.Active() {
		skipped = append(skipped, rg.Name)
	}

	rec := gate.BypassRecord{
		Reason:       reason,
		Branch:       res.Branch,
		Stage:        res.Stage,
		ChangedFiles: res.Files,
		SkippedGates: skipped,
	}
	if r.bypass != nil {
		if err := r.bypass.Record(ctx, &rec); err != nil {
			return gate.Report{}, err
		}
	}
	metrics.BypassesTotal.Inc()
	if r.audit != nil {
		_ = r.audit.LogBypass(ctx, rec)
	}

	return gate.Report{Passed: true, Bypassed: true}, nil
}

// nextBatch returns the longest run of gates starting at i with no dependency
// edges onto other gates in the same run; they can execute in parallel.
func nextBatch(active []gate.ResolvedGate, i int) []gate.ResolvedGate {
	end := i + 1
	inBatch := map[string]bool{active[i].Name: true}
	for end < len(active) {
		dependsOnBatch := false
		for _, dep := range active[end].DependsOn {
			if inBatch[dep] {
				dependsOnBatch = true
				break
			}
		}
		if dependsOnBatch {
			break
		}
		inBatch[active[end].Name] = true
		end++
	}
	return active[i:end]
}

// blockedBy reports whether a dependency of rg failed or was skipped in an
// earlier batch. Exempted dependencies don't appear in status and don't block.
func blockedBy(rg gate.ResolvedGate, status map[string]gate.Status) (string, bool) {
	for _, dep := range rg.DependsOn {
		switch status[dep] {
		case gate.StatusFailed:
			return fmt.Sprintf("dependency %q failed", dep), true
		case gate.StatusSkipped:
			return fmt.Sprintf("dependency %q was skipped", dep), true
		}
	}
	return "", false
}

// executeGate runs one gate to completion.
func (r *Runner) executeGate(ctx context.Context, rg gate.ResolvedGate) gate.Result {
	timer := time.Now()
	result := gate.Result{Gate: rg.Name, Required: rg.Required}

	// Tool availability: a missing tool fails a required gate and silently
	// passes an optional one.
	if _, err := r.opts.LookPath(rg.Tool); err != nil {
		if rg.Required {
			result.Status = gate.StatusFailed
			result.Message = fmt.Sprintf("tool %q not installed", rg.Tool)
			result.FailMessage = rg.FailMessage
			metrics.GateFailures.WithLabelValues(rg.Name, "tool_missing").Inc()
		} else {
			result.Status = gate.StatusPassed
			result.Message = fmt.Sprintf("tool %q not installed (skipped - optional)", rg.Tool)
		}
		return result
	}

	command := renderCommand(rg)
	if command == "" {
		result.Status = gate.StatusFailed
		result.Message = "gate has no command"
		metrics.GateFailures.WithLabelValues(rg.Name, "no_command").Inc()
		return result
	}

	cctx, cancel := context.WithTimeout(ctx, rg.Timeout())
	defer cancel()

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	cmd.Dir = r.opts.Dir
	if len(r.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), r.opts.Env...)
	}

	output, err := cmd.CombinedOutput()
	result.Duration = time.Since(timer)
	result.Output = string(output)
	metrics.GateRunLatency.WithLabelValues(rg.Name).Observe(result.Duration.Seconds())

	switch {
	case cctx.Err() == context.DeadlineExceeded:
		result.Status = gate.StatusFailed
		result.Message = fmt.Sprintf("%v after %s", gate.ErrGateTimeout, rg.Timeout())
		result.FailMessage = rg.FailMessage
		metrics.GateFailures.WithLabelValues(rg.Name, "timeout").Inc()
	case err != nil:
		result.Status = gate.StatusFailed
		result.Message = exitMessage(err)
		result.FailMessage = rg.FailMessage
		metrics.GateFailures.WithLabelValues(rg.Name, "exit_nonzero").Inc()
	default:
		result.Status = gate.StatusPassed
	}

	return result
}

// renderCommand builds the shell command: the single command or the joined
// command list, with the {threshold} placeholder substituted.
func renderCommand(rg gate.ResolvedGate) string {
	command := rg.Command
	if command == "" && len(rg.Commands) > 0 {
		command = strings.Join(rg.Commands, " && ")
	}
	if rg.Threshold != nil {
		command = strings.ReplaceAll(command, "{threshold}", strconv.Itoa(*rg.Threshold))
	}
	return command
}

func exitMessage(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("exit status %d", exitErr.ExitCode())
	}
	return err.Error()
}
