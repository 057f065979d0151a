package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/TheNeerajGarg/gatekeeper/internal/audit/zapaudit"
	"github.com/TheNeerajGarg/gatekeeper/internal/match"
	"github.com/TheNeerajGarg/gatekeeper/internal/policy/file"
	"github.com/TheNeerajGarg/gatekeeper/internal/runner"
	"github.com/TheNeerajGarg/gatekeeper/internal/source/mock"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

const basePolicy = `version: "1.0.0"
gates:
  format:
    tool: sh
    command: "true"
    enabled: true
    required: true
  tests:
    tool: sh
    command: "true"
    enabled: true
    required: true
    depends_on: [format]
    fail_message: "Run the test suite locally before pushing"
  coverage:
    tool: sh
    command: "test {threshold} -le 100"
    threshold: 85
    enabled: true
    required: true
    depends_on: [tests]
    stage_relaxations:
      pre-push:
        threshold: 70
      pr:
        threshold: 80
execution_order: [format, tests, coverage]
exemptions:
  - name: docs-only
    paths: ["docs/**", "*.md"]
    exempt_gates: [tests, coverage]
    reason: "Documentation changes do not affect code behavior"
`

func writePolicy(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "quality-gates.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write policy file: %v", err)
	}
	return path
}

func TestResolveAndRunIntegration(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePolicy(t, dir, basePolicy)

	// Create the components
	policyProvider := file.New(path, "")
	logger := zapaudit.New(zap.NewNop())

	// Collect changeset context from mock providers
	registry := gate.NewContextRegistry()
	registry.Register(mock.NewProvider("branch", "feature/login", "Current branch name"))
	registry.Register(mock.NewProvider("changed_files", []string{"internal/auth/login.go"}, "Files changed against the base ref"))
	registry.Register(mock.NewProvider("stage", gate.StagePrePush, "Workflow stage"))

	facts, err := registry.SnapshotWithOpts(ctx, dir, gate.SnapshotOpts{
		MaxAge:             30 * time.Second,
		PerProviderTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to collect context: %v", err)
	}

	cs := gate.Changeset{
		Branch: facts["branch"].(string),
		Files:  facts["changed_files"].([]string),
		Stage:  facts["stage"].(string),
	}

	// Get the policy bundle and resolve the effective gate set
	bundle, err := policyProvider.GetBundle(ctx)
	if err != nil {
		t.Fatalf("Failed to get policy bundle: %v", err)
	}
	engine, err := match.New(bundle)
	if err != nil {
		t.Fatalf("Failed to build match engine: %v", err)
	}
	res, err := engine.Resolve(cs)
	if err != nil {
		t.Fatalf("Failed to resolve changeset: %v", err)
	}

	// Code changes at pre-push: all three gates active, coverage relaxed to 70
	if len(res.Active()) != 3 {
		t.Fatalf("Expected 3 active gates, got %d", len(res.Active()))
	}
	for _, g := range res.Gates {
		if g.Name == "coverage" && (g.Threshold == nil || *g.Threshold != 70) {
			t.Errorf("Expected coverage threshold 70 at pre-push, got %v", g.Threshold)
		}
	}

	// Run the gates
	run := runner.New(logger, nil, runner.Options{Dir: dir})
	report, err := run.Run(ctx, res)
	if err != nil {
		t.Fatalf("Failed to run gates: %v", err)
	}
	if !report.Passed {
		t.Errorf("Expected run to pass, got failures: %v", report.Failures)
	}
	if len(report.Results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(report.Results))
	}

	// A docs-only changeset exempts tests and coverage
	res, err = engine.Resolve(gate.Changeset{
		Branch: "feature/login",
		Files:  []string{"docs/setup.md", "README.md"},
		Stage:  gate.StagePrePush,
	})
	if err != nil {
		t.Fatalf("Failed to resolve docs changeset: %v", err)
	}
	if len(res.Active()) != 1 || res.Active()[0].Name != "format" {
		t.Errorf("Expected only format active for docs changes, got: %v", res.Active())
	}
	if len(res.MatchedRules) != 1 || res.MatchedRules[0] != "docs-only" {
		t.Errorf("Expected docs-only rule to match, got: %v", res.MatchedRules)
	}
}

func TestRequiredFailureStopsRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePolicy(t, dir, basePolicy)

	bundle, err := file.New(path, "").GetBundle(ctx)
	if err != nil {
		t.Fatalf("Failed to get policy bundle: %v", err)
	}
	engine, err := match.New(bundle)
	if err != nil {
		t.Fatalf("Failed to build match engine: %v", err)
	}
	res, err := engine.Resolve(gate.Changeset{
		Branch: "main",
		Files:  []string{"cmd/main.go"},
		Stage:  gate.StagePushToMain,
	})
	if err != nil {
		t.Fatalf("Failed to resolve changeset: %v", err)
	}

	// Sabotage the tests gate so the required failure stops the run
	for i := range res.Gates {
		if res.Gates[i].Name == "tests" {
			res.Gates[i].Command = "echo 'assertion failed'; false"
		}
	}

	run := runner.New(zapaudit.New(zap.NewNop()), nil, runner.Options{Dir: dir})
	report, err := run.Run(ctx, res)
	if err != nil {
		t.Fatalf("Failed to run gates: %v", err)
	}
	if report.Passed {
		t.Fatal("Expected run to fail")
	}

	byGate := map[string]gate.Result{}
	for _, r := range report.Results {
		byGate[r.Gate] = r
	}
	if byGate["format"].Status != gate.StatusPassed {
		t.Errorf("Expected format to pass, got %s", byGate["format"].Status)
	}
	if byGate["tests"].Status != gate.StatusFailed {
		t.Errorf("Expected tests to fail, got %s", byGate["tests"].Status)
	}
	if byGate["tests"].FailMessage != "Run the test suite locally before pushing" {
		t.Errorf("Expected fail message on tests, got %q", byGate["tests"].FailMessage)
	}
	if byGate["coverage"].Status != gate.StatusNotRun {
		t.Errorf("Expected coverage to not run after the required failure, got %s", byGate["coverage"].Status)
	}
}
