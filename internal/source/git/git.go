// Package git provides changeset facts collected from the local repository:
// the current branch name and the set of changed files relative to a base ref.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TheNeerajGarg/gatekeeper/internal/metrics"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// DefaultBaseRef is the merge base changed files are computed against.
const DefaultBaseRef = "origin/main"

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: git %s: %v: %s",
			gate.ErrContextSourceUnavailable, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Branch returns the current branch name for the repository at dir.
func Branch(ctx context.Context, dir string) (string, error) {
	return runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// ChangedFiles returns files changed since the merge base with baseRef,
// including staged but uncommitted changes. Deduplicated, in git's order.
func ChangedFiles(ctx context.Context, dir, baseRef string) ([]string, error) {
	if baseRef == "" {
		baseRef = DefaultBaseRef
	}

	committed, err := runGit(ctx, dir, "diff", "--name-only", baseRef+"...HEAD")
	if err != nil {
		// Shallow clones and fresh repos may not have the base ref; fall back
		// to comparing against HEAD only.
		committed = ""
	}
	staged, stagedErr := runGit(ctx, dir, "diff", "--name-only", "--cached")
	if err != nil && stagedErr != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	for _, line := range append(strings.Split(committed, "\n"), strings.Split(staged, "\n")...) {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		files = append(files, line)
	}
	return files, nil
}

// BranchProvider implements gate.ContextProvider for the current branch.
type BranchProvider struct{}

var _ gate.ContextProvider = (*BranchProvider)(nil)

// Describe implements gate.ContextProvider.
func (p *BranchProvider) Describe() gate.Schema {
	return gate.Schema{ID: "branch", Description: "Current git branch name"}
}

// Collect implements gate.ContextProvider.
func (p *BranchProvider) Collect(ctx context.Context, repoDir string) (gate.Fact, error) {
	timer := prometheus.NewTimer(metrics.ContextCollectLatency.WithLabelValues("branch"))
	defer timer.ObserveDuration()

	branch, err := Branch(ctx, repoDir)
	if err != nil {
		metrics.ContextCollectErrors.WithLabelValues("branch", "git").Inc()
		return nil, err
	}
	return gate.NewFact("branch", branch, time.Now()), nil
}

// ChangedFilesProvider implements gate.ContextProvider for the changed-file set.
type ChangedFilesProvider struct {
	BaseRef string // empty => DefaultBaseRef
}

var _ gate.ContextProvider = (*ChangedFilesProvider)(nil)

// Describe implements gate.ContextProvider.
func (p *ChangedFilesProvider) Describe() gate.Schema {
	return gate.Schema{ID: "changed_files", Description: "Files changed relative to the base ref"}
}

// Collect implements gate.ContextProvider.
func (p *ChangedFilesProvider) Collect(ctx context.Context, repoDir string) (gate.Fact, error) {
	timer := prometheus.NewTimer(metrics.ContextCollectLatency.WithLabelValues("changed_files"))
	defer timer.ObserveDuration()

	files, err := ChangedFiles(ctx, repoDir, p.BaseRef)
	if err != nil {
		metrics.ContextCollectErrors.WithLabelValues("changed_files", "git").Inc()
		return nil, err
	}
	return gate.NewFact("changed_files", files, time.Now()), nil
}
