// Package env provides changeset facts detected from the environment: the
// pipeline stage and the acting user.
package env

import (
	"context"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// DetectStage maps CI environment variables to a stage name. Returns the
// empty string when no stage can be detected; callers then use the base
// configuration (highest standard).
func DetectStage(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}

	if getenv("GITHUB_ACTIONS") == "true" {
		if getenv("GITHUB_EVENT_NAME") == "pull_request" {
			return gate.StagePR
		}
		ref := getenv("GITHUB_REF")
		if ref == "refs/heads/main" || ref == "refs/heads/master" {
			return gate.StagePushToMain
		}
	}

	return ""
}

// CurrentUser returns the acting user: GIT_AUTHOR_NAME when set, else the OS
// user, else "unknown".
func CurrentUser() string {
	if name := strings.TrimSpace(os.Getenv("GIT_AUTHOR_NAME")); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// StageProvider implements gate.ContextProvider for stage detection.
type StageProvider struct {
	Getenv func(string) string // defaults to os.Getenv
}

var _ gate.ContextProvider = (*StageProvider)(nil)

// Describe implements gate.ContextProvider.
func (p *StageProvider) Describe() gate.Schema {
	return gate.Schema{ID: "stage", Description: "Pipeline stage detected from the environment"}
}

// Collect implements gate.ContextProvider.
func (p *StageProvider) Collect(ctx context.Context, repoDir string) (gate.Fact, error) {
	return gate.NewFact("stage", DetectStage(p.Getenv), time.Now()), nil
}

// UserProvider implements gate.ContextProvider for the acting user.
type UserProvider struct{}

var _ gate.ContextProvider = (*UserProvider)(nil)

// Describe implements gate.ContextProvider.
func (p *UserProvider) Describe() gate.Schema {
	return gate.Schema{ID: "user", Description: "Acting user for audit records"}
}

// Collect implements gate.ContextProvider.
func (p *UserProvider) Collect(ctx context.Context, repoDir string) (gate.Fact, error) {
	return gate.NewFact("user", CurrentUser(), time.Now()), nil
}
