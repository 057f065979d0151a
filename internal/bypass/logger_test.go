package bypass

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheNeerajGarg/gatekeeper/internal/match"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

func testEngine(t *testing.T) *match.Engine {
	t.Helper()
	bundle := &gate.Bundle{
		ID: "sha",
		Doc: &gate.Document{
			Version: "1.0.0",
			Gates: map[string]*gate.Definition{
				"coverage": {Name: "coverage", Tool: "diff-cover", Enabled: true, Required: true},
			},
			ExecutionOrder: []string{"coverage"},
			Exemptions: []gate.ExemptionRule{
				{
					Name:        "docs-only",
					Paths:       []string{"docs/**"},
					ExemptGates: []string{"coverage"},
					Reason:      "docs don't execute",
				},
			},
		},
	}
	engine, err := match.New(bundle)
	require.NoError(t, err)
	return engine
}

func TestRecordAndList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".emergency-bypasses")
	logger := New(dir, testEngine(t))

	rec := gate.BypassRecord{
		Reason:       "Production outage - rollback needed",
		Branch:       "main",
		Stage:        gate.StagePushToMain,
		ChangedFiles: []string{"docs/runbook.md", "src/app.py"},
		SkippedGates: []string{"coverage"},
	}
	require.NoError(t, logger.Record(context.Background(), &rec))

	// Identity fields are filled in
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.User)
	assert.False(t, rec.Timestamp.IsZero())

	// The matching exemption rule is suggested
	require.Len(t, rec.Suggestions, 1)
	assert.Contains(t, rec.Suggestions[0], `rule "docs-only" exempts gate "coverage"`)

	records, err := logger.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Production outage - rollback needed", records[0].Reason)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, []string{"coverage"}, records[0].SkippedGates)
}

func TestRecordWithoutReasonRefused(t *testing.T) {
	logger := New(t.TempDir(), nil)
	err := logger.Record(context.Background(), &gate.BypassRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, gate.ErrBypassRefused)
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	logger := New(dir, nil)

	older := gate.BypassRecord{Reason: "first", Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := gate.BypassRecord{Reason: "second", Timestamp: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, logger.Record(context.Background(), &older))
	require.NoError(t, logger.Record(context.Background(), &newer))

	records, err := logger.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Reason)
	assert.Equal(t, "first", records[1].Reason)
}

func TestListMissingDir(t *testing.T) {
	logger := New(filepath.Join(t.TempDir(), "never-created"), nil)
	records, err := logger.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}
