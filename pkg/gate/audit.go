package gate

import (
	"context"
	"time"
)

// BypassRecord is the structured audit trail for one emergency bypass.
// Suggestions name exemption rules that would have exempted the skipped gates,
// so the next push needs no bypass.
type BypassRecord struct {
	ID           string    `json:"id"`
	Reason       string    `json:"reason"`
	User         string    `json:"user"`
	Branch       string    `json:"branch,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	ChangedFiles []string  `json:"changed_files,omitempty"`
	SkippedGates []string  `json:"skipped_gates,omitempty"`
	Suggestions  []string  `json:"suggestions,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// AuditLogger persists resolution, execution, and bypass information.
type AuditLogger interface {
	// LogResolution records the effective gate set computed for a changeset.
	LogResolution(ctx context.Context, res Resolution) error

	// LogGateResult records the outcome of a single gate execution.
	// policyID and stage give traceability back to the document and run.
	LogGateResult(ctx context.Context, result Result, policyID, stage string) error

	// LogBypass records an emergency bypass event.
	LogBypass(ctx context.Context, rec BypassRecord) error

	// LogSystemError records failures occurring outside gate execution.
	// systemError: the specific error (e.g., ErrPolicyLoad, ErrContextStale).
	// branch, stage, policyID: context for the operation attempt, if known.
	LogSystemError(ctx context.Context, systemError error, branch, stage, policyID string) error
}
