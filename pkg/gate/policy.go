package gate

import (
	"context"
	"time"
)

const defaultTimeoutSeconds = 300

// Definition describes a single quality gate. The base configuration is the
// highest standard (push-to-main requirements); Relaxations are explicit
// opt-outs for earlier stages.
type Definition struct {
	Name           string                `yaml:"-"`
	Tool           string                `yaml:"tool"`
	Command        string                `yaml:"command,omitempty"`
	Commands       []string              `yaml:"commands,omitempty"`
	Threshold      *int                  `yaml:"threshold,omitempty"`
	Description    string                `yaml:"description,omitempty"`
	Enabled        bool                  `yaml:"enabled"`
	Required       bool                  `yaml:"required"`
	DependsOn      []string              `yaml:"depends_on,omitempty"`
	OmitPatterns   []string              `yaml:"omit_patterns,omitempty"`
	FailMessage    string                `yaml:"fail_message,omitempty"`
	TimeoutSeconds int                   `yaml:"timeout_seconds,omitempty"`
	Relaxations    map[string]Relaxation `yaml:"stage_relaxations,omitempty"`
}

// Timeout returns the per-gate execution timeout, defaulting to five minutes.
func (d *Definition) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Relaxation is a stage-specific override of gate fields. Nil fields keep the
// base value.
type Relaxation struct {
	Enabled        *bool `yaml:"enabled,omitempty"`
	Required       *bool `yaml:"required,omitempty"`
	Threshold      *int  `yaml:"threshold,omitempty"`
	TimeoutSeconds *int  `yaml:"timeout_seconds,omitempty"`
}

// ExemptionRule relaxes or forces gates for changesets matching its
// predicates. A rule matches when any branch glob matches the branch name, or
// when every changed file matches at least one path glob. Rules are evaluated
// in document order, first match wins per gate; RequireGates beat ExemptGates
// across all matching rules.
type ExemptionRule struct {
	Name         string   `yaml:"name"`
	Branches     []string `yaml:"branches,omitempty"`
	Paths        []string `yaml:"paths,omitempty"`
	ExemptGates  []string `yaml:"exempt_gates,omitempty"`
	RequireGates []string `yaml:"require_gates,omitempty"`
	Reason       string   `yaml:"reason,omitempty"`
}

// BypassConfig controls the emergency bypass escape hatch.
type BypassConfig struct {
	EnableVar string `yaml:"enable_var,omitempty"`
	ReasonVar string `yaml:"reason_var,omitempty"`
	RecordDir string `yaml:"record_dir,omitempty"`
}

// EnableVarName returns the bypass trigger variable name.
func (b BypassConfig) EnableVarName() string {
	if b.EnableVar == "" {
		return "EMERGENCY_PUSH"
	}
	return b.EnableVar
}

// ReasonVarName returns the bypass reason variable name.
func (b BypassConfig) ReasonVarName() string {
	if b.ReasonVar == "" {
		return "EMERGENCY_REASON"
	}
	return b.ReasonVar
}

// RecordDirName returns the directory bypass records are written to.
func (b BypassConfig) RecordDirName() string {
	if b.RecordDir == "" {
		return ".emergency-bypasses"
	}
	return b.RecordDir
}

// Document is the complete gate policy: gate definitions, the global
// execution order, exemption rules, and bypass settings.
type Document struct {
	Version        string                 `yaml:"version"`
	Gates          map[string]*Definition `yaml:"gates"`
	ExecutionOrder []string               `yaml:"execution_order"`
	Exemptions     []ExemptionRule        `yaml:"exemptions,omitempty"`
	Bypass         BypassConfig           `yaml:"emergency_bypass,omitempty"`
	OverrideFile   string                 `yaml:"override_file,omitempty"`
}

// Gate returns the definition for name, or nil.
func (d *Document) Gate(name string) *Definition {
	if d.Gates == nil {
		return nil
	}
	return d.Gates[name]
}

// Bundle pairs a validated policy document with its content identity.
type Bundle struct {
	ID  string // SHA-256 of the merged document content
	Doc *Document
}

// PolicyProvider retrieves policy bundles.
type PolicyProvider interface {
	// GetBundle fetches the current policy bundle (e.g., from file).
	// Implementations handle caching/reloads. Should return ErrPolicyLoad on failure.
	GetBundle(ctx context.Context) (*Bundle, error)
}
