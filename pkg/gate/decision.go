package gate

import "time"

// Stage names understood by the policy. The base document is the highest
// standard; pre-push and pr stages may carry relaxations.
const (
	StagePrePush    = "pre-push"
	StagePR         = "pr"
	StagePushToMain = "push-to-main"
)

// ValidStage reports whether s names a known stage. The empty stage is valid
// and means "use the base configuration".
func ValidStage(s string) bool {
	switch s {
	case "", StagePrePush, StagePR, StagePushToMain:
		return true
	}
	return false
}

// Changeset is the unit of work gates are resolved against: the branch being
// pushed, the files it changes, and the pipeline stage.
type Changeset struct {
	Branch string
	Files  []string
	Stage  string
}

// ResolvedGate is a gate definition with stage relaxations applied, plus the
// exemption outcome for the changeset.
type ResolvedGate struct {
	Definition

	Exempted     bool
	ExemptedBy   string // name of the matching exemption rule, if any
	ExemptReason string
}

// Resolution is the effective policy for one changeset: the ordered gate set
// after stage relaxations, exemption rules, and omit patterns.
type Resolution struct {
	PolicyID     string
	Stage        string
	Branch       string
	Files        []string
	Gates        []ResolvedGate
	MatchedRules []string
	Bypass       BypassConfig
}

// Active returns the gates that must actually run, in execution order.
func (r *Resolution) Active() []ResolvedGate {
	active := make([]ResolvedGate, 0, len(r.Gates))
	for _, g := range r.Gates {
		if !g.Exempted {
			active = append(active, g)
		}
	}
	return active
}

// Status is the outcome of a single gate execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // dependency failed, gate never ran
	StatusNotRun  Status = "not-run" // run stopped before reaching the gate
)

// Result records the outcome of executing one gate.
type Result struct {
	Gate        string
	Status      Status
	Required    bool
	Duration    time.Duration
	Output      string
	Message     string
	FailMessage string
	SkipReason  string
}

// Failed reports whether the result counts against the run.
func (r Result) Failed() bool {
	return r.Status == StatusFailed || (r.Status == StatusSkipped && r.Required)
}

// Report is the aggregate outcome of a gate run.
type Report struct {
	Passed   bool
	Bypassed bool
	Results  []Result
	Failures []Result
	Duration time.Duration
}
