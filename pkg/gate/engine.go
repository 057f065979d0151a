package gate

import "context"

// Resolver computes the effective policy for a changeset.
type Resolver interface {
	// Resolve applies stage relaxations, exemption rules, and omit patterns.
	// Must return ErrUnknownStage for a stage name the policy doesn't know.
	Resolve(cs Changeset) (Resolution, error)
}

// Runner executes the gates of a resolution.
type Runner interface {
	// Run executes the active gates in order, honoring depends_on and
	// per-gate timeouts. A set bypass variable short-circuits the run.
	Run(ctx context.Context, res Resolution) (Report, error)
}
