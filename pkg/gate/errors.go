package gate

import "errors"

// Standard error types for gate operations
var (
	ErrContextSourceUnavailable = errors.New("gate: context source unavailable")
	ErrContextStale             = errors.New("gate: context data is stale")
	ErrPolicyLoad               = errors.New("gate: policy document could not be loaded")
	ErrPolicyValidate           = errors.New("gate: policy document is invalid")
	ErrUnknownStage             = errors.New("gate: unknown stage")
	ErrGateTimeout              = errors.New("gate: gate execution timed out")
	ErrBypassRefused            = errors.New("gate: emergency bypass requires a reason")
)

// IsWrappingError checks if err is wrapping the target error using errors.Is.
// This is a helper for testing error wrapping.
func IsWrappingError(err, target error) bool {
	return errors.Is(err, target)
}
