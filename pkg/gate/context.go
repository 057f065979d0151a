package gate

import (
	"context"
	"time"
)

// Fact represents a single piece of data about the changeset, with timestamp.
type Fact interface {
	ID() string           // e.g., "changed_files"
	Value() any           // The actual data point
	Timestamp() time.Time // When the fact data was considered current
}

// Schema provides metadata about a Fact or input structure.
type Schema struct {
	ID          string
	Description string
}

// ContextProvider fetches or calculates a specific changeset fact, such as
// the current branch or the set of changed files.
type ContextProvider interface {
	Describe() Schema
	// Collect fetches the fact for the repository at repoDir. Implementations
	// handle caching & staleness checks. Must return ErrContextStale or
	// ErrContextSourceUnavailable for critical failures.
	Collect(ctx context.Context, repoDir string) (Fact, error)
}

// BasicFact is a concrete implementation of the Fact interface
type BasicFact struct {
	FactID    string
	FactValue any
	FactTime  time.Time
}

func (f BasicFact) ID() string           { return f.FactID }
func (f BasicFact) Value() any           { return f.FactValue }
func (f BasicFact) Timestamp() time.Time { return f.FactTime }

// NewFact creates a new Fact with the given ID, value, and timestamp
func NewFact(id string, value any, timestamp time.Time) Fact {
	return BasicFact{
		FactID:    id,
		FactValue: value,
		FactTime:  timestamp,
	}
}
