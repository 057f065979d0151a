package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockContextProvider is an in-package mock for testing
type mockContextProvider struct {
	id    string
	desc  string
	value any
	age   time.Duration
	err   error
}

func (m *mockContextProvider) Describe() Schema {
	return Schema{ID: m.id, Description: m.desc}
}

func (m *mockContextProvider) Collect(ctx context.Context, repoDir string) (Fact, error) {
	if m.err != nil {
		return nil, m.err
	}
	return NewFact(m.id, m.value, time.Now().Add(-m.age)), nil
}

func TestContextRegistry(t *testing.T) {
	t.Run("Register and GetProvider", func(t *testing.T) {
		// Setup
		registry := NewContextRegistry()
		provider := &mockContextProvider{id: "branch", desc: "Current branch", value: "main"}

		// Register the provider
		registry.Register(provider)

		// Get the provider back
		retrieved, exists := registry.GetProvider("branch")
		if !exists {
			t.Fatalf("Expected provider to exist but it doesn't")
		}

		// Check that it's the same provider
		if retrieved != provider {
			t.Errorf("Retrieved provider is not the same as the registered one")
		}

		// Check that a non-existent provider doesn't exist
		_, exists = registry.GetProvider("nonexistent")
		if exists {
			t.Errorf("Expected non-existent provider to not exist but it does")
		}
	})

	t.Run("Snapshot successful", func(t *testing.T) {
		// Setup
		registry := NewContextRegistry()
		provider1 := &mockContextProvider{id: "branch", desc: "Current branch", value: "feature/login"}
		provider2 := &mockContextProvider{id: "stage", desc: "Detected stage", value: "pr"}

		// Register the providers
		registry.Register(provider1)
		registry.Register(provider2)

		// Get the snapshot
		facts, err := registry.Snapshot(context.Background(), "/tmp/repo")
		if err != nil {
			t.Fatalf("Expected no error but got: %v", err)
		}

		// Check the facts
		if facts["branch"] != "feature/login" {
			t.Errorf("Expected branch value to be 'feature/login', got: %v", facts["branch"])
		}

		if facts["stage"] != "pr" {
			t.Errorf("Expected stage value to be 'pr', got: %v", facts["stage"])
		}
	})

	t.Run("Snapshot with error", func(t *testing.T) {
		// Setup
		registry := NewContextRegistry()
		expectedErr := errors.New("test error")
		provider := &mockContextProvider{id: "error_fact", desc: "Error fact", err: expectedErr}

		// Register the provider
		registry.Register(provider)

		// Get the snapshot, expecting an error
		_, err := registry.Snapshot(context.Background(), "/tmp/repo")
		if err == nil {
			t.Fatalf("Expected an error but got none")
		}

		// Check that the error message contains the fact ID and the original error
		if err.Error() != "collecting fact error_fact: test error" {
			t.Errorf("Unexpected error message: %v", err)
		}
	})

	t.Run("Snapshot with stale fact", func(t *testing.T) {
		registry := NewContextRegistry()
		provider := &mockContextProvider{id: "branch", desc: "Current branch", value: "main", age: time.Hour}
		registry.Register(provider)

		_, err := registry.SnapshotWithOpts(context.Background(), "/tmp/repo", SnapshotOpts{MaxAge: time.Minute})
		if err == nil {
			t.Fatalf("Expected a staleness error but got none")
		}
		if !errors.Is(err, ErrContextStale) {
			t.Errorf("Expected error to wrap ErrContextStale, got: %v", err)
		}
	})
}
