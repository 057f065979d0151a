package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// SnapshotOpts lets the caller tune latency / staleness guarantees.
type SnapshotOpts struct {
	MaxAge             time.Duration // zero => no age check
	PerProviderTimeout time.Duration // enforced with ctx.WithTimeout
}

// ContextRegistry holds a collection of ContextProviders and orchestrates
// collection of the changeset facts the match engine needs.
type ContextRegistry struct {
	providers map[string]ContextProvider
	mu        sync.RWMutex
}

// NewContextRegistry creates a new empty ContextRegistry.
func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{
		providers: make(map[string]ContextProvider),
	}
}

// Register adds a ContextProvider to the registry.
// If a provider with the same ID already exists, it will be replaced.
func (r *ContextRegistry) Register(provider ContextProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema := provider.Describe()
	r.providers[schema.ID] = provider
}

// GetProvider retrieves a ContextProvider by ID.
func (r *ContextRegistry) GetProvider(factID string) (ContextProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[factID]
	return provider, exists
}

// Snapshot collects all facts from registered providers for the repository at
// repoDir. Returns a map of fact ID to fact value, suitable for building a
// Changeset. For callers that don't need to tune options.
func (r *ContextRegistry) Snapshot(ctx context.Context, repoDir string) (map[string]any, error) {
	return r.SnapshotWithOpts(ctx, repoDir, SnapshotOpts{})
}

// SnapshotWithOpts collects all facts from registered providers with the given options.
// Uses parallel collection with errgroup and applies staleness checks.
func (r *ContextRegistry) SnapshotWithOpts(ctx context.Context, repoDir string, opts SnapshotOpts) (map[string]any, error) {
	r.mu.RLock()
	// Copy the providers map to avoid holding the lock during collection
	providers := make(map[string]ContextProvider, len(r.providers))
	for id, provider := range r.providers {
		providers[id] = provider
	}
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)

	type result struct {
		id  string
		val any
		err error
	}
	results := make(chan result, len(providers))

	for id, provider := range providers {
		g.Go(func() error {
			pctx := gctx
			if opts.PerProviderTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, opts.PerProviderTimeout)
				defer cancel()
			}

			fact, err := provider.Collect(pctx, repoDir)
			if err != nil {
				results <- result{id: id, err: fmt.Errorf("collecting fact %s: %w", id, err)}
				return nil // Errors are collected via the channel, don't fail the errgroup
			}

			if opts.MaxAge > 0 && time.Since(fact.Timestamp()) > opts.MaxAge {
				results <- result{id: id, err: fmt.Errorf("collecting fact %s: %w", id, ErrContextStale)}
				return nil
			}

			results <- result{id: fact.ID(), val: fact.Value(), err: nil}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err // Shouldn't happen, errors go through the channel
	}
	close(results)

	resultMap := make(map[string]any, len(providers))
	var firstErr error

	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		resultMap[res.id] = res.val
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return resultMap, nil
}
