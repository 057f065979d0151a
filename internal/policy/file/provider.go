package file

import (
	"context"

	"github.com/TheNeerajGarg/gatekeeper/internal/policy"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// Provider implements gate.PolicyProvider for file-based policy documents.
// The underlying loader caches by mtime, so repeated calls are cheap and a
// changed file is picked up on the next call.
type Provider struct {
	Path         string
	OverridePath string // empty => follow the document's override_file

	loader *policy.Loader
}

var _ gate.PolicyProvider = (*Provider)(nil)

// New creates a new file-based policy provider
func New(path, overridePath string) *Provider {
	return &Provider{
		Path:         path,
		OverridePath: overridePath,
		loader:       policy.NewLoader(),
	}
}

// GetBundle implements gate.PolicyProvider
func (p *Provider) GetBundle(ctx context.Context) (*gate.Bundle, error) {
	return p.loader.LoadWithOverride(p.Path, p.OverridePath)
}
