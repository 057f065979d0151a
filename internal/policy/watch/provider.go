// Package watch provides a policy provider that reloads the document when the
// file changes on disk, without restarting the process. Long-running callers
// (a daemon serving /metrics, a watch-mode hook) get the new policy on their
// next GetBundle call.
package watch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/TheNeerajGarg/gatekeeper/internal/policy/file"
	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// Provider wraps a file.Provider with an fsnotify watcher. A failed reload
// keeps serving the last good bundle and reports the failure through the
// audit logger.
type Provider struct {
	inner   *file.Provider
	audit   gate.AuditLogger
	watcher *fsnotify.Watcher

	dirty atomic.Bool

	mu   sync.RWMutex
	last *gate.Bundle

	done chan struct{}
}

var _ gate.PolicyProvider = (*Provider)(nil)

// New creates a watching provider for the document at path. The returned
// provider must be closed.
func New(path, overridePath string, audit gate.AuditLogger) (*Provider, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}
	if overridePath != "" {
		// Override file may not exist yet; watching it is best effort.
		_ = watcher.Add(overridePath)
	}

	p := &Provider{
		inner:   file.New(path, overridePath),
		audit:   audit,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	p.dirty.Store(true)

	go p.watch()
	return p, nil
}

func (p *Provider) watch() {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				p.dirty.Store(true)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			if p.audit != nil {
				_ = p.audit.LogSystemError(context.Background(), err, "", "", "")
			}
		case <-p.done:
			return
		}
	}
}

// GetBundle implements gate.PolicyProvider. It reloads after a file event and
// falls back to the last good bundle when the reload fails.
func (p *Provider) GetBundle(ctx context.Context) (*gate.Bundle, error) {
	if p.dirty.Swap(false) {
		bundle, err := p.inner.GetBundle(ctx)
		if err != nil {
			p.dirty.Store(true) // retry on the next call
			p.mu.RLock()
			last := p.last
			p.mu.RUnlock()
			if last != nil {
				if p.audit != nil {
					_ = p.audit.LogSystemError(ctx, err, "", "", last.ID)
				}
				return last, nil
			}
			return nil, err
		}
		p.mu.Lock()
		p.last = bundle
		p.mu.Unlock()
		return bundle, nil
	}

	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()
	if last != nil {
		return last, nil
	}
	return p.inner.GetBundle(ctx)
}

// Close stops the watcher.
func (p *Provider) Close() error {
	close(p.done)
	return p.watcher.Close()
}
