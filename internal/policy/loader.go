// Package policy loads and validates quality-gate policy documents.
//
// A document is YAML: gate definitions, a global execution order, exemption
// rules, and emergency-bypass settings. A repo-local override file may refine
// the base document; the base config is the highest standard and overrides
// are deep-merged on top before validation.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// DefaultOverrideFile is consulted next to the working directory when the
// base document doesn't name one.
const DefaultOverrideFile = "quality-gates.local.yaml"

// snapshot is a cached load keyed by file modification times.
type snapshot struct {
	bundle        *gate.Bundle
	baseMtime     time.Time
	overrideMtime time.Time
}

// Loader loads, merges, validates, and caches policy documents.
type Loader struct {
	cached atomic.Value // *snapshot
}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the base document at path, merges the override file it names (or
// DefaultOverrideFile if present), validates the result, and returns a bundle
// whose ID is the SHA-256 of the merged content. Loads are cached by mtime.
func (l *Loader) Load(path string) (*gate.Bundle, error) {
	return l.LoadWithOverride(path, "")
}

// LoadWithOverride is Load with an explicit override path. An empty
// overridePath falls back to the document's override_file setting; a missing
// override file is not an error.
func (l *Loader) LoadWithOverride(path, overridePath string) (*gate.Bundle, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s: %v", gate.ErrPolicyLoad, path, err)
	}

	baseInfo, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gate.ErrPolicyLoad, err)
	}

	baseBytes, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", gate.ErrPolicyLoad, absPath, err)
	}

	var base map[string]any
	if err := yaml.Unmarshal(baseBytes, &base); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", gate.ErrPolicyLoad, absPath, err)
	}
	if base == nil {
		return nil, fmt.Errorf("%w: %s is empty", gate.ErrPolicyLoad, absPath)
	}

	if overridePath == "" {
		if named, ok := base["override_file"].(string); ok && named != "" {
			overridePath = named
		} else {
			overridePath = DefaultOverrideFile
		}
		if !filepath.IsAbs(overridePath) {
			overridePath = filepath.Join(filepath.Dir(absPath), overridePath)
		}
	}

	var overrideMtime time.Time
	var overrides map[string]any
	if info, err := os.Stat(overridePath); err == nil {
		overrideMtime = info.ModTime()
		overrideBytes, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading override %s: %v", gate.ErrPolicyLoad, overridePath, err)
		}
		if err := yaml.Unmarshal(overrideBytes, &overrides); err != nil {
			return nil, fmt.Errorf("%w: parsing override %s: %v", gate.ErrPolicyLoad, overridePath, err)
		}
	}

	// Serve the cached bundle when neither file changed
	if cached, ok := l.cached.Load().(*snapshot); ok && cached != nil {
		if cached.baseMtime.Equal(baseInfo.ModTime()) && cached.overrideMtime.Equal(overrideMtime) {
			return cached.bundle, nil
		}
	}

	merged := mergeDocuments(base, overrides)

	mergedBytes, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing merged document: %v", gate.ErrPolicyLoad, err)
	}

	doc, err := parseDocument(mergedBytes)
	if err != nil {
		return nil, err
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(mergedBytes)
	bundle := &gate.Bundle{
		ID:  hex.EncodeToString(hash[:]),
		Doc: doc,
	}

	l.cached.Store(&snapshot{
		bundle:        bundle,
		baseMtime:     baseInfo.ModTime(),
		overrideMtime: overrideMtime,
	})

	return bundle, nil
}

// Parse decodes a merged document without touching the filesystem. Callers
// still need Validate before use.
func Parse(data []byte) (*gate.Document, error) {
	return parseDocument(data)
}

func parseDocument(data []byte) (*gate.Document, error) {
	var doc gate.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", gate.ErrPolicyLoad, err)
	}

	// Gate names live in the map keys; copy them onto the definitions.
	for name, def := range doc.Gates {
		if def == nil {
			return nil, fmt.Errorf("%w: gate %q has no body", gate.ErrPolicyLoad, name)
		}
		def.Name = name
	}

	return &doc, nil
}

// mergeDocuments deep-merges override into base: per-gate fields are merged,
// while version, execution_order, exemptions, and emergency_bypass are
// replaced wholesale when the override sets them.
func mergeDocuments(base, overrides map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}
	if overrides == nil {
		return result
	}

	if og, ok := overrides["gates"].(map[string]any); ok {
		merged := make(map[string]any)
		if bg, ok := base["gates"].(map[string]any); ok {
			for name, cfg := range bg {
				merged[name] = cfg
			}
		}
		for name, cfg := range og {
			overrideFields, ok := cfg.(map[string]any)
			if !ok {
				merged[name] = cfg
				continue
			}
			baseFields, ok := merged[name].(map[string]any)
			if !ok {
				merged[name] = overrideFields
				continue
			}
			combined := make(map[string]any, len(baseFields)+len(overrideFields))
			for k, v := range baseFields {
				combined[k] = v
			}
			for k, v := range overrideFields {
				combined[k] = v
			}
			merged[name] = combined
		}
		result["gates"] = merged
	}

	for _, key := range []string{"version", "execution_order", "exemptions", "emergency_bypass"} {
		if v, ok := overrides[key]; ok {
			result[key] = v
		}
	}

	return result
}
