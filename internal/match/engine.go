// Package match computes the effective gate set for a changeset: the policy's
// gates after stage relaxations, exemption rules, and omit patterns.
package match

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// compiledRule is an ExemptionRule with its globs compiled.
type compiledRule struct {
	rule     gate.ExemptionRule
	branches []glob.Glob
	paths    []glob.Glob
}

// Engine implements gate.Resolver over a single policy bundle. Globs are
// compiled once at construction; a new bundle needs a new engine.
type Engine struct {
	doc      *gate.Document
	policyID string
	rules    []compiledRule
	omit     map[string][]glob.Glob // gate name -> compiled omit patterns
}

var _ gate.Resolver = (*Engine)(nil)

// New compiles the bundle's globs and returns an engine. Compilation errors
// are reported as ErrPolicyValidate; Validate catches them earlier in the
// normal load path.
func New(bundle *gate.Bundle) (*Engine, error) {
	e := &Engine{
		doc:      bundle.Doc,
		policyID: bundle.ID,
		omit:     make(map[string][]glob.Glob),
	}

	for _, rule := range bundle.Doc.Exemptions {
		cr := compiledRule{rule: rule}
		for _, pattern := range rule.Branches {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q branch glob %q: %v", gate.ErrPolicyValidate, rule.Name, pattern, err)
			}
			cr.branches = append(cr.branches, g)
		}
		for _, pattern := range rule.Paths {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("%w: rule %q path glob %q: %v", gate.ErrPolicyValidate, rule.Name, pattern, err)
			}
			cr.paths = append(cr.paths, g)
		}
		e.rules = append(e.rules, cr)
	}

	for name, def := range bundle.Doc.Gates {
		for _, pattern := range def.OmitPatterns {
			g, err := glob.Compile(pattern, '/')
			if err != nil {
				return nil, fmt.Errorf("%w: gate %q omit pattern %q: %v", gate.ErrPolicyValidate, name, pattern, err)
			}
			e.omit[name] = append(e.omit[name], g)
		}
	}

	return e, nil
}

// PolicyID returns the bundle identity the engine was built from.
func (e *Engine) PolicyID() string {
	return e.policyID
}

// Resolve implements gate.Resolver.
func (e *Engine) Resolve(cs gate.Changeset) (gate.Resolution, error) {
	if !gate.ValidStage(cs.Stage) {
		return gate.Resolution{}, fmt.Errorf("%w: %q (valid: %s, %s, %s)",
			gate.ErrUnknownStage, cs.Stage, gate.StagePrePush, gate.StagePR, gate.StagePushToMain)
	}

	matched := e.matchingRules(cs)

	res := gate.Resolution{
		PolicyID: e.policyID,
		Stage:    cs.Stage,
		Branch:   cs.Branch,
		Files:    cs.Files,
		Bypass:   e.doc.Bypass,
	}
	for _, cr := range matched {
		res.MatchedRules = append(res.MatchedRules, cr.rule.Name)
	}

	for _, name := range e.doc.ExecutionOrder {
		def := e.doc.Gate(name)
		if def == nil {
			continue // Validate rejects this; belt and braces for hand-built docs
		}

		effective := relax(*def, cs.Stage)
		if !effective.Enabled {
			continue
		}

		rg := gate.ResolvedGate{Definition: effective}

		if rule := exemptingRule(matched, name); rule != nil {
			rg.Exempted = true
			rg.ExemptedBy = rule.Name
			rg.ExemptReason = rule.Reason
		} else if omitted(e.omit[name], cs.Files) {
			rg.Exempted = true
			rg.ExemptReason = "all changed files match omit patterns"
		}

		res.Gates = append(res.Gates, rg)
	}

	return res, nil
}

// Suggest names the exemption rules that cover the given gates, so a bypass
// record can point at the rule that makes the next bypass unnecessary: either
// the rule's predicates nearly match the changeset, or the changeset should
// have been split to fit them.
func (e *Engine) Suggest(cs gate.Changeset, gates []string) []string {
	var suggestions []string
	for _, name := range gates {
		for _, cr := range e.rules {
			if !contains(cr.rule.ExemptGates, name) {
				continue
			}
			s := fmt.Sprintf("rule %q exempts gate %q", cr.rule.Name, name)
			switch {
			case cr.matches(cs):
				s += " and already matches this changeset"
			case len(cr.rule.Paths) > 0:
				s += fmt.Sprintf(" for changes limited to %v", cr.rule.Paths)
			case len(cr.rule.Branches) > 0:
				s += fmt.Sprintf(" on branches matching %v", cr.rule.Branches)
			}
			if cr.rule.Reason != "" {
				s += " (" + cr.rule.Reason + ")"
			}
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// matchingRules returns the rules whose predicates match the changeset, in
// document order.
func (e *Engine) matchingRules(cs gate.Changeset) []compiledRule {
	var matched []compiledRule
	for _, cr := range e.rules {
		if cr.matches(cs) {
			matched = append(matched, cr)
		}
	}
	return matched
}

// matches implements the rule predicate: any branch glob matches the branch,
// OR every changed file matches at least one path glob.
func (cr compiledRule) matches(cs gate.Changeset) bool {
	for _, g := range cr.branches {
		if cs.Branch != "" && g.Match(cs.Branch) {
			return true
		}
	}

	if len(cr.paths) == 0 || len(cs.Files) == 0 {
		return false
	}
	for _, f := range cs.Files {
		if !anyMatch(cr.paths, f) {
			return false
		}
	}
	return true
}

// exemptingRule returns the first matching rule that exempts the gate, unless
// any matching rule requires it: require_gates beat exempt_gates.
func exemptingRule(matched []compiledRule, name string) *gate.ExemptionRule {
	for _, cr := range matched {
		for _, g := range cr.rule.RequireGates {
			if g == name {
				return nil
			}
		}
	}
	for i := range matched {
		for _, g := range matched[i].rule.ExemptGates {
			if g == name {
				return &matched[i].rule
			}
		}
	}
	return nil
}

// omitted reports whether every changed file matches an omit pattern. An
// empty changeset is never omitted.
func omitted(patterns []glob.Glob, files []string) bool {
	if len(patterns) == 0 || len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !anyMatch(patterns, f) {
			return false
		}
	}
	return true
}

func anyMatch(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// relax applies the gate's stage relaxation, if any. The base definition is
// the highest standard; push-to-main and the empty stage get no relaxations.
func relax(def gate.Definition, stage string) gate.Definition {
	if stage == "" || stage == gate.StagePushToMain {
		return def
	}
	r, ok := def.Relaxations[stage]
	if !ok {
		return def
	}
	if r.Enabled != nil {
		def.Enabled = *r.Enabled
	}
	if r.Required != nil {
		def.Required = *r.Required
	}
	if r.Threshold != nil {
		def.Threshold = r.Threshold
	}
	if r.TimeoutSeconds != nil {
		def.TimeoutSeconds = *r.TimeoutSeconds
	}
	return def
}
