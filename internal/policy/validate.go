package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/TheNeerajGarg/gatekeeper/pkg/gate"
)

// Validate checks a parsed document against the semantic rules:
//
//  1. every name in execution_order is a defined gate
//  2. every enabled gate appears in execution_order
//  3. the depends_on graph is acyclic
//  4. depends_on references only defined gates
//  5. a dependency precedes its dependent in execution_order
//  6. version is dotted integers (X.Y.Z)
//  7. exemption rules reference defined gates, carry at least one predicate,
//     and all globs compile
//
// All violations are collected and reported together, wrapped in
// gate.ErrPolicyValidate.
func Validate(doc *gate.Document) error {
	var errs []string

	if doc.Version == "" {
		errs = append(errs, "missing 'version' field")
	} else if !validVersion(doc.Version) {
		errs = append(errs, fmt.Sprintf("invalid version format %q (expected X.Y.Z)", doc.Version))
	}

	if len(doc.Gates) == 0 {
		errs = append(errs, "no gates defined")
	}

	// Rule 1: execution_order references defined gates
	positions := make(map[string]int, len(doc.ExecutionOrder))
	for i, name := range doc.ExecutionOrder {
		if doc.Gate(name) == nil {
			errs = append(errs, fmt.Sprintf("execution_order references undefined gate %q", name))
		}
		positions[name] = i
	}

	// Rule 2: enabled gates appear in execution_order
	for name, def := range doc.Gates {
		if !def.Enabled {
			continue
		}
		if _, ok := positions[name]; !ok {
			errs = append(errs, fmt.Sprintf("enabled gate %q missing from execution_order", name))
		}
	}

	// Rules 3-5: dependency graph
	for name, def := range doc.Gates {
		for _, dep := range def.DependsOn {
			if dep == name {
				errs = append(errs, fmt.Sprintf("gate %q depends on itself", name))
				continue
			}
			if doc.Gate(dep) == nil {
				errs = append(errs, fmt.Sprintf("gate %q depends on undefined gate %q", name, dep))
				continue
			}
			namePos, nameOK := positions[name]
			depPos, depOK := positions[dep]
			if nameOK && depOK && depPos >= namePos {
				errs = append(errs, fmt.Sprintf(
					"gate %q depends on %q, but %q appears later in execution_order (position %d >= %d)",
					name, dep, dep, depPos, namePos))
			}
		}
	}
	if cycle := findCycle(doc); cycle != "" {
		errs = append(errs, fmt.Sprintf("circular dependency detected: %s", cycle))
	}

	// Rule 7: exemption rules
	seen := make(map[string]bool, len(doc.Exemptions))
	for i, rule := range doc.Exemptions {
		label := rule.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errs = append(errs, fmt.Sprintf("exemption rule %s has no name", label))
		}
		if seen[rule.Name] && rule.Name != "" {
			errs = append(errs, fmt.Sprintf("duplicate exemption rule name %q", rule.Name))
		}
		seen[rule.Name] = true

		if len(rule.Branches) == 0 && len(rule.Paths) == 0 {
			errs = append(errs, fmt.Sprintf("exemption rule %s has neither branch nor path predicates", label))
		}
		if len(rule.ExemptGates) == 0 && len(rule.RequireGates) == 0 {
			errs = append(errs, fmt.Sprintf("exemption rule %s exempts and requires nothing", label))
		}
		for _, g := range append(append([]string{}, rule.ExemptGates...), rule.RequireGates...) {
			if doc.Gate(g) == nil {
				errs = append(errs, fmt.Sprintf("exemption rule %s references undefined gate %q", label, g))
			}
		}
		for _, pattern := range append(append([]string{}, rule.Branches...), rule.Paths...) {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				errs = append(errs, fmt.Sprintf("exemption rule %s has invalid glob %q: %v", label, pattern, err))
			}
		}
	}

	// Omit patterns must compile too
	for name, def := range doc.Gates {
		for _, pattern := range def.OmitPatterns {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				errs = append(errs, fmt.Sprintf("gate %q has invalid omit pattern %q: %v", name, pattern, err))
			}
		}
		for stage := range def.Relaxations {
			if stage == "" || !gate.ValidStage(stage) {
				errs = append(errs, fmt.Sprintf("gate %q has relaxation for unknown stage %q", name, stage))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", gate.ErrPolicyValidate, strings.Join(errs, "\n  - "))
	}
	return nil
}

func validVersion(v string) bool {
	parts := strings.Split(v, ".")
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

// findCycle runs a coloring DFS over depends_on and returns a readable cycle
// path, or empty when the graph is acyclic.
func findCycle(doc *gate.Document) string {
	const (
		white = 0 // unvisited
		grey  = 1 // on stack
		black = 2 // done
	)
	color := make(map[string]int, len(doc.Gates))

	var path []string
	var visit func(name string) string
	visit = func(name string) string {
		color[name] = grey
		path = append(path, name)
		def := doc.Gate(name)
		if def != nil {
			for _, dep := range def.DependsOn {
				if dep == name || doc.Gate(dep) == nil {
					continue // reported separately
				}
				switch color[dep] {
				case grey:
					return strings.Join(append(path, dep), " -> ")
				case white:
					if cycle := visit(dep); cycle != "" {
						return cycle
					}
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return ""
	}

	for name := range doc.Gates {
		if color[name] == white {
			if cycle := visit(name); cycle != "" {
				return cycle
			}
		}
	}
	return ""
}
