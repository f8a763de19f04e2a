// internal/rules/apply.go
package rules

import (
	"fmt"

	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Tree traversal and rule application.
 *
 * A Pass walks every declaration below the roots it is given, depth-first.
 * Each declaration is classified and matched against the rule set. Matched
 * rules on non-class declarations are applied directly. Matched rules on a
 * class start a recursive application of that rule:
 *
 *   1. gate the class (nested / field-referenced policy of the rule)
 *   2. evaluate conditions, synthesize, attach
 *   3. recurse into nested classes (path: nested)
 *   4. recurse into classes named by property types of the class (path:
 *      field), resolved within the unit only
 *
 * Gating returns before step 2 and stops the recursion below the gated
 * class. A failed condition only skips step 2. Classes reached through
 * recursion are checked against the rule's target kinds but not against
 * its package targets: the rule was matched where the recursion started.
 *
 * Nested classes are also visited by the plain walk, where the
 * annotateNestedClassesNormallyInPackage policy decides whether they count
 * as nested.
 *
 * Bookkeeping:
 *   - processed (declaration, rule) pairs: a rule is applied at most once
 *     per declaration per pass, whatever the number of paths to it
 *   - visited (declaration, rule, path) triples, per Apply call: terminate
 *     field-reference cycles
 *   - depth beyond MaxTraversalDepth: WARNING, subtree skipped
 *
 * Any error or panic while applying one rule to one declaration becomes a
 * WARNING and the pass moves on.
 */

// path records how a class was reached during rule recursion.
type path uint8

const (
	pathDirect path = iota
	pathNested      // nested member of a class the rule recursed from
	pathField       // type of a property of a class the rule recursed from
)

type processedKey struct {
	decl *types.Declaration
	rule int
}

type visitKey struct {
	decl *types.Declaration
	rule int
	path path
}

// Stats summarizes a pass.
type Stats struct {
	Visited  int `json:"visited"`  // declarations walked
	Applied  int `json:"applied"`  // annotations attached
	Skipped  int `json:"skipped"`  // rule applications gated or failing conditions
	Failures int `json:"failures"` // rule applications that raised a warning
}

func (s Stats) since(start Stats) Stats {
	return Stats{
		Visited:  s.Visited - start.Visited,
		Applied:  s.Applied - start.Applied,
		Skipped:  s.Skipped - start.Skipped,
		Failures: s.Failures - start.Failures,
	}
}

// Pass holds the state of one traversal of one compilation unit.
// Not safe for concurrent use.
type Pass struct {
	engine    *Engine
	host      Host
	unit      types.Unit
	processed map[processedKey]struct{}
	visited   map[visitKey]struct{}
	stats     Stats
}

// Apply walks every declaration below roots and returns the work done by
// this call. Calling Apply again on the same roots attaches nothing new.
func (p *Pass) Apply(roots ...*types.Declaration) Stats {
	start := p.stats
	if p.engine.rules.Len() == 0 {
		return Stats{}
	}
	p.visited = make(map[visitKey]struct{})
	for _, root := range roots {
		if root != nil {
			p.walk(root, 0)
		}
	}
	return p.stats.since(start)
}

// Stats returns the totals over every Apply call of the pass.
func (p *Pass) Stats() Stats {
	return p.stats
}

func (p *Pass) walk(decl *types.Declaration, depth int) {
	if depth > types.MaxTraversalDepth {
		p.warn(diag.KindTraversal, decl, diag.NoRule,
			fmt.Sprintf("declaration tree deeper than %d levels, subtree skipped", types.MaxTraversalDepth))
		return
	}
	p.stats.Visited++

	tags := Classify(decl)
	for _, rule := range FindApplicableRules(p.engine.rules, decl, tags, decl.Package, p.unit) {
		if decl.Kind == types.DeclClass {
			p.applyClass(decl, rule, pathDirect, depth)
		} else {
			p.applyRule(decl, rule)
		}
	}

	for _, m := range decl.Members {
		p.walk(m, depth+1)
	}
}

// applyClass applies rule to a class and recurses into its nested and
// field-referenced classes.
func (p *Pass) applyClass(decl *types.Declaration, rule *CompiledRule, how path, depth int) {
	if depth > types.MaxTraversalDepth {
		p.warn(diag.KindTraversal, decl, rule.Index,
			fmt.Sprintf("rule recursion deeper than %d levels, stopped", types.MaxTraversalDepth))
		return
	}
	key := visitKey{decl: decl, rule: rule.Index, path: how}
	if _, seen := p.visited[key]; seen {
		return
	}
	p.visited[key] = struct{}{}

	if reason := p.gate(decl, rule, how); reason != "" {
		p.stats.Skipped++
		p.info(diag.KindSkipped, decl, rule.Index, reason)
		return
	}

	if how == pathDirect || Classify(decl).Matches(rule.Targets) {
		p.applyRule(decl, rule)
	}

	for _, m := range decl.Members {
		if m.Kind == types.DeclClass {
			p.applyClass(m, rule, pathNested, depth+1)
		}
	}
	for _, m := range decl.Members {
		if m.Kind != types.DeclProperty || m.Property == nil {
			continue
		}
		ref, ok := p.host.Class(referencedTypeName(m.Property.Type))
		if !ok || ref.Kind != types.DeclClass {
			continue
		}
		p.applyClass(ref, rule, pathField, depth+1)
	}
}

// gate returns a non-empty reason when the nested or field-reference policy
// of rule keeps it away from decl.
func (p *Pass) gate(decl *types.Declaration, rule *CompiledRule, how path) string {
	var isNested bool
	switch {
	case how == pathNested:
		isNested = true
	case rule.NestedNormally && !rule.NestedRecursively:
		isNested = false
	default:
		isNested = decl.IsNested()
	}

	if isNested && !rule.NestedRecursively {
		return "skipping nested class " + decl.Name
	}
	if how == pathField && !rule.FieldRecursively {
		return "skipping field-referenced class " + decl.Name
	}
	return ""
}

// applyRule evaluates rule against decl and attaches what it synthesizes.
func (p *Pass) applyRule(decl *types.Declaration, rule *CompiledRule) {
	pk := processedKey{decl: decl, rule: rule.Index}
	if _, done := p.processed[pk]; done {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.stats.Failures++
			p.warn(diag.KindFailure, decl, rule.Index, fmt.Sprintf("applying rule: %v", r))
		}
	}()

	ok, err := Evaluate(rule, decl, p.host)
	if err != nil {
		p.stats.Failures++
		p.warn(diag.KindEvaluation, decl, rule.Index, fmt.Sprintf("condition evaluation failed: %v", err))
		return
	}
	if !ok {
		p.stats.Skipped++
		p.info(diag.KindSkipped, decl, rule.Index, "conditions not met for "+decl.Name)
		return
	}
	p.processed[pk] = struct{}{}

	anns, diags := Synthesize(rule, decl, p.host)
	for _, d := range diags {
		p.engine.reporter.Report(d)
	}
	for _, ann := range anns {
		if err := p.host.Attach(decl, ann); err != nil {
			p.stats.Failures++
			p.warn(diag.KindFailure, decl, rule.Index, fmt.Sprintf("attaching @%s: %v", types.ShortName(ann.FQName), err))
			continue
		}
		p.stats.Applied++
		p.info(diag.KindApplied, decl, rule.Index, "added @"+types.ShortName(ann.FQName))
	}
}

func (p *Pass) warn(kind diag.Kind, decl *types.Declaration, rule int, msg string) {
	p.engine.reporter.Report(diag.Diagnostic{
		Severity:    diag.SeverityWarning,
		Kind:        kind,
		Declaration: decl.FQName(),
		Rule:        rule,
		Message:     msg,
	})
}

func (p *Pass) info(kind diag.Kind, decl *types.Declaration, rule int, msg string) {
	if !p.engine.verbose {
		return
	}
	p.engine.reporter.Report(diag.Diagnostic{
		Severity:    diag.SeverityInfo,
		Kind:        kind,
		Declaration: decl.FQName(),
		Rule:        rule,
		Message:     msg,
	})
}
