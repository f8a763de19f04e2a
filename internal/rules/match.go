// internal/rules/match.go
package rules

import "github.com/solatis/autoannotate/internal/types"

// Applies reports whether the rule's structural filters accept a declaration
// with the given tags, in package pkg, inside unit. Conditions are not
// checked here.
func (r *CompiledRule) Applies(tags Tags, pkg string, unit types.Unit) bool {
	if !tags.Matches(r.Targets) {
		return false
	}

	matched := false
	for _, m := range r.Packages {
		if m.Match(pkg) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	if _, excluded := r.Exclude[unit.Module]; excluded {
		return false
	}
	if len(r.Include) > 0 {
		if _, included := r.Include[unit.Module]; !included {
			return false
		}
	}

	if len(r.Variants) > 0 {
		if _, ok := r.Variants[unit.Variant]; !ok {
			return false
		}
	}
	return true
}

// FindApplicableRules returns the rules of rs whose structural filters accept
// decl, in rule-set order.
func FindApplicableRules(rs *RuleSet, decl *types.Declaration, tags Tags, pkg string, unit types.Unit) []*CompiledRule {
	var out []*CompiledRule
	for _, r := range rs.rules {
		if r.Applies(tags, pkg, unit) {
			out = append(out, r)
		}
	}
	return out
}
