// internal/rules/compile.go
package rules

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.Rule to CompiledRule once, when the rule set is loaded:
 * package targets become matchers, conditions become cost-ordered predicate
 * lists, target-kind lists become bitmasks and module/variant lists become
 * lookup sets.
 *
 * Compilation workflow:
 *   1. Validate annotation specs (non-empty FQN), drop duplicate FQNs
 *   2. Compile package targets (REGEX requires a regex that compiles)
 *   3. Compile conditions, order predicates by ascending cost (stable sort)
 *   4. Resolve the nested-class flags and collect load warnings
 *
 * Errors are ConfigErrors naming the rule index and field. NewRuleSet
 * aggregates all of them with multierr so one load reports every problem,
 * and falls back to an empty rule set: a broken configuration disables the
 * pass instead of half-applying it.
 *
 * Nested flags: annotateNestedClassesRecursively implies
 * annotateNestedClassesNormallyInPackage. The combination normally=false,
 * recursive=true is accepted with a warning and behaves as recursive.
 */

// TargetSets holds the target kinds of a rule, one bitmask per category.
type TargetSets struct {
	Class     types.Set[types.ClassTarget]
	Function  types.Set[types.FunctionTarget]
	Property  types.Set[types.PropertyTarget]
	TypeAlias types.Set[types.TypeAliasTarget]
	File      types.Set[types.FileTarget]
}

// CompiledRule is fully pre-processed and ready for matching and evaluation.
type CompiledRule struct {
	Index       int // position in the rule set
	Annotations []types.AnnotationSpec
	Targets     TargetSets
	Packages    []*PackageMatcher
	Include     map[string]struct{} // moduleTarget inclusions
	Exclude     map[string]struct{} // moduleTarget exclusions
	Variants    map[string]struct{} // sourceSets; empty means any
	Conditions  []CompiledCondition // AND-matched, ordered by ascending cost

	NestedNormally    bool
	NestedRecursively bool
	FieldRecursively  bool

	Warnings []diag.Diagnostic
}

// RuleSet is an ordered, immutable list of compiled rules.
// Safe for concurrent read.
type RuleSet struct {
	rules    []*CompiledRule
	source   []types.Rule
	warnings []diag.Diagnostic
}

// EmptyRuleSet returns a rule set with no rules. Every pass over it is a no-op.
func EmptyRuleSet() *RuleSet {
	return &RuleSet{}
}

// NewRuleSet compiles rules in order. On any ConfigError it returns an empty
// rule set together with the aggregated error, so callers can log the error
// and keep running with zero rules.
func NewRuleSet(rules []types.Rule) (*RuleSet, error) {
	if len(rules) > types.MaxRules {
		return EmptyRuleSet(), &types.ConfigError{Rule: -1, Err: fmt.Errorf("%w: %d rules (max %d)", types.ErrTooManyRules, len(rules), types.MaxRules)}
	}

	cache := newRegexCache()
	rs := &RuleSet{
		rules:  make([]*CompiledRule, 0, len(rules)),
		source: rules,
	}

	var errs error
	for i := range rules {
		compiled, err := compileRule(i, &rules[i], cache)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		rs.rules = append(rs.rules, compiled)
		rs.warnings = append(rs.warnings, compiled.Warnings...)
	}

	if errs != nil {
		return EmptyRuleSet(), errs
	}
	return rs, nil
}

// Rules returns the compiled rules in rule-set order.
func (rs *RuleSet) Rules() []*CompiledRule {
	return rs.rules
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Source returns the rules the set was compiled from.
func (rs *RuleSet) Source() []types.Rule {
	return rs.source
}

// Warnings returns the load-time warnings of every rule.
func (rs *RuleSet) Warnings() []diag.Diagnostic {
	return rs.warnings
}

// Compile validates and pre-processes a single rule.
func Compile(rule *types.Rule) (*CompiledRule, error) {
	return compileRule(0, rule, newRegexCache())
}

func compileRule(index int, rule *types.Rule, cache *regexCache) (*CompiledRule, error) {
	compiled := &CompiledRule{
		Index:             index,
		NestedNormally:    rule.AnnotateNestedClassesNormallyInPackage,
		NestedRecursively: rule.AnnotateNestedClassesRecursively,
		FieldRecursively:  rule.AnnotateFieldClassesRecursively,
	}

	warn := func(format string, args ...any) {
		compiled.Warnings = append(compiled.Warnings, diag.Diagnostic{
			Severity: diag.SeverityWarning,
			Kind:     diag.KindConfig,
			Rule:     index,
			Message:  fmt.Sprintf(format, args...),
		})
	}
	var errs error
	fail := func(field string, err error) {
		errs = multierr.Append(errs, &types.ConfigError{Rule: index, Field: field, Err: err})
	}

	// Annotation specs, deduplicated by FQN in declaration order
	seen := make(map[string]struct{}, len(rule.AnnotationsToAdd))
	for i, spec := range rule.AnnotationsToAdd {
		if spec.FQName == "" {
			fail(fmt.Sprintf("annotationsToAdd[%d].fqName", i), types.ErrEmptyAnnotationName)
			continue
		}
		if _, dup := seen[spec.FQName]; dup {
			continue
		}
		seen[spec.FQName] = struct{}{}
		compiled.Annotations = append(compiled.Annotations, spec)
	}
	if len(rule.AnnotationsToAdd) == 0 {
		warn("rule adds no annotations")
	}

	compiled.Targets = TargetSets{
		Class:     types.NewSet(rule.ClassTargets...),
		Function:  types.NewSet(rule.FunctionTargets...),
		Property:  types.NewSet(rule.PropertyTargets...),
		TypeAlias: types.NewSet(rule.TypeAliasTargets...),
		File:      types.NewSet(rule.FileTargets...),
	}
	if !rule.HasTargets() {
		warn("rule has no target kinds and never matches")
	}

	for i, pt := range rule.PackageTarget {
		m, warning, err := compilePackageTarget(pt, cache)
		if err != nil {
			fail(fmt.Sprintf("packageTarget[%d]", i), err)
			continue
		}
		if warning != "" {
			warn("packageTarget[%d]: %s", i, warning)
		}
		compiled.Packages = append(compiled.Packages, m)
	}
	if len(rule.PackageTarget) == 0 {
		warn("rule has no package targets and never matches")
	}

	for _, mt := range rule.ModuleTarget {
		if mt.Inclusion {
			if compiled.Include == nil {
				compiled.Include = make(map[string]struct{})
			}
			compiled.Include[mt.ModuleName] = struct{}{}
		} else {
			if compiled.Exclude == nil {
				compiled.Exclude = make(map[string]struct{})
			}
			compiled.Exclude[mt.ModuleName] = struct{}{}
		}
	}

	if len(rule.SourceSets) > 0 {
		compiled.Variants = make(map[string]struct{}, len(rule.SourceSets))
		for _, ss := range rule.SourceSets {
			compiled.Variants[ss] = struct{}{}
		}
	}

	for i, cond := range rule.Conditions {
		cc, err := compileCondition(cond, cache)
		if err != nil {
			fail(fmt.Sprintf("conditions[%d]", i), err)
			continue
		}
		for _, p := range cc.Predicates {
			if p.Err != nil {
				warn("conditions[%d]: %v; the condition never matches", i, p.Err)
			}
		}
		compiled.Conditions = append(compiled.Conditions, *cc)
	}
	// Cheapest condition first; equal costs keep document order
	sort.SliceStable(compiled.Conditions, func(i, j int) bool {
		return conditionCost(&compiled.Conditions[i]) < conditionCost(&compiled.Conditions[j])
	})

	if rule.AnnotateNestedClassesRecursively && !rule.AnnotateNestedClassesNormallyInPackage {
		warn("annotateNestedClassesRecursively implies annotateNestedClassesNormallyInPackage; treating both as true")
		compiled.NestedNormally = true
	}

	if errs != nil {
		return nil, errs
	}
	return compiled, nil
}

// CheckSymbols verifies that every inheritance FQN named by rs resolves in
// resolver. Unresolvable names are ConfigErrors, aggregated with multierr.
func CheckSymbols(rs *RuleSet, resolver Resolver) error {
	var errs error
	for ri, rule := range rs.source {
		for ci, cond := range rule.Conditions {
			if cond.Inheritance == nil {
				continue
			}
			if sc := cond.Inheritance.Superclass; sc != "" {
				if _, ok := resolver.Symbol(sc); !ok {
					errs = multierr.Append(errs, &types.ConfigError{
						Rule:  ri,
						Field: fmt.Sprintf("conditions[%d].inheritance.superclass", ci),
						Err:   fmt.Errorf("%w: %s", types.ErrUnresolvedSymbol, sc),
					})
				}
			}
			for ii, iface := range cond.Inheritance.Interfaces {
				if _, ok := resolver.Symbol(iface); !ok {
					errs = multierr.Append(errs, &types.ConfigError{
						Rule:  ri,
						Field: fmt.Sprintf("conditions[%d].inheritance.interfaces[%d]", ci, ii),
						Err:   fmt.Errorf("%w: %s", types.ErrUnresolvedSymbol, iface),
					})
				}
			}
		}
	}
	return errs
}
