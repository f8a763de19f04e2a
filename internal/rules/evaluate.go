// internal/rules/evaluate.go
package rules

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Condition compilation and evaluation.
 *
 * A types.Condition becomes a CompiledCondition: one predicate per set
 * sub-check, ordered by ascending cost. Unset sub-checks produce no
 * predicate and therefore pass vacuously.
 *
 * Evaluation flow:
 *   1. Rule conditions in cost order (short-circuit on first failure)
 *   2. Predicates of a condition in cost order (short-circuit on first failure)
 *   3. Per predicate: switch on kind, read declaration state, ask the
 *      resolver only for inheritance checks
 *
 * The result is a pure AND; ordering only changes how much work a failing
 * declaration costs. Annotation presence is read from the declaration as it
 * is when the rule is evaluated, before this rule attaches anything.
 *
 * Errors: superclass chains deeper than MaxTraversalDepth return
 * ErrDepthExceeded, and a namePattern that did not compile returns
 * ErrInvalidRegex once reached. Callers treat any error as "condition
 * failed" and keep going with the next rule.
 */

// PredicateKind selects the check a CompiledPredicate performs.
type PredicateKind uint8

const (
	PredVisibility PredicateKind = iota
	PredModifiers
	PredExistingAnnotations
	PredAbsentAnnotations
	PredNamePattern
	PredTypeName
	PredSuperclass
	PredInterfaces
)

func (k PredicateKind) String() string {
	switch k {
	case PredVisibility:
		return "visibility"
	case PredModifiers:
		return "modifiers"
	case PredExistingAnnotations:
		return "existingAnnotations"
	case PredAbsentAnnotations:
		return "annotationsAbsence"
	case PredNamePattern:
		return "namePattern"
	case PredTypeName:
		return "typeCondition"
	case PredSuperclass:
		return "inheritance.superclass"
	case PredInterfaces:
		return "inheritance.interfaces"
	default:
		return fmt.Sprintf("predicate(%d)", k)
	}
}

// CompiledPredicate is one pre-processed sub-check of a condition.
type CompiledPredicate struct {
	Kind       PredicateKind
	Visibility types.Visibility
	Modifiers  types.Set[types.Modifier]
	Names      []string // annotation FQNs, type names, superclass or interfaces
	Pattern    *regexp.Regexp
	Err        error // set when the namePattern did not compile; the predicate always fails
	Cost       int
}

// CompiledCondition is a pre-processed condition ready for evaluation.
type CompiledCondition struct {
	Predicates []CompiledPredicate // ordered by ascending cost
}

// CompileCondition compiles a single condition outside of a rule set.
func CompileCondition(cond types.Condition) (*CompiledCondition, error) {
	return compileCondition(cond, newRegexCache())
}

func compileCondition(cond types.Condition, cache *regexCache) (*CompiledCondition, error) {
	var preds []CompiledPredicate

	if cond.Visibility != nil {
		preds = append(preds, CompiledPredicate{Kind: PredVisibility, Visibility: *cond.Visibility})
	}
	if len(cond.Modifiers) > 0 {
		preds = append(preds, CompiledPredicate{Kind: PredModifiers, Modifiers: types.NewSet(cond.Modifiers...)})
	}
	if len(cond.ExistingAnnotations) > 0 {
		preds = append(preds, CompiledPredicate{Kind: PredExistingAnnotations, Names: cond.ExistingAnnotations})
	}
	if len(cond.AnnotationsAbsence) > 0 {
		preds = append(preds, CompiledPredicate{Kind: PredAbsentAnnotations, Names: cond.AnnotationsAbsence})
	}
	if cond.NamePattern != nil {
		re, err := cache.compile(*cond.NamePattern)
		if err != nil {
			err = fmt.Errorf("namePattern %q: %w: %v", *cond.NamePattern, types.ErrInvalidRegex, err)
		}
		preds = append(preds, CompiledPredicate{Kind: PredNamePattern, Pattern: re, Err: err})
	}
	if cond.TypeCondition != nil && len(cond.TypeCondition.TypeNames) > 0 {
		preds = append(preds, CompiledPredicate{Kind: PredTypeName, Names: cond.TypeCondition.TypeNames})
	}
	if inh := cond.Inheritance; inh != nil {
		if inh.Superclass != "" {
			preds = append(preds, CompiledPredicate{Kind: PredSuperclass, Names: []string{inh.Superclass}})
		}
		if len(inh.Interfaces) > 0 {
			preds = append(preds, CompiledPredicate{Kind: PredInterfaces, Names: inh.Interfaces})
		}
	}

	for i := range preds {
		preds[i].Cost = predicateCost(preds[i])
	}
	// Stable sort: equal-cost predicates keep document order
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Cost < preds[j].Cost
	})

	return &CompiledCondition{Predicates: preds}, nil
}

// Evaluate checks every condition of rule against decl (AND semantics).
// A rule without conditions passes.
func Evaluate(rule *CompiledRule, decl *types.Declaration, resolver Resolver) (bool, error) {
	for i := range rule.Conditions {
		ok, err := rule.Conditions[i].Evaluate(decl, resolver)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Evaluate checks every predicate of c against decl (AND semantics).
func (c *CompiledCondition) Evaluate(decl *types.Declaration, resolver Resolver) (bool, error) {
	var chain *inheritance
	for _, p := range c.Predicates {
		var ok bool
		switch p.Kind {
		case PredVisibility:
			ok = decl.Visibility == p.Visibility
		case PredModifiers:
			ok = EffectiveModifiers(decl).Contains(p.Modifiers)
		case PredExistingAnnotations:
			ok = hasAll(decl, p.Names)
		case PredAbsentAnnotations:
			ok = hasNone(decl, p.Names)
		case PredNamePattern:
			if p.Err != nil {
				return false, p.Err
			}
			ok = p.Pattern.MatchString(decl.Name)
		case PredTypeName:
			ok = containsAny(typeNameOf(decl), p.Names)
		case PredSuperclass, PredInterfaces:
			if decl.Kind != types.DeclClass || decl.Class == nil {
				return false, nil
			}
			if chain == nil {
				var err error
				chain, err = resolveInheritance(decl, resolver)
				if err != nil {
					return false, err
				}
			}
			if p.Kind == PredSuperclass {
				ok = chain.hasSuperclass(p.Names[0])
			} else {
				ok = chain.hasInterfaces(p.Names)
			}
		default:
			return false, fmt.Errorf("unknown predicate kind %d", p.Kind)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// EvaluateCondition compiles and evaluates cond in one step.
// A namePattern that does not compile fails the condition with an
// ErrInvalidRegex error.
func EvaluateCondition(cond types.Condition, decl *types.Declaration, resolver Resolver) (bool, error) {
	cc, err := CompileCondition(cond)
	if err != nil {
		return false, err
	}
	return cc.Evaluate(decl, resolver)
}
