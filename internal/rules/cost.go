// internal/rules/cost.go
package rules

/*
 * Cost model for condition predicates.
 *
 * Each predicate of a compiled condition carries a cost; compilation orders
 * predicates by ascending cost so that evaluation short-circuits on cheap
 * checks (visibility, modifier bitmask) before it reaches the expensive ones
 * (regex, superclass chain resolution through the host).
 *
 * Costs are relative, not measured. Inheritance cost is dominated by
 * resolver lookups and scales with the number of names to find.
 */

const (
	CostVisibility       = 1
	CostModifiers        = 2
	CostAnnotationLookup = 4  // per listed FQN
	CostTypeContainment  = 6  // per listed type name
	CostNamePattern      = 16 // regex match on the simple name
	CostInheritanceBase  = 64 // walking the superclass chain
	CostInheritancePerFQ = 8  // per listed superclass or interface
)

// predicateCost returns the ordering cost of a compiled predicate.
func predicateCost(p CompiledPredicate) int {
	switch p.Kind {
	case PredVisibility:
		return CostVisibility
	case PredModifiers:
		return CostModifiers
	case PredExistingAnnotations, PredAbsentAnnotations:
		return CostAnnotationLookup * len(p.Names)
	case PredTypeName:
		return CostTypeContainment * len(p.Names)
	case PredNamePattern:
		return CostNamePattern
	case PredSuperclass, PredInterfaces:
		return CostInheritanceBase + CostInheritancePerFQ*len(p.Names)
	default:
		return CostInheritanceBase
	}
}

// conditionCost sums the predicate costs of c.
func conditionCost(c *CompiledCondition) int {
	total := 0
	for _, p := range c.Predicates {
		total += p.Cost
	}
	return total
}
