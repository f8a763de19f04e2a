// internal/rules/host.go
package rules

import "github.com/solatis/autoannotate/internal/types"

// Resolver answers symbol questions about the compilation unit.
type Resolver interface {
	// Class returns a class declared in the current unit.
	Class(fqName string) (*types.Declaration, bool)

	// Symbol returns any class visible to the unit, including library
	// classes known only by name and kind.
	Symbol(fqName string) (*types.Declaration, bool)
}

// Host is the host side of the declaration tree: symbol lookup plus the one
// mutation the engine performs.
type Host interface {
	Resolver

	// Attach appends ann to decl. The engine never calls it with an FQN
	// already attached to decl.
	Attach(decl *types.Declaration, ann types.Annotation) error
}
