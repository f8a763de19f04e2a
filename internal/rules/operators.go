// internal/rules/operators.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Predicate operators over declarations.
 *
 * Set operators (hasAll, hasNone, containsAny) back the annotation and type
 * predicates. EffectiveModifiers folds payload facts into the explicit
 * modifier list so that a rule asking for OPEN matches a class whose
 * modality is open whether or not the host also listed the keyword.
 *
 * Inheritance walks the superclass chain through the resolver. The walk
 * stops at the first superclass the resolver does not know (library
 * classes), on a repeated name, or with ErrDepthExceeded past
 * MaxTraversalDepth. Interfaces are collected from the class, from every
 * resolved ancestor and transitively from resolved interfaces.
 */

// hasAll reports whether every FQN in names is attached to decl.
func hasAll(decl *types.Declaration, names []string) bool {
	for _, n := range names {
		if !decl.HasAnnotation(n) {
			return false
		}
	}
	return true
}

// hasNone reports whether no FQN in names is attached to decl.
func hasNone(decl *types.Declaration, names []string) bool {
	for _, n := range names {
		if decl.HasAnnotation(n) {
			return false
		}
	}
	return true
}

// containsAny reports whether s contains any of subs as a substring.
// An empty s never matches.
func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// typeNameOf returns the type name a typeCondition inspects: the FQN of a
// class, the return type of a function, the declared type of a property or
// variable, the target of a type alias.
func typeNameOf(decl *types.Declaration) string {
	switch decl.Kind {
	case types.DeclClass:
		return decl.FQName()
	case types.DeclFunction:
		if decl.Function != nil {
			return decl.Function.ReturnType
		}
	case types.DeclProperty, types.DeclVariable:
		if decl.Property != nil {
			return decl.Property.Type
		}
	case types.DeclTypeAlias:
		if decl.TypeAlias != nil {
			return decl.TypeAlias.Target
		}
	case types.DeclFile:
	}
	return ""
}

// classModality resolves an unspecified modality: interfaces are abstract,
// everything else is final.
func classModality(c *types.ClassInfo) types.Modality {
	if c.Modality != types.ModalityUnspecified {
		return c.Modality
	}
	if c.Kind == types.ClassKindInterface {
		return types.ModalityAbstract
	}
	return types.ModalityFinal
}

var visibilityModifier = [...]types.Modifier{
	types.VisibilityPublic:    types.ModifierPublic,
	types.VisibilityPrivate:   types.ModifierPrivate,
	types.VisibilityProtected: types.ModifierProtected,
	types.VisibilityInternal:  types.ModifierInternal,
}

// EffectiveModifiers returns the explicit modifiers of decl plus the ones its
// visibility and payload imply.
func EffectiveModifiers(decl *types.Declaration) types.Set[types.Modifier] {
	mods := types.NewSet(decl.Modifiers...)
	if int(decl.Visibility) < len(visibilityModifier) {
		mods = mods.Add(visibilityModifier[decl.Visibility])
	}

	switch decl.Kind {
	case types.DeclClass:
		c := decl.Class
		if c == nil {
			break
		}
		switch classModality(c) {
		case types.ModalityFinal:
			mods = mods.Add(types.ModifierFinal)
		case types.ModalityOpen:
			mods = mods.Add(types.ModifierOpen)
		case types.ModalityAbstract:
			mods = mods.Add(types.ModifierAbstract)
		case types.ModalitySealed:
			mods = mods.Add(types.ModifierSealed)
		}
		switch c.Kind {
		case types.ClassKindInterface:
			mods = mods.Add(types.ModifierInterface)
		case types.ClassKindEnum:
			mods = mods.Add(types.ModifierEnum)
		case types.ClassKindObject:
			mods = mods.Add(types.ModifierObject)
		case types.ClassKindAnnotation:
			mods = mods.Add(types.ModifierAnnotation)
		}
		flags := []struct {
			set bool
			mod types.Modifier
		}{
			{c.Data, types.ModifierData},
			{c.Inner, types.ModifierInner},
			{c.Companion, types.ModifierCompanion},
			{c.Expect, types.ModifierExpect},
			{c.Actual, types.ModifierActual},
			{c.Inline, types.ModifierInline},
			{c.Value, types.ModifierValue},
		}
		for _, f := range flags {
			if f.set {
				mods = mods.Add(f.mod)
			}
		}
	case types.DeclFunction:
		if decl.Function != nil && decl.Function.Suspend {
			mods = mods.Add(types.ModifierSuspend)
		}
	case types.DeclProperty, types.DeclVariable:
		if p := decl.Property; p != nil {
			if p.Const {
				mods = mods.Add(types.ModifierConst)
			}
			if p.Lateinit {
				mods = mods.Add(types.ModifierLateinit)
			}
		}
	case types.DeclTypeAlias, types.DeclFile:
	}
	return mods
}

// inheritance is the resolved supertype information of one class.
type inheritance struct {
	superclasses map[string]struct{}
	interfaces   map[string]struct{}
}

func (in *inheritance) hasSuperclass(fqName string) bool {
	_, ok := in.superclasses[fqName]
	return ok
}

func (in *inheritance) hasInterfaces(names []string) bool {
	for _, n := range names {
		if _, ok := in.interfaces[n]; !ok {
			return false
		}
	}
	return true
}

// resolveInheritance computes the transitive superclass chain and the full
// set of implemented interfaces of a class declaration.
func resolveInheritance(decl *types.Declaration, resolver Resolver) (*inheritance, error) {
	in := &inheritance{
		superclasses: make(map[string]struct{}),
		interfaces:   make(map[string]struct{}),
	}

	var pendingIfaces []string
	cur := decl
	for depth := 0; cur != nil && cur.Class != nil; depth++ {
		if depth > types.MaxTraversalDepth {
			return nil, fmt.Errorf("%w: superclass chain of %s", types.ErrDepthExceeded, decl.FQName())
		}
		pendingIfaces = append(pendingIfaces, cur.Class.Interfaces...)

		sc := cur.Class.Superclass
		if sc == "" {
			break
		}
		if _, seen := in.superclasses[sc]; seen {
			break
		}
		in.superclasses[sc] = struct{}{}

		next, ok := resolver.Symbol(sc)
		if !ok {
			break
		}
		cur = next
	}

	for len(pendingIfaces) > 0 {
		name := pendingIfaces[0]
		pendingIfaces = pendingIfaces[1:]
		if _, seen := in.interfaces[name]; seen {
			continue
		}
		in.interfaces[name] = struct{}{}
		if iface, ok := resolver.Symbol(name); ok && iface.Class != nil {
			pendingIfaces = append(pendingIfaces, iface.Class.Interfaces...)
		}
	}

	return in, nil
}

// referencedTypeName strips nullability and type arguments from a declared
// type so it can be looked up as a class FQN: "com.a.Box<Int>?" -> "com.a.Box".
func referencedTypeName(t string) string {
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "?")
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}
