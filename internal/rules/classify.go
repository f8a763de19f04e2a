// internal/rules/classify.go
package rules

import "github.com/solatis/autoannotate/internal/types"

/*
 * Declaration classification.
 *
 * Classify derives the structural tags of a declaration within its
 * category. Class tags accumulate: an open nested data class carries
 * DATA_CLASS, NESTED_CLASS, OPEN_CLASS and REGULAR_CLASS at once.
 *
 * REGULAR_CLASS is added alongside INNER_CLASS and NESTED_CLASS, and
 * alongside OPEN_CLASS / FINAL_CLASS unless the class is already tagged
 * INLINE, VALUE, EXPECT, ACTUAL or ABSTRACT. A class that collects no tag
 * at all is REGULAR_CLASS.
 *
 * Tags are bitmasks, so the result is an unordered set and independent of
 * the order in which checks run.
 */

// Tags is the classification result: the category of the declaration and
// its tags within that category.
type Tags struct {
	Kind types.DeclKind
	TargetSets
}

// Matches reports whether the tags intersect the target kinds of the same
// category in ts. An empty target set never matches.
func (t Tags) Matches(ts TargetSets) bool {
	switch t.Kind {
	case types.DeclClass:
		return t.Class.Intersects(ts.Class)
	case types.DeclFunction:
		return t.Function.Intersects(ts.Function)
	case types.DeclProperty, types.DeclVariable:
		return t.Property.Intersects(ts.Property)
	case types.DeclTypeAlias:
		return t.TypeAlias.Intersects(ts.TypeAlias)
	case types.DeclFile:
		return t.File.Intersects(ts.File)
	default:
		return false
	}
}

// notRegular lists tags that keep OPEN_CLASS / FINAL_CLASS from also
// implying REGULAR_CLASS.
var notRegular = types.NewSet(
	types.ClassInline, types.ClassValue, types.ClassExpect, types.ClassActual, types.ClassAbstract,
)

// Classify derives the tags of decl.
func Classify(decl *types.Declaration) Tags {
	tags := Tags{Kind: decl.Kind}

	switch decl.Kind {
	case types.DeclClass:
		tags.Class = classifyClass(decl)
	case types.DeclFunction:
		tags.Function = classifyFunction(decl.Function)
	case types.DeclProperty:
		tags.Property = classifyProperty(decl.Property)
	case types.DeclVariable:
		tags.Property = types.NewSet(types.PropertyLocalVariable)
	case types.DeclTypeAlias:
		tags.TypeAlias = types.NewSet(types.TypeAliasPlain)
	case types.DeclFile:
		tags.File = types.NewSet(types.FilePlain)
	}
	return tags
}

func classifyClass(decl *types.Declaration) types.Set[types.ClassTarget] {
	c := decl.Class
	if c == nil {
		return types.NewSet(types.ClassRegular)
	}

	var s types.Set[types.ClassTarget]
	add := func(cond bool, ts ...types.ClassTarget) {
		if cond {
			for _, t := range ts {
				s = s.Add(t)
			}
		}
	}

	add(c.Kind == types.ClassKindObject, types.ClassObject)
	add(c.Local, types.ClassLocal)
	add(c.Anonymous, types.ClassAnonymous)
	add(c.Kind == types.ClassKindEnum, types.ClassEnum)
	add(c.Kind == types.ClassKindAnnotation, types.ClassAnnotation)
	add(c.Kind == types.ClassKindInterface, types.ClassInterface)
	add(c.Data, types.ClassData)
	add(c.Companion, types.ClassCompanionObject)
	add(c.Inner, types.ClassInner, types.ClassRegular)
	add(decl.IsNested(), types.ClassNested, types.ClassRegular)
	add(c.Expect, types.ClassExpect)
	add(c.Actual, types.ClassActual)
	add(c.Inline, types.ClassInline)
	add(c.Value || (c.Inline && decl.Name != "Result"), types.ClassValue)

	switch classModality(c) {
	case types.ModalityAbstract:
		s = s.Add(types.ClassAbstract)
	case types.ModalitySealed:
		s = s.Add(types.ClassSealed)
	case types.ModalityOpen:
		s = s.Add(types.ClassOpen)
		if !s.Intersects(notRegular) {
			s = s.Add(types.ClassRegular)
		}
	case types.ModalityFinal:
		s = s.Add(types.ClassFinal)
		if !s.Intersects(notRegular) {
			s = s.Add(types.ClassRegular)
		}
	}

	if s.Empty() {
		s = s.Add(types.ClassRegular)
	}
	return s
}

func classifyFunction(f *types.FunctionInfo) types.Set[types.FunctionTarget] {
	if f == nil {
		return types.NewSet(types.FunctionPlain)
	}
	switch f.Kind {
	case types.FunctionKindLambda:
		return types.NewSet(types.FunctionLambda)
	case types.FunctionKindConstructor:
		return types.NewSet(types.FunctionConstructor)
	default:
		if f.Suspend {
			return types.NewSet(types.FunctionPlain, types.FunctionSuspend)
		}
		return types.NewSet(types.FunctionPlain)
	}
}

func classifyProperty(p *types.PropertyInfo) types.Set[types.PropertyTarget] {
	if p == nil {
		return types.NewSet(types.PropertyPlain)
	}
	switch p.Kind {
	case types.PropertyKindField:
		return types.NewSet(types.PropertyField)
	case types.PropertyKindValueParameter:
		return types.NewSet(types.PropertyValueParameter)
	case types.PropertyKindGetter:
		return types.NewSet(types.PropertyGetter)
	case types.PropertyKindSetter:
		return types.NewSet(types.PropertySetter)
	default:
		return types.NewSet(types.PropertyPlain)
	}
}
