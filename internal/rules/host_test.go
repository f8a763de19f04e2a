// internal/rules/host_test.go
package rules

import (
	"github.com/solatis/autoannotate/internal/types"
)

// testHost is an in-memory Host over linked declaration trees.
type testHost struct {
	classes   map[string]*types.Declaration
	externals map[string]*types.Declaration
	attached  []string // "decl@annotation", in attachment order

	attachErr   error
	attachPanic bool
	symbolPanic string // Symbol panics when asked for this FQN
}

func newTestHost(roots ...*types.Declaration) *testHost {
	h := &testHost{
		classes:   make(map[string]*types.Declaration),
		externals: make(map[string]*types.Declaration),
	}
	for _, r := range roots {
		types.Link(r)
		types.Walk(r, func(d *types.Declaration) bool {
			if d.Kind == types.DeclClass {
				h.classes[d.FQName()] = d
			}
			return true
		})
	}
	return h
}

// withAnnotations registers external annotation classes.
func (h *testHost) withAnnotations(fqNames ...string) *testHost {
	for _, fq := range fqNames {
		h.externals[fq] = &types.Declaration{
			Kind:  types.DeclClass,
			Name:  types.ShortName(fq),
			Class: &types.ClassInfo{Kind: types.ClassKindAnnotation},
		}
	}
	return h
}

// withExternal registers a library class.
func (h *testHost) withExternal(fqName string, info types.ClassInfo) *testHost {
	h.externals[fqName] = &types.Declaration{
		Kind:  types.DeclClass,
		Name:  types.ShortName(fqName),
		Class: &info,
	}
	return h
}

func (h *testHost) Class(fqName string) (*types.Declaration, bool) {
	d, ok := h.classes[fqName]
	return d, ok
}

func (h *testHost) Symbol(fqName string) (*types.Declaration, bool) {
	if h.symbolPanic != "" && fqName == h.symbolPanic {
		panic("symbol table corrupted")
	}
	if d, ok := h.classes[fqName]; ok {
		return d, true
	}
	d, ok := h.externals[fqName]
	return d, ok
}

func (h *testHost) Attach(decl *types.Declaration, ann types.Annotation) error {
	if h.attachPanic {
		panic("attach exploded")
	}
	if h.attachErr != nil {
		return h.attachErr
	}
	decl.Annotations = append(decl.Annotations, ann)
	h.attached = append(h.attached, decl.FQName()+"@"+ann.FQName)
	return nil
}

// Tree builders.

func file(pkg string, members ...*types.Declaration) *types.Declaration {
	return &types.Declaration{Kind: types.DeclFile, Name: pkg, Package: pkg, Members: members}
}

func class(name string, members ...*types.Declaration) *types.Declaration {
	return &types.Declaration{Kind: types.DeclClass, Name: name, Class: &types.ClassInfo{}, Members: members}
}

func classWith(name string, info types.ClassInfo, members ...*types.Declaration) *types.Declaration {
	return &types.Declaration{Kind: types.DeclClass, Name: name, Class: &info, Members: members}
}

func function(name, returnType string) *types.Declaration {
	return &types.Declaration{Kind: types.DeclFunction, Name: name, Function: &types.FunctionInfo{ReturnType: returnType}}
}

func property(name, typ string) *types.Declaration {
	return &types.Declaration{Kind: types.DeclProperty, Name: name, Property: &types.PropertyInfo{Type: typ}}
}

func annotationNames(d *types.Declaration) []string {
	out := make([]string, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		out = append(out, a.FQName)
	}
	return out
}

func countAnnotation(d *types.Declaration, fqName string) int {
	n := 0
	for _, a := range d.Annotations {
		if a.FQName == fqName {
			n++
		}
	}
	return n
}

func classRule(pkg string, annotations ...string) types.Rule {
	r := types.DefaultRule()
	for _, a := range annotations {
		r.AnnotationsToAdd = append(r.AnnotationsToAdd, types.AnnotationSpec{FQName: a})
	}
	r.ClassTargets = []types.ClassTarget{types.ClassRegular}
	r.PackageTarget = []types.PackageTarget{{Pattern: pkg, MatchType: types.MatchExact}}
	return r
}

func strPtr(s string) *string { return &s }
