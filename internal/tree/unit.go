package tree

import (
	"fmt"

	"github.com/solatis/autoannotate/internal/types"
)

// Change is one annotation attached during a pass.
type Change struct {
	Declaration string           `json:"declaration" yaml:"declaration"`
	Kind        types.DeclKind   `json:"kind" yaml:"kind"`
	Annotation  types.Annotation `json:"annotation" yaml:"annotation"`
}

// Unit is a linked, indexed document. It implements rules.Host.
// Not safe for concurrent use.
type Unit struct {
	doc       *Document
	classes   map[string]*types.Declaration
	externals map[string]*types.Declaration
	changes   []Change
}

// New links doc, fills defaults and indexes its classes. The document is
// modified in place: parents are set, packages propagated and class payloads
// normalized.
func New(doc *Document) (*Unit, error) {
	u := &Unit{
		doc:       doc,
		classes:   make(map[string]*types.Declaration),
		externals: make(map[string]*types.Declaration, len(doc.Externals)),
	}

	count := 0
	for _, f := range doc.Files {
		if f == nil {
			return nil, fmt.Errorf("document has a null file entry")
		}
		if f.Kind != types.DeclFile {
			return nil, fmt.Errorf("top-level declaration %q is a %s, want file", f.Name, f.Kind)
		}
		// Bound the tree before any pass that touches every node
		if !types.Walk(f, func(*types.Declaration) bool {
			count++
			return count <= types.MaxDeclarations
		}) {
			return nil, fmt.Errorf("%w: more than %d declarations", types.ErrTooManyDeclarations, types.MaxDeclarations)
		}
		dropNilMembers(f)
		types.Link(f)
		types.Walk(f, func(d *types.Declaration) bool {
			normalize(d)
			if d.Kind == types.DeclClass {
				fq := d.FQName()
				if _, dup := u.classes[fq]; !dup {
					u.classes[fq] = d
				}
			}
			return true
		})
	}

	for _, ext := range doc.Externals {
		if ext.FQName == "" {
			continue
		}
		info := &types.ClassInfo{
			Kind:       ext.Kind,
			Superclass: ext.Superclass,
			Interfaces: ext.Interfaces,
		}
		normalizeClass(info)
		u.externals[ext.FQName] = &types.Declaration{
			Kind:    types.DeclClass,
			Name:    types.ShortName(ext.FQName),
			Package: packageOf(ext.FQName),
			Class:   info,
		}
	}
	return u, nil
}

// dropNilMembers removes null entries a document may carry in member lists.
func dropNilMembers(d *types.Declaration) {
	kept := d.Members[:0]
	for _, m := range d.Members {
		if m != nil {
			dropNilMembers(m)
			kept = append(kept, m)
		}
	}
	d.Members = kept
}

// normalize fills payload defaults the engine relies on.
func normalize(d *types.Declaration) {
	switch d.Kind {
	case types.DeclClass:
		if d.Class == nil {
			d.Class = &types.ClassInfo{}
		}
		normalizeClass(d.Class)
	case types.DeclFunction:
		if d.Function == nil {
			d.Function = &types.FunctionInfo{}
		}
	case types.DeclProperty, types.DeclVariable:
		if d.Property == nil {
			d.Property = &types.PropertyInfo{}
		}
	case types.DeclTypeAlias:
		if d.TypeAlias == nil {
			d.TypeAlias = &types.TypeAliasInfo{}
		}
	case types.DeclFile:
		if d.Name == "" {
			d.Name = d.Package
		}
	}
}

// normalizeClass makes interface modality abstract and everything else
// final unless stated otherwise.
func normalizeClass(c *types.ClassInfo) {
	if c.Modality != types.ModalityUnspecified {
		return
	}
	if c.Kind == types.ClassKindInterface {
		c.Modality = types.ModalityAbstract
	} else {
		c.Modality = types.ModalityFinal
	}
}

func packageOf(fqName string) string {
	short := types.ShortName(fqName)
	if len(short) == len(fqName) {
		return ""
	}
	return fqName[:len(fqName)-len(short)-1]
}

// Info returns the module and variant of the unit.
func (u *Unit) Info() types.Unit {
	return types.Unit{Module: u.doc.Module, Variant: u.doc.Variant}
}

// Roots returns the file declarations of the unit.
func (u *Unit) Roots() []*types.Declaration {
	return u.doc.Files
}

// Document returns the underlying document, including attached annotations.
func (u *Unit) Document() *Document {
	return u.doc
}

// Class resolves a class declared in the unit.
func (u *Unit) Class(fqName string) (*types.Declaration, bool) {
	d, ok := u.classes[fqName]
	return d, ok
}

// Symbol resolves a class declared in the unit or listed as external.
// Unit declarations shadow externals.
func (u *Unit) Symbol(fqName string) (*types.Declaration, bool) {
	if d, ok := u.classes[fqName]; ok {
		return d, true
	}
	d, ok := u.externals[fqName]
	return d, ok
}

// Attach appends ann to decl and records the change. Attaching an FQN that
// is already present is a no-op.
func (u *Unit) Attach(decl *types.Declaration, ann types.Annotation) error {
	if decl == nil {
		return fmt.Errorf("attach @%s: nil declaration", types.ShortName(ann.FQName))
	}
	if decl.HasAnnotation(ann.FQName) {
		return nil
	}
	decl.Annotations = append(decl.Annotations, ann)
	u.changes = append(u.changes, Change{
		Declaration: decl.FQName(),
		Kind:        decl.Kind,
		Annotation:  ann,
	})
	return nil
}

// Changes returns the annotations attached so far, in attachment order.
func (u *Unit) Changes() []Change {
	out := make([]Change, len(u.changes))
	copy(out, u.changes)
	return out
}
