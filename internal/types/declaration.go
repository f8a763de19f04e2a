package types

import "strings"

/*
 * Declaration tree model.
 *
 * A Declaration is a closed tagged variant: Kind selects which payload
 * pointer is meaningful (Class for DeclClass, Function for DeclFunction,
 * Property for DeclProperty and DeclVariable, TypeAlias for DeclTypeAlias;
 * files carry no payload). Consumers switch on Kind exhaustively instead of
 * probing payloads.
 *
 * Members holds lexically contained declarations: top-level declarations of a
 * file, nested classes, functions and properties of a class, local variables
 * of a function.
 *
 * Parent is not serialized. The host links parents once after decoding
 * (see Link) so the engine can answer "is this class nested" and build FQNs
 * without a separate index.
 *
 * Annotations is append-only from the engine's point of view; the host's
 * Attach implementation is the only writer.
 */

// Annotation is an annotation instance attached to a declaration.
type Annotation struct {
	FQName    string            `json:"fqName" yaml:"fqName"`
	Arguments map[string]string `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

// ClassInfo is the payload of a class declaration.
type ClassInfo struct {
	Kind       ClassKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Modality   Modality  `json:"modality,omitempty" yaml:"modality,omitempty"`
	Data       bool      `json:"data,omitempty" yaml:"data,omitempty"`
	Inner      bool      `json:"inner,omitempty" yaml:"inner,omitempty"`
	Companion  bool      `json:"companion,omitempty" yaml:"companion,omitempty"`
	Local      bool      `json:"local,omitempty" yaml:"local,omitempty"`
	Anonymous  bool      `json:"anonymous,omitempty" yaml:"anonymous,omitempty"`
	Expect     bool      `json:"expect,omitempty" yaml:"expect,omitempty"`
	Actual     bool      `json:"actual,omitempty" yaml:"actual,omitempty"`
	Inline     bool      `json:"inline,omitempty" yaml:"inline,omitempty"`
	Value      bool      `json:"value,omitempty" yaml:"value,omitempty"`
	Superclass string    `json:"superclass,omitempty" yaml:"superclass,omitempty"`
	Interfaces []string  `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// FunctionInfo is the payload of a function declaration.
type FunctionInfo struct {
	Kind       FunctionKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Suspend    bool         `json:"suspend,omitempty" yaml:"suspend,omitempty"`
	ReturnType string       `json:"returnType,omitempty" yaml:"returnType,omitempty"`
}

// PropertyInfo is the payload of property and variable declarations.
type PropertyInfo struct {
	Kind     PropertyKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type     string       `json:"type,omitempty" yaml:"type,omitempty"`
	Const    bool         `json:"const,omitempty" yaml:"const,omitempty"`
	Lateinit bool         `json:"lateinit,omitempty" yaml:"lateinit,omitempty"`
}

// TypeAliasInfo is the payload of a type alias declaration.
type TypeAliasInfo struct {
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Declaration is one node of the declaration tree.
type Declaration struct {
	Kind        DeclKind       `json:"kind" yaml:"kind"`
	Name        string         `json:"name" yaml:"name"`
	Package     string         `json:"package,omitempty" yaml:"package,omitempty"`
	Visibility  Visibility     `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Modifiers   []Modifier     `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Annotations []Annotation   `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Class       *ClassInfo     `json:"class,omitempty" yaml:"class,omitempty"`
	Function    *FunctionInfo  `json:"function,omitempty" yaml:"function,omitempty"`
	Property    *PropertyInfo  `json:"property,omitempty" yaml:"property,omitempty"`
	TypeAlias   *TypeAliasInfo `json:"typeAlias,omitempty" yaml:"typeAlias,omitempty"`
	Members     []*Declaration `json:"members,omitempty" yaml:"members,omitempty"`

	Parent *Declaration `json:"-" yaml:"-"`
}

// Link sets Parent on every member below d and propagates Package from
// parents to members that leave it empty.
func Link(d *Declaration) {
	for _, m := range d.Members {
		m.Parent = d
		if m.Package == "" {
			m.Package = d.Package
		}
		Link(m)
	}
}

// IsClassLike reports whether d is a class declaration.
func (d *Declaration) IsClassLike() bool {
	return d.Kind == DeclClass
}

// ContainingClass returns the nearest enclosing class, or nil.
func (d *Declaration) ContainingClass() *Declaration {
	for p := d.Parent; p != nil; p = p.Parent {
		if p.Kind == DeclClass {
			return p
		}
	}
	return nil
}

// IsNested reports whether d is a class lexically contained in another class.
func (d *Declaration) IsNested() bool {
	return d.Kind == DeclClass && d.Parent != nil && d.Parent.Kind == DeclClass
}

// FQName returns the package-qualified name of d. Classes nested in classes
// are qualified by their enclosing class names. Files return their package.
func (d *Declaration) FQName() string {
	if d.Kind == DeclFile {
		return d.Package
	}
	var parts []string
	for cur := d; cur != nil && cur.Kind != DeclFile; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	name := strings.Join(parts, ".")
	if d.Package == "" {
		return name
	}
	return d.Package + "." + name
}

// HasAnnotation reports whether an annotation with fqName is attached.
func (d *Declaration) HasAnnotation(fqName string) bool {
	for _, a := range d.Annotations {
		if a.FQName == fqName {
			return true
		}
	}
	return false
}

// Walk calls fn for d and every declaration below it, depth-first, stopping
// early when fn returns false. Nil declarations are skipped.
func Walk(d *Declaration, fn func(*Declaration) bool) bool {
	if d == nil {
		return true
	}
	if !fn(d) {
		return false
	}
	for _, m := range d.Members {
		if !Walk(m, fn) {
			return false
		}
	}
	return true
}

// ShortName returns the last dot-separated segment of fqName.
func ShortName(fqName string) string {
	if i := strings.LastIndexByte(fqName, '.'); i >= 0 {
		return fqName[i+1:]
	}
	return fqName
}
