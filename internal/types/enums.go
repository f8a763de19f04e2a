package types

import (
	"fmt"
	"strconv"
	"strings"
)

/*
 * Closed enums of the rule model and the declaration model.
 *
 * Every enum is a uint8 with a parallel name table. Names are the wire form
 * in JSON and YAML (both encoders honour encoding.TextMarshaler), parsing is
 * case-insensitive and tolerates surrounding whitespace.
 *
 * Rule-side enums use the upper-case names of the rule-set document
 * (REGULAR_CLASS, SUSPEND_FUNCTION, ...). Declaration-side enums use
 * lower-case names (class, interface, abstract, ...).
 */

func enumString[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[int(v)]
	}
	return strconv.Itoa(int(v))
}

func enumText[T ~uint8](kind string, names []string, v T) ([]byte, error) {
	if int(v) >= len(names) {
		return nil, fmt.Errorf("%w: %s value %d", ErrUnknownEnumValue, kind, v)
	}
	return []byte(names[int(v)]), nil
}

func enumParse[T ~uint8](kind string, names []string, s string) (T, error) {
	norm := strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, norm) {
			return T(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q (valid: %s)", ErrUnknownEnumValue, kind, s, strings.Join(names, ", "))
}

// MatchType selects how a PackageTarget pattern is compared.
type MatchType uint8

const (
	MatchExact MatchType = iota
	MatchWildcard
	MatchRegex
)

var matchTypeNames = []string{"EXACT", "WILDCARD", "REGEX"}

func ParseMatchType(s string) (MatchType, error) { return enumParse[MatchType]("match type", matchTypeNames, s) }
func (m MatchType) String() string                { return enumString(matchTypeNames, m) }
func (m MatchType) MarshalText() ([]byte, error)  { return enumText("match type", matchTypeNames, m) }
func (m *MatchType) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMatchType(string(b))
	return err
}

// Visibility is the resolved visibility of a declaration.
// The zero value is public, matching the default of the declaration language.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityProtected
	VisibilityInternal
)

var visibilityNames = []string{"PUBLIC", "PRIVATE", "PROTECTED", "INTERNAL"}

func ParseVisibility(s string) (Visibility, error) {
	return enumParse[Visibility]("visibility", visibilityNames, s)
}
func (v Visibility) String() string               { return enumString(visibilityNames, v) }
func (v Visibility) MarshalText() ([]byte, error) { return enumText("visibility", visibilityNames, v) }
func (v *Visibility) UnmarshalText(b []byte) (err error) {
	*v, err = ParseVisibility(string(b))
	return err
}

// Modifier is a source-level modifier keyword.
type Modifier uint8

const (
	ModifierAbstract Modifier = iota
	ModifierOpen
	ModifierFinal
	ModifierSealed
	ModifierData
	ModifierEnum
	ModifierInterface
	ModifierObject
	ModifierCompanion
	ModifierConst
	ModifierLateinit
	ModifierInline
	ModifierNoinline
	ModifierCrossinline
	ModifierReified
	ModifierTailrec
	ModifierSuspend
	ModifierOperator
	ModifierInfix
	ModifierExternal
	ModifierAnnotation
	ModifierVararg
	ModifierOverride
	ModifierExpect
	ModifierActual
	ModifierPublic
	ModifierPrivate
	ModifierProtected
	ModifierInternal
	ModifierInner
	ModifierValue
)

var modifierNames = []string{
	"ABSTRACT", "OPEN", "FINAL", "SEALED", "DATA", "ENUM", "INTERFACE", "OBJECT",
	"COMPANION", "CONST", "LATEINIT", "INLINE", "NOINLINE", "CROSSINLINE", "REIFIED",
	"TAILREC", "SUSPEND", "OPERATOR", "INFIX", "EXTERNAL", "ANNOTATION", "VARARG",
	"OVERRIDE", "EXPECT", "ACTUAL", "PUBLIC", "PRIVATE", "PROTECTED", "INTERNAL",
	"INNER", "VALUE",
}

func ParseModifier(s string) (Modifier, error) { return enumParse[Modifier]("modifier", modifierNames, s) }
func (m Modifier) String() string               { return enumString(modifierNames, m) }
func (m Modifier) MarshalText() ([]byte, error) { return enumText("modifier", modifierNames, m) }
func (m *Modifier) UnmarshalText(b []byte) (err error) {
	*m, err = ParseModifier(string(b))
	return err
}

// ClassTarget is a structural tag of a class-like declaration.
type ClassTarget uint8

const (
	ClassRegular ClassTarget = iota
	ClassEnum
	ClassSealed
	ClassData
	ClassObject
	ClassAnnotation
	ClassInterface
	ClassCompanionObject
	ClassLocal
	ClassAnonymous
	ClassAbstract
	ClassOpen
	ClassFinal
	ClassInner
	ClassNested
	ClassExpect
	ClassActual
	ClassInline
	ClassValue
)

var classTargetNames = []string{
	"REGULAR_CLASS", "ENUM_CLASS", "SEALED_CLASS", "DATA_CLASS", "OBJECT_CLASS",
	"ANNOTATION_CLASS", "INTERFACE_CLASS", "COMPANION_OBJECT_CLASS", "LOCAL_CLASS",
	"ANONYMOUS_CLASS", "ABSTRACT_CLASS", "OPEN_CLASS", "FINAL_CLASS", "INNER_CLASS",
	"NESTED_CLASS", "EXPECT_CLASS", "ACTUAL_CLASS", "INLINE_CLASS", "VALUE_CLASS",
}

func ParseClassTarget(s string) (ClassTarget, error) {
	return enumParse[ClassTarget]("class target", classTargetNames, s)
}
func (c ClassTarget) String() string               { return enumString(classTargetNames, c) }
func (c ClassTarget) MarshalText() ([]byte, error) { return enumText("class target", classTargetNames, c) }
func (c *ClassTarget) UnmarshalText(b []byte) (err error) {
	*c, err = ParseClassTarget(string(b))
	return err
}

// FunctionTarget is a structural tag of a function declaration.
type FunctionTarget uint8

const (
	FunctionPlain FunctionTarget = iota
	FunctionSuspend
	FunctionLambda
	FunctionConstructor
)

var functionTargetNames = []string{"FUNCTION", "SUSPEND_FUNCTION", "LAMBDA", "CONSTRUCTOR"}

func ParseFunctionTarget(s string) (FunctionTarget, error) {
	return enumParse[FunctionTarget]("function target", functionTargetNames, s)
}
func (f FunctionTarget) String() string { return enumString(functionTargetNames, f) }
func (f FunctionTarget) MarshalText() ([]byte, error) {
	return enumText("function target", functionTargetNames, f)
}
func (f *FunctionTarget) UnmarshalText(b []byte) (err error) {
	*f, err = ParseFunctionTarget(string(b))
	return err
}

// PropertyTarget is a structural tag of a property or variable declaration.
type PropertyTarget uint8

const (
	PropertyPlain PropertyTarget = iota
	PropertyField
	PropertyLocalVariable
	PropertyValueParameter
	PropertyGetter
	PropertySetter
)

var propertyTargetNames = []string{"PROPERTY", "FIELD", "LOCAL_VARIABLE", "VALUE_PARAMETER", "GETTER", "SETTER"}

func ParsePropertyTarget(s string) (PropertyTarget, error) {
	return enumParse[PropertyTarget]("property target", propertyTargetNames, s)
}
func (p PropertyTarget) String() string { return enumString(propertyTargetNames, p) }
func (p PropertyTarget) MarshalText() ([]byte, error) {
	return enumText("property target", propertyTargetNames, p)
}
func (p *PropertyTarget) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePropertyTarget(string(b))
	return err
}

// TypeAliasTarget tags type alias declarations.
type TypeAliasTarget uint8

const TypeAliasPlain TypeAliasTarget = 0

var typeAliasTargetNames = []string{"TYPE_ALIAS"}

func (t TypeAliasTarget) String() string { return enumString(typeAliasTargetNames, t) }
func (t TypeAliasTarget) MarshalText() ([]byte, error) {
	return enumText("type alias target", typeAliasTargetNames, t)
}
func (t *TypeAliasTarget) UnmarshalText(b []byte) (err error) {
	*t, err = enumParse[TypeAliasTarget]("type alias target", typeAliasTargetNames, string(b))
	return err
}

// FileTarget tags file declarations.
type FileTarget uint8

const FilePlain FileTarget = 0

var fileTargetNames = []string{"FILE"}

func (f FileTarget) String() string               { return enumString(fileTargetNames, f) }
func (f FileTarget) MarshalText() ([]byte, error) { return enumText("file target", fileTargetNames, f) }
func (f *FileTarget) UnmarshalText(b []byte) (err error) {
	*f, err = enumParse[FileTarget]("file target", fileTargetNames, string(b))
	return err
}

// DeclKind is the variant tag of a Declaration.
type DeclKind uint8

const (
	DeclClass DeclKind = iota
	DeclFunction
	DeclProperty
	DeclVariable
	DeclTypeAlias
	DeclFile
)

var declKindNames = []string{"class", "function", "property", "variable", "typealias", "file"}

func ParseDeclKind(s string) (DeclKind, error) {
	return enumParse[DeclKind]("declaration kind", declKindNames, s)
}
func (k DeclKind) String() string               { return enumString(declKindNames, k) }
func (k DeclKind) MarshalText() ([]byte, error) { return enumText("declaration kind", declKindNames, k) }
func (k *DeclKind) UnmarshalText(b []byte) (err error) {
	*k, err = ParseDeclKind(string(b))
	return err
}

// ClassKind is the syntactic flavour of a class declaration.
type ClassKind uint8

const (
	ClassKindClass ClassKind = iota
	ClassKindInterface
	ClassKindEnum
	ClassKindObject
	ClassKindAnnotation
)

var classKindNames = []string{"class", "interface", "enum", "object", "annotation"}

func (k ClassKind) String() string               { return enumString(classKindNames, k) }
func (k ClassKind) MarshalText() ([]byte, error) { return enumText("class kind", classKindNames, k) }
func (k *ClassKind) UnmarshalText(b []byte) (err error) {
	*k, err = enumParse[ClassKind]("class kind", classKindNames, string(b))
	return err
}

// Modality of a class. Unspecified is resolved by the host when the tree is
// built: interfaces become abstract, everything else final.
type Modality uint8

const (
	ModalityUnspecified Modality = iota
	ModalityFinal
	ModalityOpen
	ModalityAbstract
	ModalitySealed
)

var modalityNames = []string{"unspecified", "final", "open", "abstract", "sealed"}

func (m Modality) String() string               { return enumString(modalityNames, m) }
func (m Modality) MarshalText() ([]byte, error) { return enumText("modality", modalityNames, m) }
func (m *Modality) UnmarshalText(b []byte) (err error) {
	*m, err = enumParse[Modality]("modality", modalityNames, string(b))
	return err
}

// FunctionKind distinguishes named functions from lambdas and constructors.
type FunctionKind uint8

const (
	FunctionKindNamed FunctionKind = iota
	FunctionKindLambda
	FunctionKindConstructor
)

var functionKindNames = []string{"function", "lambda", "constructor"}

func (k FunctionKind) String() string { return enumString(functionKindNames, k) }
func (k FunctionKind) MarshalText() ([]byte, error) {
	return enumText("function kind", functionKindNames, k)
}
func (k *FunctionKind) UnmarshalText(b []byte) (err error) {
	*k, err = enumParse[FunctionKind]("function kind", functionKindNames, string(b))
	return err
}

// PropertyKind distinguishes the property-like declarations.
type PropertyKind uint8

const (
	PropertyKindProperty PropertyKind = iota
	PropertyKindField
	PropertyKindValueParameter
	PropertyKindGetter
	PropertyKindSetter
)

var propertyKindNames = []string{"property", "field", "value_parameter", "getter", "setter"}

func (k PropertyKind) String() string { return enumString(propertyKindNames, k) }
func (k PropertyKind) MarshalText() ([]byte, error) {
	return enumText("property kind", propertyKindNames, k)
}
func (k *PropertyKind) UnmarshalText(b []byte) (err error) {
	*k, err = enumParse[PropertyKind]("property kind", propertyKindNames, string(b))
	return err
}
