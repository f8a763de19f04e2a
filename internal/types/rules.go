package types

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

/*
 * Domain types of the rule-set document.
 *
 * Field names follow the rule-set document verbatim so that a document
 * written for one transport (JSON from the build tool, YAML on disk, a
 * protobuf Struct over gRPC) decodes into the same values.
 *
 * Key types:
 *   - Rule: what to add, to which declaration kinds, where and when
 *   - AnnotationSpec: annotation FQN plus templated parameters
 *   - PackageTarget: EXACT / WILDCARD / REGEX package pattern
 *   - Condition: AND of optional sub-checks
 *   - ModuleTarget: include or exclude a build module
 *
 * Rule carries three flags whose defaults are not the Go zero value
 * (annotateNestedClassesNormallyInPackage defaults to true). Decoding starts
 * from DefaultRule so an absent key keeps its default.
 */

// AnnotationSpec describes one annotation a rule adds.
// Parameter values may contain {placeholder} tokens resolved per declaration.
type AnnotationSpec struct {
	FQName     string            `json:"fqName" yaml:"fqName"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ShortName returns the last segment of the annotation FQN.
func (a AnnotationSpec) ShortName() string {
	return ShortName(a.FQName)
}

// PackageTarget matches a package name. Regex is required iff MatchType is
// MatchRegex; Pattern is ignored in that case except for diagnostics.
type PackageTarget struct {
	Pattern   string    `json:"pattern" yaml:"pattern"`
	MatchType MatchType `json:"matchType,omitempty" yaml:"matchType,omitempty"`
	Regex     *string   `json:"regex,omitempty" yaml:"regex,omitempty"`
}

// InheritanceCondition requires a superclass and/or implemented interfaces.
type InheritanceCondition struct {
	Superclass string   `json:"superclass,omitempty" yaml:"superclass,omitempty"`
	Interfaces []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// TypeCondition matches when the declaration's type name contains any of
// TypeNames.
type TypeCondition struct {
	TypeNames []string `json:"typeNames,omitempty" yaml:"typeNames,omitempty"`
}

// Condition gates a matched rule. Unset fields pass; the result is the AND of
// the set ones.
type Condition struct {
	ExistingAnnotations []string              `json:"existingAnnotations,omitempty" yaml:"existingAnnotations,omitempty"`
	AnnotationsAbsence  []string              `json:"annotationsAbsence,omitempty" yaml:"annotationsAbsence,omitempty"`
	Visibility          *Visibility           `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Modifiers           []Modifier            `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	NamePattern         *string               `json:"namePattern,omitempty" yaml:"namePattern,omitempty"`
	Inheritance         *InheritanceCondition `json:"inheritance,omitempty" yaml:"inheritance,omitempty"`
	TypeCondition       *TypeCondition        `json:"typeCondition,omitempty" yaml:"typeCondition,omitempty"`
}

// ModuleTarget includes or excludes one build module.
type ModuleTarget struct {
	ModuleName string `json:"moduleName" yaml:"moduleName"`
	Inclusion  bool   `json:"inclusion" yaml:"inclusion"`
}

// UnmarshalJSON defaults Inclusion to true.
func (m *ModuleTarget) UnmarshalJSON(data []byte) error {
	type plain ModuleTarget
	p := plain{Inclusion: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = ModuleTarget(p)
	return nil
}

// UnmarshalYAML defaults Inclusion to true.
func (m *ModuleTarget) UnmarshalYAML(value *yaml.Node) error {
	type plain ModuleTarget
	p := plain{Inclusion: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*m = ModuleTarget(p)
	return nil
}

// Rule is a single "annotate" entry of a rule set.
type Rule struct {
	AnnotationsToAdd []AnnotationSpec  `json:"annotationsToAdd" yaml:"annotationsToAdd"`
	ClassTargets     []ClassTarget     `json:"classTargets,omitempty" yaml:"classTargets,omitempty"`
	FunctionTargets  []FunctionTarget  `json:"functionTargets,omitempty" yaml:"functionTargets,omitempty"`
	PropertyTargets  []PropertyTarget  `json:"propertyTargets,omitempty" yaml:"propertyTargets,omitempty"`
	TypeAliasTargets []TypeAliasTarget `json:"typeAliasTargets,omitempty" yaml:"typeAliasTargets,omitempty"`
	FileTargets      []FileTarget      `json:"fileTargets,omitempty" yaml:"fileTargets,omitempty"`
	PackageTarget    []PackageTarget   `json:"packageTarget" yaml:"packageTarget"`
	ModuleTarget     []ModuleTarget    `json:"moduleTarget,omitempty" yaml:"moduleTarget,omitempty"`
	SourceSets       []string          `json:"sourceSets,omitempty" yaml:"sourceSets,omitempty"`
	Conditions       []Condition       `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	AnnotateNestedClassesNormallyInPackage bool `json:"annotateNestedClassesNormallyInPackage" yaml:"annotateNestedClassesNormallyInPackage"`
	AnnotateNestedClassesRecursively       bool `json:"annotateNestedClassesRecursively" yaml:"annotateNestedClassesRecursively"`
	AnnotateFieldClassesRecursively        bool `json:"annotateFieldClassesRecursively" yaml:"annotateFieldClassesRecursively"`
}

// DefaultRule returns a Rule with the document defaults applied.
func DefaultRule() Rule {
	return Rule{AnnotateNestedClassesNormallyInPackage: true}
}

// UnmarshalJSON decodes a rule on top of DefaultRule.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	p := plain(DefaultRule())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// UnmarshalYAML decodes a rule on top of DefaultRule.
func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	type plain Rule
	p := plain(DefaultRule())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}

// HasTargets reports whether any target-kind list is non-empty.
func (r *Rule) HasTargets() bool {
	return len(r.ClassTargets) > 0 || len(r.FunctionTargets) > 0 || len(r.PropertyTargets) > 0 ||
		len(r.TypeAliasTargets) > 0 || len(r.FileTargets) > 0
}
