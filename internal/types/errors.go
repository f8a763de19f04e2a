package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for autoannotate operations.
var (
	// ErrUnknownEnumValue indicates an enum name outside the closed set.
	ErrUnknownEnumValue = errors.New("unknown enum value")

	// ErrMalformedRuleSet indicates the rule-set document could not be decoded.
	ErrMalformedRuleSet = errors.New("malformed rule set")

	// ErrTooManyRules indicates a rule set exceeds MaxRules.
	ErrTooManyRules = errors.New("rule set exceeds maximum size")

	// ErrMissingRegex indicates a REGEX package target without a regex.
	ErrMissingRegex = errors.New("regex match type requires a regex")

	// ErrInvalidRegex indicates a regex that does not compile.
	ErrInvalidRegex = errors.New("invalid regex")

	// ErrEmptyAnnotationName indicates an annotation spec without an FQN.
	ErrEmptyAnnotationName = errors.New("annotation fqName is empty")

	// ErrUnresolvedSymbol indicates an inheritance condition naming a class
	// the symbol table does not know.
	ErrUnresolvedSymbol = errors.New("unresolved symbol")

	// ErrUnresolvedAnnotation indicates an annotation class that cannot be
	// resolved in the current unit.
	ErrUnresolvedAnnotation = errors.New("annotation class not found")

	// ErrNotAnnotationClass indicates an FQN that resolves to a class that is
	// not an annotation class.
	ErrNotAnnotationClass = errors.New("not an annotation class")

	// ErrDepthExceeded indicates traversal exceeded MaxTraversalDepth.
	ErrDepthExceeded = errors.New("traversal depth exceeded")

	// ErrTooManyDeclarations indicates a tree document exceeds MaxDeclarations.
	ErrTooManyDeclarations = errors.New("declaration tree exceeds maximum size")

	// ErrRunNotFound indicates a run id with no stored record.
	ErrRunNotFound = errors.New("run not found")
)

// ConfigError is a load-time rule-set error. Rule is the index of the
// offending rule, or -1 for document-level errors. Field is a dotted path
// inside the rule ("packageTarget[1].regex").
type ConfigError struct {
	Rule  int
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Rule < 0 && e.Field == "":
		return fmt.Sprintf("config: %v", e.Err)
	case e.Rule < 0:
		return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
	case e.Field == "":
		return fmt.Sprintf("config: rule %d: %v", e.Rule, e.Err)
	default:
		return fmt.Sprintf("config: rule %d: %s: %v", e.Rule, e.Field, e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err contains a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
