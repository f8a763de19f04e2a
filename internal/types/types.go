// Package types provides domain models shared across autoannotate components.
//
// The rule model (Rule, Condition, PackageTarget, ...) mirrors the JSON/YAML
// rule-set document field for field; compilation into evaluable form happens
// in internal/rules. The declaration model is a closed tagged variant over the
// declaration kinds a host can hand to the engine.
//
// Separation from transport: the gRPC boundary converts google.protobuf.Struct
// payloads to these types through JSON. Nothing here imports grpc or protobuf.
package types

// Unit identifies the compilation unit a pass runs in.
// Module and Variant feed the moduleTarget and sourceSets filters of a rule.
type Unit struct {
	Module  string `json:"module,omitempty" yaml:"module,omitempty"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// Resource limits enforced by the engine and its boundaries.
const (
	// MaxTraversalDepth bounds recursion through nested and field-referenced
	// classes. Deeper chains are cut off with a warning.
	MaxTraversalDepth = 64

	// MaxRules caps the size of a single rule set.
	MaxRules = 4096

	// MaxDeclarations caps the number of declarations in one tree document
	// accepted over the network.
	MaxDeclarations = 100000
)
