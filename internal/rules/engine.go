// internal/rules/engine.go
package rules

import (
	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

// Engine applies a compiled rule set to declaration trees.
// Immutable after construction and safe for concurrent use; per-unit state
// lives in a Pass.
type Engine struct {
	rules    *RuleSet
	reporter diag.Reporter
	verbose  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter routes diagnostics to r. The default discards them.
func WithReporter(r diag.Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithVerbose enables INFO diagnostics (applied, skipped, gated).
// WARNING diagnostics are always reported.
func WithVerbose(verbose bool) Option {
	return func(e *Engine) {
		e.verbose = verbose
	}
}

// NewEngine creates an engine over rs. A nil rule set behaves as empty.
func NewEngine(rs *RuleSet, opts ...Option) *Engine {
	if rs == nil {
		rs = EmptyRuleSet()
	}
	e := &Engine{
		rules:    rs,
		reporter: diag.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the rule set the engine applies.
func (e *Engine) Rules() *RuleSet {
	return e.rules
}

// NewPass starts a pass over one compilation unit.
func (e *Engine) NewPass(host Host, unit types.Unit) *Pass {
	return &Pass{
		engine:    e,
		host:      host,
		unit:      unit,
		processed: make(map[processedKey]struct{}),
	}
}

// Apply runs a single pass over roots.
func (e *Engine) Apply(host Host, unit types.Unit, roots ...*types.Declaration) Stats {
	return e.NewPass(host, unit).Apply(roots...)
}
