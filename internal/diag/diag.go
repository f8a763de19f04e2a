// Package diag carries engine diagnostics from the core to whatever sink the
// host picks: a zerolog logger, an in-memory collector for responses and
// tests, or nothing.
package diag

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("unknown-severity(%d)", s)
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind classifies what produced a diagnostic.
type Kind uint8

const (
	KindApplied    Kind = iota // annotation attached
	KindSkipped                // rule gated off for a declaration
	KindConfig                 // rule-set load warning
	KindResolution             // annotation type could not be resolved
	KindEvaluation             // condition could not be evaluated
	KindTraversal              // traversal cut short
	KindFailure                // host or engine failure while applying a rule
)

func (k Kind) String() string {
	switch k {
	case KindApplied:
		return "applied"
	case KindSkipped:
		return "skipped"
	case KindConfig:
		return "config"
	case KindResolution:
		return "resolution"
	case KindEvaluation:
		return "evaluation"
	case KindTraversal:
		return "traversal"
	case KindFailure:
		return "failure"
	default:
		return fmt.Sprintf("unknown-kind(%d)", k)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NoRule marks a diagnostic not tied to a single rule.
const NoRule = -1

// Diagnostic is a single event emitted by the engine.
type Diagnostic struct {
	Severity    Severity `json:"severity"`
	Kind        Kind     `json:"kind"`
	Declaration string   `json:"declaration,omitempty"`
	Rule        int      `json:"rule"`
	Message     string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Declaration == "" {
		return fmt.Sprintf("%s [%s] %s", d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Kind, d.Declaration, d.Message)
}

// Reporter receives diagnostics. Implementations must not block.
type Reporter interface {
	Report(d Diagnostic)
}

// Discard drops every diagnostic.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}

// Collector keeps diagnostics in memory. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Filter returns the collected diagnostics of the given kind.
func (c *Collector) Filter(kind Kind) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.items {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns the collected WARNING diagnostics.
func (c *Collector) Warnings() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.items {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// LogReporter writes diagnostics to a zerolog logger.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter returns a reporter logging through logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs d at Info or Warn level with structured fields.
func (r *LogReporter) Report(d Diagnostic) {
	ev := r.logger.Info()
	if d.Severity == SeverityWarning {
		ev = r.logger.Warn()
	}
	ev = ev.Str("kind", d.Kind.String())
	if d.Declaration != "" {
		ev = ev.Str("declaration", d.Declaration)
	}
	if d.Rule != NoRule {
		ev = ev.Int("rule", d.Rule)
	}
	ev.Msg(d.Message)
}

// Tee fans diagnostics out to several reporters.
func Tee(reporters ...Reporter) Reporter {
	return tee(reporters)
}

type tee []Reporter

func (t tee) Report(d Diagnostic) {
	for _, r := range t {
		r.Report(d)
	}
}
