package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/solatis/autoannotate/internal/core/db"
	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/rules"
	"github.com/solatis/autoannotate/internal/tree"
	"github.com/solatis/autoannotate/internal/types"
)

var (
	// ErrInvalidDocument wraps failures to decode or link a tree document.
	ErrInvalidDocument = errors.New("invalid declaration document")

	// ErrRecordRun wraps failures of the run store.
	ErrRecordRun = errors.New("failed to record run")
)

// RunRecorder persists runs. *db.RunStore implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *db.Run, changes []tree.Change) (types.RunID, error)
}

// Result is the outcome of one annotation run.
type Result struct {
	RunID       types.RunID       `json:"runId"`
	Stats       rules.Stats       `json:"stats"`
	Document    *tree.Document    `json:"document"`
	Changes     []tree.Change     `json:"changes"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

// Annotator runs a fixed rule set over declaration documents and optionally
// records each run. Safe for concurrent use.
type Annotator struct {
	rules           *rules.RuleSet
	etag            string
	store           RunRecorder
	reporter        diag.Reporter
	verbose         bool
	maxDeclarations int
}

// AnnotatorOption configures an Annotator.
type AnnotatorOption func(*Annotator)

// WithRunRecorder records every run in store.
func WithRunRecorder(store RunRecorder) AnnotatorOption {
	return func(a *Annotator) { a.store = store }
}

// WithLogger also routes engine diagnostics to logger.
func WithLogger(logger zerolog.Logger) AnnotatorOption {
	return func(a *Annotator) { a.reporter = diag.NewLogReporter(logger) }
}

// WithVerboseDiagnostics enables INFO diagnostics.
func WithVerboseDiagnostics(verbose bool) AnnotatorOption {
	return func(a *Annotator) { a.verbose = verbose }
}

// WithMaxDeclarations bounds the size of accepted documents.
func WithMaxDeclarations(n int) AnnotatorOption {
	return func(a *Annotator) {
		if n > 0 && n <= types.MaxDeclarations {
			a.maxDeclarations = n
		}
	}
}

// NewAnnotator creates an annotator over rs. A nil rule set behaves as empty.
func NewAnnotator(rs *rules.RuleSet, opts ...AnnotatorOption) *Annotator {
	if rs == nil {
		rs = rules.EmptyRuleSet()
	}
	a := &Annotator{
		rules:           rs,
		etag:            RuleSetETag(rs),
		reporter:        diag.Discard,
		maxDeclarations: types.MaxDeclarations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rules returns the rule set.
func (a *Annotator) Rules() *rules.RuleSet {
	return a.rules
}

// ETag returns the content address of the rule set.
func (a *Annotator) ETag() string {
	return a.etag
}

// Annotate links doc, applies the rule set to every file in it and records
// the run when a recorder is configured. doc is modified in place. On a
// recording failure the result is still returned alongside the error.
func (a *Annotator) Annotate(ctx context.Context, doc *tree.Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n := countDeclarations(doc, a.maxDeclarations); n > a.maxDeclarations {
		return nil, fmt.Errorf("%w: more than %d declarations", types.ErrTooManyDeclarations, a.maxDeclarations)
	}

	unit, err := tree.New(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	collector := &diag.Collector{}
	engine := rules.NewEngine(a.rules,
		rules.WithReporter(diag.Tee(collector, a.reporter)),
		rules.WithVerbose(a.verbose),
	)

	start := time.Now()
	stats := engine.Apply(unit, unit.Info(), unit.Roots()...)
	elapsed := time.Since(start)

	res := &Result{
		Stats:       stats,
		Document:    unit.Document(),
		Changes:     unit.Changes(),
		Diagnostics: collector.Diagnostics(),
	}

	if a.store == nil {
		res.RunID = types.NewRunID()
		return res, nil
	}

	info := unit.Info()
	run := &db.Run{
		Module:      info.Module,
		Variant:     info.Variant,
		RuleSetETag: a.etag,
		Visited:     stats.Visited,
		Applied:     stats.Applied,
		Skipped:     stats.Skipped,
		Failures:    stats.Failures,
		StartedAtMs: start.UnixMilli(),
		DurationMs:  elapsed.Milliseconds(),
	}
	id, err := a.store.RecordRun(ctx, run, res.Changes)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrRecordRun, err)
	}
	res.RunID = id
	return res, nil
}

// countDeclarations counts the declarations of doc, stopping once limit is
// exceeded.
func countDeclarations(doc *tree.Document, limit int) int {
	n := 0
	for _, f := range doc.Files {
		if !types.Walk(f, func(*types.Declaration) bool {
			n++
			return n <= limit
		}) {
			break
		}
	}
	return n
}

// RuleSetETag is the hex SHA-256 of the canonical JSON of the rule set's
// source rules. Equal rule sets have equal ETags.
func RuleSetETag(rs *rules.RuleSet) string {
	src := rs.Source()
	if src == nil {
		src = []types.Rule{}
	}
	// Marshal sorts map keys; enums marshal by name
	data, err := json.Marshal(src)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
