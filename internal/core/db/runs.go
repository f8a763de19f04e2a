package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/autoannotate/internal/tree"
	"github.com/solatis/autoannotate/internal/types"
)

// Run is one recorded engine run.
type Run struct {
	ID          types.RunID `db:"run_id" json:"runId"`
	Module      string      `db:"module" json:"module"`
	Variant     string      `db:"variant" json:"variant"`
	RuleSetETag string      `db:"ruleset_etag" json:"ruleSetEtag"`
	Visited     int         `db:"visited" json:"visited"`
	Applied     int         `db:"applied" json:"applied"`
	Skipped     int         `db:"skipped" json:"skipped"`
	Failures    int         `db:"failures" json:"failures"`
	StartedAtMs int64       `db:"started_at_ms" json:"startedAtMs"`
	DurationMs  int64       `db:"duration_ms" json:"durationMs"`
}

// StartedAt returns the run start time in UTC.
func (r *Run) StartedAt() time.Time {
	return time.UnixMilli(r.StartedAtMs).UTC()
}

// AppliedAnnotation is one annotation attached during a run.
type AppliedAnnotation struct {
	RunID       types.RunID `db:"run_id"`
	Seq         int         `db:"seq"`
	Declaration string      `db:"declaration"`
	Kind        string      `db:"decl_kind"`
	FQName      string      `db:"annotation_fqn"`
	Arguments   string      `db:"arguments"`
}

// Change converts the row back into the change it was recorded from.
func (a AppliedAnnotation) Change() (tree.Change, error) {
	kind, err := types.ParseDeclKind(a.Kind)
	if err != nil {
		return tree.Change{}, err
	}
	ann := types.Annotation{FQName: a.FQName}
	if err := json.Unmarshal([]byte(a.Arguments), &ann.Arguments); err != nil {
		return tree.Change{}, fmt.Errorf("run %s annotation %d: decode arguments: %w", a.RunID, a.Seq, err)
	}
	if len(ann.Arguments) == 0 {
		ann.Arguments = nil
	}
	return tree.Change{Declaration: a.Declaration, Kind: kind, Annotation: ann}, nil
}

// RunStore records runs and the annotations they attached.
type RunStore struct {
	queries *Queries
}

// NewRunStore creates a store over loaded queries.
func NewRunStore(queries *Queries) *RunStore {
	return &RunStore{queries: queries}
}

// RecordRun stores run and its changes in one transaction. A run without an
// ID gets a fresh one; the stored ID is returned.
func (s *RunStore) RecordRun(ctx context.Context, run *Run, changes []tree.Change) (types.RunID, error) {
	if run.ID == "" {
		run.ID = types.NewRunID()
	}

	tx, err := s.queries.DB().BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	if err := s.insertRun(ctx, tx, run, changes); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

func (s *RunStore) insertRun(ctx context.Context, tx *sqlx.Tx, run *Run, changes []tree.Change) error {
	_, err := s.queries.ExecOn(ctx, tx, "insert-run",
		string(run.ID), run.Module, run.Variant, run.RuleSetETag,
		run.Visited, run.Applied, run.Skipped, run.Failures,
		run.StartedAtMs, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, c := range changes {
		args := c.Annotation.Arguments
		if args == nil {
			args = map[string]string{}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode arguments of @%s: %w", types.ShortName(c.Annotation.FQName), err)
		}
		_, err = s.queries.ExecOn(ctx, tx, "insert-applied-annotation",
			string(run.ID), i, c.Declaration, c.Kind.String(), c.Annotation.FQName, string(encoded),
		)
		if err != nil {
			return fmt.Errorf("insert annotation %d of run %s: %w", i, run.ID, err)
		}
	}
	return nil
}

// GetRun loads a run by ID.
func (s *RunStore) GetRun(ctx context.Context, id types.RunID) (*Run, error) {
	var run Run
	if err := s.queries.Get(ctx, "get-run", &run, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := s.queries.Select(ctx, "list-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListRunAnnotations returns the annotations of a run in attachment order.
func (s *RunStore) ListRunAnnotations(ctx context.Context, id types.RunID) ([]AppliedAnnotation, error) {
	var rows []AppliedAnnotation
	if err := s.queries.Select(ctx, "list-applied-annotations", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("list annotations of run %s: %w", id, err)
	}
	return rows, nil
}
