package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// ErrRunNotFound is returned when no run matches.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, header, scenario, scenario_format, frame_count, digest, stopped, compiler_version, format_version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run     Run
		header  string
		stopped int
	)
	err := row.Scan(&run.ID, &run.Seq, &header, &run.Scenario, &run.ScenarioFormat,
		&run.FrameCount, &run.Digest, &stopped, &run.CompilerVersion, &run.FormatVersion)
	if err != nil {
		return Run{}, err
	}
	run.Stopped = stopped != 0
	run.Header, err = unmarshalHeader(header)
	if err != nil {
		return Run{}, err
	}
	run.Header.RunID = run.ID
	return run, nil
}

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently recorded run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("read latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run in recording order.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadFrames returns a run's frames ordered by index.
// Returns an empty slice (not nil) when the run has no frames.
func (s *Store) ReadFrames(ctx context.Context, runID string) ([]sink.Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, delta FROM frames
		WHERE run_id = ?
		ORDER BY frame_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	frames := []sink.Frame{}
	for rows.Next() {
		var (
			index int
			delta string
		)
		if err := rows.Scan(&index, &delta); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		obj, err := unmarshalDelta(delta)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", index, err)
		}
		frames = append(frames, sink.Frame{Index: index, Delta: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}
	return frames, nil
}

// NodeFrame is one node's delta at one frame.
type NodeFrame struct {
	Index int
	Delta ir.Object
}

// ReadNodeFrames returns the frames in which node has a delta.
func (s *Store) ReadNodeFrames(ctx context.Context, runID, node string) ([]NodeFrame, error) {
	frames, err := s.ReadFrames(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := []NodeFrame{}
	for _, f := range frames {
		if d, ok := f.Delta[node].(ir.Object); ok {
			out = append(out, NodeFrame{Index: f.Index, Delta: d})
		}
	}
	return out, nil
}
