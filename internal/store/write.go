package store

import (
	"context"
	"fmt"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// Run is a recorded run.
type Run struct {
	ID     string
	Seq    int64
	Header sink.Header

	// Scenario is the source the run was compiled from, when known.
	Scenario       string
	ScenarioFormat string

	FrameCount      int
	Digest          string
	Stopped         bool
	CompilerVersion string
	FormatVersion   string
}

// WriteRun inserts a run. The run's seq is assigned as one past the highest
// recorded seq and returned.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	header, err := marshalHeader(run.Header)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO runs
		(id, seq, name, fps, header, scenario, scenario_format, compiler_version, format_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq
	`,
		run.ID,
		run.Header.Name,
		run.Header.FPS,
		header,
		run.Scenario,
		run.ScenarioFormat,
		ir.CompilerVersion,
		ir.FormatVersion,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}
	return seq, nil
}

// WriteFrame inserts one frame. Frames of a run are unique by index.
func (s *Store) WriteFrame(ctx context.Context, runID string, f sink.Frame) error {
	delta, err := marshalDelta(f.Delta)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO frames (run_id, frame_index, delta) VALUES (?, ?, ?)
	`, runID, f.Index, delta)
	if err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	return nil
}

// FinishRun marks a run stopped and stores its frame count and digest.
func (s *Store) FinishRun(ctx context.Context, runID string, frames int, digest string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET stopped = 1, frame_count = ?, digest = ? WHERE id = ?
	`, frames, digest, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
