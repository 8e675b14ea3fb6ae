package store

import (
	"context"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// Recorder is a sink that records a run into a Store.
type Recorder struct {
	store    *Store
	scenario string
	format   string

	seq    sink.Sequence
	runID  string
	digest *ir.RunDigest
}

// NewRecorder returns a recorder. scenario and format are stored with the
// run so replay can recompile it; both may be empty.
func NewRecorder(s *Store, scenario, format string) *Recorder {
	return &Recorder{store: s, scenario: scenario, format: format}
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Digest returns the digest of the frames recorded so far.
func (r *Recorder) Digest() string {
	if r.digest == nil {
		return ""
	}
	return r.digest.Sum()
}

func (r *Recorder) SendStart(ctx context.Context, h sink.Header) error {
	if err := r.seq.Start(); err != nil {
		return err
	}
	r.runID = h.RunID
	r.digest = ir.NewRunDigest()
	_, err := r.store.WriteRun(ctx, Run{
		ID:             h.RunID,
		Header:         h,
		Scenario:       r.scenario,
		ScenarioFormat: r.format,
	})
	return err
}

func (r *Recorder) SendFrame(ctx context.Context, f sink.Frame) error {
	if err := r.seq.Frame(f.Index); err != nil {
		return err
	}
	if err := r.digest.Add(f.Index, f.Delta); err != nil {
		return err
	}
	return r.store.WriteFrame(ctx, r.runID, f)
}

func (r *Recorder) SendStop(ctx context.Context) error {
	if err := r.seq.Stop(); err != nil {
		return err
	}
	return r.store.FinishRun(ctx, r.runID, r.digest.Frames(), r.digest.Sum())
}
