package store

import (
	"context"
	"fmt"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// Integrity describes a stored run checked against its own frames.
type Integrity struct {
	RunID string

	// Stored is the digest recorded at stop; Computed is recomputed from the
	// stored frames.
	Stored   string
	Computed string

	Frames int
	// Gaps lists missing frame indices between 1 and the last stored frame.
	Gaps []int
}

// OK reports whether the run is complete and its frames match its digest.
func (i Integrity) OK() bool {
	return i.Stored != "" && i.Stored == i.Computed && len(i.Gaps) == 0
}

// Digest computes the run digest of frames in order.
func Digest(frames []sink.Frame) (string, error) {
	d := ir.NewRunDigest()
	for _, f := range frames {
		if err := d.Add(f.Index, f.Delta); err != nil {
			return "", fmt.Errorf("digest frame %d: %w", f.Index, err)
		}
	}
	return d.Sum(), nil
}

// CheckRun recomputes a run's digest from its stored frames.
func (s *Store) CheckRun(ctx context.Context, runID string) (Integrity, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return Integrity{}, err
	}
	frames, err := s.ReadFrames(ctx, runID)
	if err != nil {
		return Integrity{}, err
	}

	res := Integrity{RunID: runID, Stored: run.Digest, Frames: len(frames)}
	next := 1
	for _, f := range frames {
		for ; next < f.Index; next++ {
			res.Gaps = append(res.Gaps, next)
		}
		next = f.Index + 1
	}
	res.Computed, err = Digest(frames)
	if err != nil {
		return Integrity{}, err
	}
	return res, nil
}
