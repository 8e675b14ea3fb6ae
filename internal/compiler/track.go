package compiler

import (
	"fmt"

	"github.com/roach88/animdiff/internal/scene"
)

// Track is one node's keyframe timeline and its compiled units.
// It is not safe for concurrent use.
type Track struct {
	name string
	kind scene.Kind

	keyframes []Keyframe
	store     unitStore
}

// NewTrack returns an empty track for a node of the given kind.
func NewTrack(name string, kind scene.Kind) *Track {
	return &Track{name: name, kind: kind}
}

// Name returns the node name the track emits deltas under.
func (t *Track) Name() string { return t.name }

// Kind returns the geometry kind fixed at creation.
func (t *Track) Kind() scene.Kind { return t.kind }

// UpdateReport describes one accepted keyframe.
type UpdateReport struct {
	SpliceReport

	// Units and Frames count what the keyframe compiled to.
	Units  int
	Frames int
}

// Update inserts kf, invalidating everything from kf.StartFrame on, and
// compiles it. StopFrame is clamped to StartFrame.
func (t *Track) Update(kf Keyframe) (UpdateReport, error) {
	if kf.Start == nil || kf.End == nil {
		return UpdateReport{}, ErrMissingShape
	}
	for _, s := range []scene.Shape{kf.Start, kf.End} {
		if err := scene.Validate(s); err != nil {
			return UpdateReport{}, err
		}
		if s.Kind() != t.kind {
			return UpdateReport{}, fmt.Errorf("%w: node %q is %s, got %s", ErrKindMismatch, t.name, t.kind, s.Kind())
		}
	}
	if kf.StartFrame < 1 || kf.StartFrame <= t.store.releasedThrough {
		return UpdateReport{}, fmt.Errorf("%w: start frame %d, flushed through %d", ErrFlushedFrame, kf.StartFrame, t.store.releasedThrough)
	}
	kf.StopFrame = max(kf.StopFrame, kf.StartFrame)

	s := kf.StartFrame
	t.truncate(s)
	rep := t.store.splice(s)
	base := t.store.baselineBefore(s)

	units, _ := Compile(t.name, base, kf)
	t.store.append(units...)

	report := UpdateReport{SpliceReport: rep, Units: len(units)}
	for _, u := range units {
		report.Frames += u.Len()
	}

	kf.Compiled = true
	kf.Until = kf.StopFrame
	t.keyframes = append(t.keyframes, kf)
	return report, nil
}

// truncate drops keyframes starting at or after s and cuts a straddling one
// short.
func (t *Track) truncate(s int) {
	kept := t.keyframes[:0]
	for _, k := range t.keyframes {
		if k.StartFrame >= s {
			continue
		}
		if k.Until >= s {
			k.Until = s - 1
		}
		kept = append(kept, k)
	}
	t.keyframes = kept
}

// FramesFromTo returns copies of every unit overlapping [a, b], clipped to
// that window. Storage is never modified.
func (t *Track) FramesFromTo(a, b int) []Unit {
	return t.store.slice(a, b)
}

// Release drops units that end at or before through. Those frames have been
// flushed and can no longer be invalidated.
func (t *Track) Release(through int) int {
	return t.store.release(through)
}

// Keyframes returns the retained keyframes in start order.
func (t *Track) Keyframes() []Keyframe {
	return append([]Keyframe(nil), t.keyframes...)
}

// Units returns copies of all retained units.
func (t *Track) Units() []Unit {
	return t.store.slice(t.store.releasedThrough+1, t.LastFrame())
}

// LastFrame returns the last frame any unit covers.
func (t *Track) LastFrame() int {
	return t.store.lastFrame()
}

// Released returns the last flushed frame.
func (t *Track) Released() int {
	return t.store.releasedThrough
}

// Recompile rebuilds every unit from an empty baseline by replaying the
// retained keyframes in order. The track itself is left untouched. Released
// units are rebuilt too, so the result covers the whole history.
func (t *Track) Recompile() []Unit {
	fresh := NewTrack(t.name, t.kind)
	for _, k := range t.keyframes {
		k.Compiled = false
		if _, err := fresh.Update(k); err != nil {
			invariant("Recompile", "replaying keyframe at %d: %v", k.StartFrame, err)
		}
	}
	return fresh.Units()
}
