package engine

import (
	"github.com/roach88/animdiff/internal/compiler"
	"github.com/roach88/animdiff/internal/metrics"
	"github.com/roach88/animdiff/internal/scene"
)

// KeyframeSpec declares a node's state at t0 and t1 (seconds).
type KeyframeSpec struct {
	Start scene.Shape
	End   scene.Shape
	Style scene.Style
	T0    float64
	T1    float64
	// Keep leaves the node showing the end state after t1.
	Keep bool
}

// Node is a named, kind-fixed scene element.
type Node struct {
	a     *Animator
	track *compiler.Track
}

// Name returns the node name.
func (n *Node) Name() string { return n.track.Name() }

// Kind returns the node's geometry kind.
func (n *Node) Kind() scene.Kind { return n.track.Kind() }

// Track exposes the node's compiled units for inspection.
func (n *Node) Track() *compiler.Track { return n.track }

// Animate is Update with positional arguments.
func (n *Node) Animate(start, end scene.Shape, style scene.Style, t0, t1 float64, keep bool) error {
	return n.Update(KeyframeSpec{Start: start, End: end, Style: style, T0: t0, T1: t1, Keep: keep})
}

// Update compiles a keyframe, replacing whatever the node had scheduled from
// the keyframe's first frame on.
//
// The update is rejected when a time is not finite, t0 is before the
// current time, t1 is before t0, or a shape's kind differs from the node's
// kind. The current time is the later of the last step and the clock.
// A rejected update leaves the node unchanged.
func (n *Node) Update(spec KeyframeSpec) error {
	a := n.a
	name := n.Name()
	if a.stopped {
		return a.reject(newError(ErrCodeLifecycle, name, "animator stopped"))
	}
	now := a.current()
	if !finite(spec.T0) || !finite(spec.T1) || spec.T0 < now || spec.T1 < spec.T0 {
		return a.reject(NewRejectedUpdate(name, spec.T0, spec.T1, now))
	}
	for _, s := range []scene.Shape{spec.Start, spec.End} {
		if s != nil && s.Kind() != n.Kind() {
			return a.reject(newError(ErrCodeKindMismatch, name, "node is %s, keyframe is %s", n.Kind(), s.Kind()))
		}
	}

	kf := compiler.Keyframe{
		Start:      spec.Start,
		End:        spec.End,
		Style:      spec.Style,
		StartFrame: a.FrameAt(spec.T0) + 1,
		StopFrame:  a.FrameAt(spec.T1),
		Keep:       spec.Keep,
	}
	rep, err := n.track.Update(kf)
	if err != nil {
		return a.reject(asRuntimeError(name, err))
	}

	metrics.KeyframesAccepted.Inc()
	if rep.DroppedFrames > 0 {
		metrics.FramesInvalidated.Add(float64(rep.DroppedFrames))
		a.log.Debug("splice", "node", name, "at", kf.StartFrame,
			"dropped_units", rep.DroppedUnits, "truncated_units", rep.TruncatedUnits, "dropped_frames", rep.DroppedFrames)
	}
	metrics.UnitsCompiled.Add(float64(rep.Units))
	metrics.FramesCompiled.Add(float64(rep.Frames))
	return nil
}
